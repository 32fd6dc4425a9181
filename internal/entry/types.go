package entry

import (
	"fmt"

	"github.com/skifflog/skiff/internal/fieldval"
)

// Action is the application-level operation kind carried by an entry.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction validates an action string from the wire.
// Unknown actions are returned verbatim alongside the error so callers can
// report what they saw.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCreate, ActionUpdate, ActionDelete:
		return Action(s), nil
	default:
		return Action(s), fmt.Errorf("unknown action %q", s)
	}
}

// LogPosition holds the arguments required to construct the next entry for
// one (author, target) pair: the log to append to, the sequence number the
// entry will take, and the backlink/skiplink hashes it must reference.
//
// SeqNum starts at 1. The first entry of a fresh log has no links.
type LogPosition struct {
	LogID    int64
	SeqNum   int64
	Backlink string
	Skiplink string
}

// Validate checks the structural invariants of a position.
func (p LogPosition) Validate() error {
	if p.SeqNum < 1 {
		return fmt.Errorf("log position: seqNum must be >= 1, got %d", p.SeqNum)
	}
	if p.SeqNum == 1 && (p.Backlink != "" || p.Skiplink != "") {
		return fmt.Errorf("log position: seqNum 1 must not carry backlink or skiplink")
	}
	if p.SeqNum > 1 && p.Backlink == "" {
		return fmt.Errorf("log position: seqNum %d requires a backlink", p.SeqNum)
	}
	return nil
}

// EncodedEntry is the wire form of one signed entry, as sent to or returned
// by the node. Byte fields are hex-encoded strings on the wire and stay that
// way here. Immutable once produced.
type EncodedEntry struct {
	Author       string `json:"author"`
	EntryBytes   string `json:"entryBytes"`
	EntryHash    string `json:"entryHash"`
	LogID        int64  `json:"logId"`
	PayloadBytes string `json:"payloadBytes"`
	PayloadHash  string `json:"payloadHash"`
	SeqNum       int64  `json:"seqNum"`
}

// Operation is the application payload carried by an entry.
//
// Fields is mandatory for create/update and absent for delete. Previous
// lists the tip operation ids this operation causally follows; mandatory
// for update/delete, absent for create.
type Operation struct {
	Action   Action
	SchemaID string
	Previous []string
	Fields   *fieldval.Map
}

// ValidationError reports one structural violation in an operation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks an operation against the structural rules above.
// Returns all violations, not just the first.
func (op Operation) Validate() []ValidationError {
	var errs []ValidationError

	if _, err := ParseAction(string(op.Action)); err != nil {
		errs = append(errs, ValidationError{Field: "action", Message: err.Error()})
	}
	if op.SchemaID == "" {
		errs = append(errs, ValidationError{Field: "schemaId", Message: "schema id is required"})
	}

	switch op.Action {
	case ActionCreate:
		if op.Fields.Len() == 0 {
			errs = append(errs, ValidationError{Field: "fields", Message: "create requires at least one field"})
		}
		if len(op.Previous) > 0 {
			errs = append(errs, ValidationError{Field: "previousOperations", Message: "create must not reference previous operations"})
		}
	case ActionUpdate:
		if op.Fields.Len() == 0 {
			errs = append(errs, ValidationError{Field: "fields", Message: "update requires at least one field"})
		}
		if len(op.Previous) == 0 {
			errs = append(errs, ValidationError{Field: "previousOperations", Message: "update requires previous operations"})
		}
	case ActionDelete:
		if op.Fields.Len() != 0 {
			errs = append(errs, ValidationError{Field: "fields", Message: "delete must not carry fields"})
		}
		if len(op.Previous) == 0 {
			errs = append(errs, ValidationError{Field: "previousOperations", Message: "delete requires previous operations"})
		}
	}

	return errs
}

// EntryRecord pairs a decoded operation with its log metadata. Produced by
// the query/decode pipeline, consumed (never mutated) by the materializer.
type EntryRecord struct {
	Author    string
	EntryHash string
	LogID     int64
	SeqNum    int64
	Backlink  string
	Skiplink  string
	Operation Operation
}
