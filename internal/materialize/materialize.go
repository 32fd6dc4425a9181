// Package materialize folds decoded entry records into document state.
//
// The fold is pure: it holds no locks, touches no shared state, and the
// same records always produce the same document set. Ordering is made
// explicit up front (stable sort by seqNum, input order breaking ties), so
// materializing a batch out of order yields the same result as in order.
// Sequence numbers from different logs are independent; callers wanting a
// meaningful multi-author merge must pre-partition by author/log.
package materialize

import (
	"sort"

	"github.com/skifflog/skiff/internal/entry"
	"github.com/skifflog/skiff/internal/fieldval"
)

// Materialize folds entry records into a set of documents.
//
// Create entries start a document whose id is the entry hash. Updates
// shallow-merge fields over the current map. Deletes clear the visible
// fields and mark the tombstone; every later entry for that document is
// silently ignored. A create colliding with a live id or an unrecognized
// action fails the whole batch with a *FoldError.
func Materialize(records []entry.EntryRecord) (*DocumentSet, error) {
	ordered := make([]entry.EntryRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SeqNum < ordered[j].SeqNum
	})

	set := NewDocumentSet()

	// Operation id -> owning document id, for resolving update/delete
	// targets through their previous-operations chain.
	owner := make(map[string]string, len(ordered))

	for _, rec := range ordered {
		switch rec.Operation.Action {
		case entry.ActionCreate:
			if err := foldCreate(set, owner, rec); err != nil {
				return nil, err
			}
		case entry.ActionUpdate, entry.ActionDelete:
			foldMutation(set, owner, rec)
		default:
			return nil, &FoldError{
				Code:      ErrCodeUnhandledAction,
				Message:   "unhandled action " + string(rec.Operation.Action),
				EntryHash: rec.EntryHash,
			}
		}
	}

	return set, nil
}

func foldCreate(set *DocumentSet, owner map[string]string, rec entry.EntryRecord) error {
	id := rec.EntryHash
	if existing, ok := set.Get(id); ok {
		// Tombstoned ids are terminal; a colliding create on one is
		// skipped like any other post-delete entry.
		if existing.Meta.Deleted {
			return nil
		}
		return &FoldError{
			Code:       ErrCodeDuplicateCreate,
			Message:    "create collides with live document",
			EntryHash:  rec.EntryHash,
			DocumentID: id,
		}
	}

	set.add(&Document{
		ID:     id,
		Fields: fieldval.Untag(rec.Operation.Fields),
		Meta: Meta{
			Author:  rec.Author,
			Schema:  rec.Operation.SchemaID,
			Entries: []entry.EntryRecord{rec},
		},
	})
	owner[rec.EntryHash] = id
	return nil
}

// foldMutation applies an update or delete. Entries whose target cannot be
// resolved (dangling previous-operations) and entries on tombstones are
// dropped without error: both are defined, silent policies.
func foldMutation(set *DocumentSet, owner map[string]string, rec entry.EntryRecord) {
	id, ok := resolveTarget(owner, rec.Operation.Previous)
	if !ok {
		return
	}
	doc, ok := set.Get(id)
	if !ok || doc.Meta.Deleted {
		return
	}

	owner[rec.EntryHash] = id

	switch rec.Operation.Action {
	case entry.ActionUpdate:
		for name, value := range fieldval.Untag(rec.Operation.Fields) {
			doc.Fields[name] = value
		}
		doc.Meta.Edited = true
	case entry.ActionDelete:
		doc.Fields = map[string]any{}
		doc.Meta.Deleted = true
	}
	doc.Meta.Entries = append(doc.Meta.Entries, rec)
}

// resolveTarget maps an operation's previous-operations tips to the owning
// document. The tips are caller-supplied and not verified against the log;
// the first resolvable tip wins.
func resolveTarget(owner map[string]string, previous []string) (string, bool) {
	for _, opID := range previous {
		if id, ok := owner[opID]; ok {
			return id, true
		}
	}
	return "", false
}
