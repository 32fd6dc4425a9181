package materialize

import (
	"errors"
	"fmt"
)

// FoldErrorCode categorizes fold failures.
type FoldErrorCode string

const (
	// ErrCodeDuplicateCreate indicates a create entry whose hash collides
	// with a live document id. Silent overwrite would hide data loss, so
	// the fold fails fast instead.
	ErrCodeDuplicateCreate FoldErrorCode = "DUPLICATE_CREATE"

	// ErrCodeUnhandledAction indicates an action value the fold does not
	// recognize. There is no silent-skip fallback for unknown actions.
	ErrCodeUnhandledAction FoldErrorCode = "UNHANDLED_ACTION"
)

// FoldError is a protocol invariant violation detected while folding.
// The whole materialization fails; previously returned state is unaffected
// because the fold builds into a set it never shares before completion.
type FoldError struct {
	Code       FoldErrorCode
	Message    string
	EntryHash  string
	DocumentID string
}

// Error implements the error interface.
func (e *FoldError) Error() string {
	if e.DocumentID != "" {
		return fmt.Sprintf("%s: %s (entry=%s, document=%s)", e.Code, e.Message, e.EntryHash, e.DocumentID)
	}
	return fmt.Sprintf("%s: %s (entry=%s)", e.Code, e.Message, e.EntryHash)
}

// IsDuplicateCreate reports whether err is a duplicate-create fold error.
// Uses errors.As to handle wrapped errors.
func IsDuplicateCreate(err error) bool {
	var fe *FoldError
	return errors.As(err, &fe) && fe.Code == ErrCodeDuplicateCreate
}

// IsUnhandledAction reports whether err is an unknown-action fold error.
func IsUnhandledAction(err error) bool {
	var fe *FoldError
	return errors.As(err, &fe) && fe.Code == ErrCodeUnhandledAction
}
