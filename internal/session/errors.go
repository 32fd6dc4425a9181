package session

import (
	"errors"
	"fmt"
)

// ProtocolError represents a failure in the log-session protocol.
//
// The code tells the caller which class of failure occurred:
//   - caller input problems (SCHEMA_REQUIRED, INVALID_OPERATION) are never
//     retried
//   - remote failures (POSITION_UNAVAILABLE, TRANSMIT_FAILED,
//     REMOTE_QUERY_FAILED) carry the transport error; retry policy is the
//     caller's
//   - codec failures (SIGNING_FAILED, DECODE_FAILED) carry the codec's own
//     message for diagnostics
type ProtocolError struct {
	// Code identifies the failure category.
	Code ProtocolErrorCode

	// Message is a human-readable description.
	Message string

	// Author is the public key of the publishing author, when relevant.
	Author string

	// Target is the schema or document id the call addressed.
	Target string

	// Err is the underlying transport or codec error, if any.
	Err error
}

// ProtocolErrorCode categorizes protocol errors.
type ProtocolErrorCode string

const (
	// ErrCodeSchemaRequired indicates a query with an empty schema id.
	ErrCodeSchemaRequired ProtocolErrorCode = "SCHEMA_REQUIRED"

	// ErrCodeInvalidOperation indicates malformed caller input: untaggable
	// fields, a structurally invalid operation, or a schema violation.
	ErrCodeInvalidOperation ProtocolErrorCode = "INVALID_OPERATION"

	// ErrCodePositionUnavailable indicates the next-position fetch failed
	// or returned malformed data.
	ErrCodePositionUnavailable ProtocolErrorCode = "POSITION_UNAVAILABLE"

	// ErrCodeSigningFailed indicates the codec failed to sign or encode.
	ErrCodeSigningFailed ProtocolErrorCode = "SIGNING_FAILED"

	// ErrCodeTransmitFailed indicates the publish transmission failed.
	ErrCodeTransmitFailed ProtocolErrorCode = "TRANSMIT_FAILED"

	// ErrCodeRemoteQueryFailed indicates the entry fetch failed.
	ErrCodeRemoteQueryFailed ProtocolErrorCode = "REMOTE_QUERY_FAILED"

	// ErrCodeDecodeFailed indicates an entry in a fetched batch failed to
	// decode. Partial results are never returned.
	ErrCodeDecodeFailed ProtocolErrorCode = "DECODE_FAILED"
)

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Target != "" {
		msg = fmt.Sprintf("%s (target=%s)", msg, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ProtocolErrorCode) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Code == code
}

// IsSchemaRequired reports whether err is an empty-schema-id error.
func IsSchemaRequired(err error) bool { return hasCode(err, ErrCodeSchemaRequired) }

// IsInvalidOperation reports whether err is a malformed-input error.
func IsInvalidOperation(err error) bool { return hasCode(err, ErrCodeInvalidOperation) }

// IsPositionUnavailable reports whether err is a position-fetch failure.
func IsPositionUnavailable(err error) bool { return hasCode(err, ErrCodePositionUnavailable) }

// IsSigningFailed reports whether err is a codec signing failure.
func IsSigningFailed(err error) bool { return hasCode(err, ErrCodeSigningFailed) }

// IsTransmitFailed reports whether err is a publish transmission failure.
func IsTransmitFailed(err error) bool { return hasCode(err, ErrCodeTransmitFailed) }

// IsRemoteQueryFailed reports whether err is an entry-fetch failure.
func IsRemoteQueryFailed(err error) bool { return hasCode(err, ErrCodeRemoteQueryFailed) }

// IsDecodeFailed reports whether err is a batch decode failure.
func IsDecodeFailed(err error) bool { return hasCode(err, ErrCodeDecodeFailed) }
