package session

import (
	"context"
	"strings"

	"github.com/skifflog/skiff/internal/codec"
	"github.com/skifflog/skiff/internal/entry"
	"github.com/skifflog/skiff/internal/fieldval"
)

// CreateDocument publishes a create operation for a new document under the
// given schema and returns the signed entry bytes. The new document's id is
// the hash of this entry.
func (s *Session) CreateDocument(ctx context.Context, schemaID string, fields map[string]any, kp codec.KeyPair) ([]byte, error) {
	tagged, err := s.tagAndValidate(schemaID, fields, false)
	if err != nil {
		return nil, err
	}

	op := entry.Operation{
		Action:   entry.ActionCreate,
		SchemaID: schemaID,
		Fields:   tagged,
	}
	if err := s.validateOperation(schemaID, op); err != nil {
		return nil, err
	}
	return s.publish(ctx, kp, schemaID, op)
}

// UpdateDocument publishes an update operation against the causal tips in
// previous. The tips are caller-supplied and not verified against the
// fetched log.
func (s *Session) UpdateDocument(ctx context.Context, schemaID, documentID string, previous []string, fields map[string]any, kp codec.KeyPair) ([]byte, error) {
	tagged, err := s.tagAndValidate(schemaID, fields, true)
	if err != nil {
		return nil, err
	}

	op := entry.Operation{
		Action:   entry.ActionUpdate,
		SchemaID: schemaID,
		Previous: previous,
		Fields:   tagged,
	}
	if err := s.validateOperation(documentID, op); err != nil {
		return nil, err
	}
	return s.publish(ctx, kp, documentID, op)
}

// DeleteDocument publishes a delete operation, turning the document into a
// permanent tombstone once materialized.
func (s *Session) DeleteDocument(ctx context.Context, schemaID, documentID string, previous []string, kp codec.KeyPair) ([]byte, error) {
	op := entry.Operation{
		Action:   entry.ActionDelete,
		SchemaID: schemaID,
		Previous: previous,
	}
	if err := s.validateOperation(documentID, op); err != nil {
		return nil, err
	}
	return s.publish(ctx, kp, documentID, op)
}

// tagAndValidate tags the raw fields and, when a registry is configured,
// checks them against the schema. Updates validate partially (a subset of
// schema fields), creates fully.
func (s *Session) tagAndValidate(schemaID string, fields map[string]any, partial bool) (*fieldval.Map, error) {
	tagged, err := fieldval.Tag(fields)
	if err != nil {
		return nil, &ProtocolError{
			Code:    ErrCodeInvalidOperation,
			Message: "fields cannot be tagged",
			Target:  schemaID,
			Err:     err,
		}
	}
	if s.schemas != nil {
		if err := s.schemas.Validate(schemaID, tagged, partial); err != nil {
			return nil, &ProtocolError{
				Code:    ErrCodeInvalidOperation,
				Message: "fields violate schema",
				Target:  schemaID,
				Err:     err,
			}
		}
	}
	return tagged, nil
}

func (s *Session) validateOperation(target string, op entry.Operation) error {
	errs := op.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return &ProtocolError{
		Code:    ErrCodeInvalidOperation,
		Message: strings.Join(msgs, "; "),
		Target:  target,
	}
}
