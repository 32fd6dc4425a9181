package session

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/skifflog/skiff/internal/entry"
	"github.com/skifflog/skiff/internal/materialize"
)

// QueryEntries fetches all entries for a schema and decodes them into
// records, preserving the node's order. A single undecodable entry fails
// the whole call; partial results are never returned.
func (s *Session) QueryEntries(ctx context.Context, schemaID string) ([]entry.EntryRecord, error) {
	if schemaID == "" {
		return nil, &ProtocolError{
			Code:    ErrCodeSchemaRequired,
			Message: "schema id is required",
		}
	}

	encoded, err := s.node.Entries(ctx, schemaID)
	if err != nil {
		return nil, &ProtocolError{
			Code:    ErrCodeRemoteQueryFailed,
			Message: "entry query failed",
			Target:  schemaID,
			Err:     err,
		}
	}

	records, err := s.decodeAll(schemaID, encoded)
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		for _, enc := range encoded {
			if err := s.archive.RecordFetched(ctx, schemaID, enc); err != nil {
				s.logger.Warn("archive write failed", "entryHash", enc.EntryHash, "err", err)
			}
		}
	}

	return records, nil
}

// QueryDocuments fetches and decodes a schema's entries, then folds them
// into materialized documents.
func (s *Session) QueryDocuments(ctx context.Context, schemaID string) ([]*materialize.Document, error) {
	records, err := s.QueryEntries(ctx, schemaID)
	if err != nil {
		return nil, err
	}
	set, err := materialize.Materialize(records)
	if err != nil {
		return nil, err
	}
	return set.Documents(), nil
}

// decodeAll decodes each encoded entry in input order. This is not a sort;
// materialization orders records itself.
func (s *Session) decodeAll(schemaID string, encoded []entry.EncodedEntry) ([]entry.EntryRecord, error) {
	records := make([]entry.EntryRecord, 0, len(encoded))
	for i, enc := range encoded {
		rec, err := s.decodeOne(enc)
		if err != nil {
			return nil, &ProtocolError{
				Code:    ErrCodeDecodeFailed,
				Message: fmt.Sprintf("entry %d (%s) failed to decode", i, enc.EntryHash),
				Target:  schemaID,
				Err:     err,
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Session) decodeOne(enc entry.EncodedEntry) (entry.EntryRecord, error) {
	entryBytes, err := hex.DecodeString(enc.EntryBytes)
	if err != nil {
		return entry.EntryRecord{}, fmt.Errorf("entry bytes: %w", err)
	}
	payloadBytes, err := hex.DecodeString(enc.PayloadBytes)
	if err != nil {
		return entry.EntryRecord{}, fmt.Errorf("payload bytes: %w", err)
	}

	dec, err := s.codec.DecodeEntry(entryBytes, payloadBytes)
	if err != nil {
		return entry.EntryRecord{}, err
	}

	return entry.EntryRecord{
		Author:    dec.Author,
		EntryHash: enc.EntryHash,
		LogID:     dec.LogID,
		SeqNum:    dec.SeqNum,
		Backlink:  dec.Backlink,
		Skiplink:  dec.Skiplink,
		Operation: dec.Operation,
	}, nil
}
