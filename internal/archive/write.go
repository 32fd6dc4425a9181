package archive

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/skifflog/skiff/internal/entry"
)

// RecordPublished archives an entry the session just published.
// Uses ON CONFLICT(entry_hash) DO NOTHING for idempotency - re-archiving
// the same entry is silently ignored.
func (a *Archive) RecordPublished(ctx context.Context, author, schemaID, entryHash string, pos entry.LogPosition, entryBytes, payloadBytes []byte) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO entries
		(entry_hash, author, schema_id, log_id, seq_num, entry_bytes, payload_bytes, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'published')
		ON CONFLICT(entry_hash) DO NOTHING
	`,
		entryHash,
		author,
		schemaID,
		pos.LogID,
		pos.SeqNum,
		hex.EncodeToString(entryBytes),
		hex.EncodeToString(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("record published entry: %w", err)
	}
	return nil
}

// RecordFetched archives an entry returned by a node query.
// Idempotent like RecordPublished; an entry already archived from the
// publish side keeps its original row.
func (a *Archive) RecordFetched(ctx context.Context, schemaID string, enc entry.EncodedEntry) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO entries
		(entry_hash, author, schema_id, log_id, seq_num, payload_hash, entry_bytes, payload_bytes, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'fetched')
		ON CONFLICT(entry_hash) DO NOTHING
	`,
		enc.EntryHash,
		enc.Author,
		schemaID,
		enc.LogID,
		enc.SeqNum,
		enc.PayloadHash,
		enc.EntryBytes,
		enc.PayloadBytes,
	)
	if err != nil {
		return fmt.Errorf("record fetched entry: %w", err)
	}
	return nil
}
