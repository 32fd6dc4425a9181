package archive

import (
	"context"
	"fmt"

	"github.com/skifflog/skiff/internal/entry"
)

// EntriesForSchema returns all archived entries for a schema.
// Ordering is deterministic: seq_num ASC, entry_hash ASC, so offline
// materialization replays identically every time.
//
// Returns an empty slice (not nil) when nothing is archived.
func (a *Archive) EntriesForSchema(ctx context.Context, schemaID string) ([]entry.EncodedEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT entry_hash, author, log_id, seq_num, payload_hash, entry_bytes, payload_bytes
		FROM entries
		WHERE schema_id = ?
		ORDER BY seq_num ASC, entry_hash ASC
	`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("query archived entries: %w", err)
	}
	defer rows.Close()

	entries := []entry.EncodedEntry{}
	for rows.Next() {
		var enc entry.EncodedEntry
		if err := rows.Scan(
			&enc.EntryHash,
			&enc.Author,
			&enc.LogID,
			&enc.SeqNum,
			&enc.PayloadHash,
			&enc.EntryBytes,
			&enc.PayloadBytes,
		); err != nil {
			return nil, fmt.Errorf("scan archived entry: %w", err)
		}
		entries = append(entries, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived entries: %w", err)
	}
	return entries, nil
}

// Schemas returns the distinct schema ids present in the archive, sorted.
func (a *Archive) Schemas(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT DISTINCT schema_id FROM entries ORDER BY schema_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query archived schemas: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan schema id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema ids: %w", err)
	}
	return ids, nil
}
