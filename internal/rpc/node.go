package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/skifflog/skiff/internal/entry"
)

// Node API method names.
const (
	methodNextEntryArgs = "nextEntryArgs"
	methodPublishEntry  = "publishEntry"
	methodQueryEntries  = "queryEntries"
)

// wirePosition tolerates both string and number forms for the integer
// fields; older nodes serialize them as decimal strings.
type wirePosition struct {
	LogID    json.Number `json:"logId"`
	SeqNum   json.Number `json:"seqNum"`
	Backlink string      `json:"backlink,omitempty"`
	Skiplink string      `json:"skiplink,omitempty"`
}

func (w wirePosition) toPosition() (entry.LogPosition, error) {
	logID, err := w.LogID.Int64()
	if err != nil {
		return entry.LogPosition{}, fmt.Errorf("malformed logId %q", w.LogID.String())
	}
	seqNum, err := w.SeqNum.Int64()
	if err != nil {
		return entry.LogPosition{}, fmt.Errorf("malformed seqNum %q", w.SeqNum.String())
	}
	pos := entry.LogPosition{
		LogID:    logID,
		SeqNum:   seqNum,
		Backlink: w.Backlink,
		Skiplink: w.Skiplink,
	}
	if err := pos.Validate(); err != nil {
		return entry.LogPosition{}, err
	}
	return pos, nil
}

// NextPosition asks the node for the arguments of the next entry for
// (author, target). The target is a schema id before a document exists and
// the document id afterwards.
func (c *Client) NextPosition(ctx context.Context, author, target string) (entry.LogPosition, error) {
	params := map[string]string{"author": author, "document": target}
	var wire wirePosition
	if err := c.Call(ctx, methodNextEntryArgs, params, &wire); err != nil {
		return entry.LogPosition{}, err
	}
	pos, err := wire.toPosition()
	if err != nil {
		return entry.LogPosition{}, &RPCError{Method: methodNextEntryArgs, Err: err}
	}
	return pos, nil
}

// Publish transmits a signed entry and its operation payload, returning the
// node's computed next position for the entry's target.
func (c *Client) Publish(ctx context.Context, entryBytes, payloadBytes []byte) (entry.LogPosition, error) {
	params := map[string]string{
		"entry":     hex.EncodeToString(entryBytes),
		"operation": hex.EncodeToString(payloadBytes),
	}
	var wire wirePosition
	if err := c.Call(ctx, methodPublishEntry, params, &wire); err != nil {
		return entry.LogPosition{}, err
	}
	pos, err := wire.toPosition()
	if err != nil {
		return entry.LogPosition{}, &RPCError{Method: methodPublishEntry, Err: err}
	}
	return pos, nil
}

// Entries fetches all encoded entries for a schema, in the node's order.
func (c *Client) Entries(ctx context.Context, schemaID string) ([]entry.EncodedEntry, error) {
	params := map[string]string{"schema": schemaID}
	var entries []entry.EncodedEntry
	if err := c.Call(ctx, methodQueryEntries, params, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
