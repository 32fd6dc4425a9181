// Package testutil provides deterministic collaborators for tests: an
// in-process node honoring the publish contract, error-injecting wrappers,
// and a fixed token generator.
package testutil

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/skifflog/skiff/internal/devcodec"
	"github.com/skifflog/skiff/internal/entry"
)

// MemoryNode is an in-process node. It keeps one append-only log per
// document, validates seq numbers and backlinks on publish, and rejects a
// second entry signed against an already-used backlink - the same checks a
// real node applies.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryNode struct {
	mu    sync.Mutex
	codec devcodec.Codec

	// logs holds per-author logs keyed by log id.
	logs map[string]map[int64]*memoryLog

	// docLogs maps (author, document id) to the owning log.
	docLogs map[string]map[string]*memoryLog

	// order keeps every published entry in publish order for Entries.
	order []publishedEntry
}

type memoryLog struct {
	id      int64
	tipHash string
	seqNum  int64 // last used seq number, 0 for a fresh log
}

type publishedEntry struct {
	schemaID string
	encoded  entry.EncodedEntry
}

// NewMemoryNode creates an empty in-process node.
func NewMemoryNode() *MemoryNode {
	return &MemoryNode{
		codec:   devcodec.New(),
		logs:    make(map[string]map[int64]*memoryLog),
		docLogs: make(map[string]map[string]*memoryLog),
	}
}

// NextPosition implements session.Node. A known document id resolves to its
// log's next position; anything else (a schema id) gets a fresh log.
func (n *MemoryNode) NextPosition(_ context.Context, author, target string) (entry.LogPosition, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if log, ok := n.docLogs[author][target]; ok {
		return entry.LogPosition{
			LogID:    log.id,
			SeqNum:   log.seqNum + 1,
			Backlink: log.tipHash,
		}, nil
	}
	return entry.LogPosition{LogID: n.nextLogID(author), SeqNum: 1}, nil
}

// nextLogID returns the lowest unused log id for an author. Called with the
// lock held.
func (n *MemoryNode) nextLogID(author string) int64 {
	var max int64
	for id := range n.logs[author] {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Publish implements session.Node. The entry must extend its log's tip:
// stale sequence numbers and reused backlinks are rejected.
func (n *MemoryNode) Publish(_ context.Context, entryBytes, payloadBytes []byte) (entry.LogPosition, error) {
	dec, err := n.codec.DecodeEntry(entryBytes, payloadBytes)
	if err != nil {
		return entry.LogPosition{}, fmt.Errorf("publish: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	logs, ok := n.logs[dec.Author]
	if !ok {
		logs = make(map[int64]*memoryLog)
		n.logs[dec.Author] = logs
	}
	log, ok := logs[dec.LogID]
	if !ok {
		log = &memoryLog{id: dec.LogID}
		logs[dec.LogID] = log
	}

	if dec.SeqNum != log.seqNum+1 {
		return entry.LogPosition{}, fmt.Errorf("publish: seq %d does not extend log %d at seq %d", dec.SeqNum, dec.LogID, log.seqNum)
	}
	if dec.Backlink != log.tipHash {
		return entry.LogPosition{}, fmt.Errorf("publish: backlink %q does not match log tip %q", dec.Backlink, log.tipHash)
	}

	entryHash := devcodec.EntryHash(entryBytes)
	log.tipHash = entryHash
	log.seqNum = dec.SeqNum

	if dec.Operation.Action == entry.ActionCreate {
		if n.docLogs[dec.Author] == nil {
			n.docLogs[dec.Author] = make(map[string]*memoryLog)
		}
		n.docLogs[dec.Author][entryHash] = log
	}

	n.order = append(n.order, publishedEntry{
		schemaID: dec.Operation.SchemaID,
		encoded: entry.EncodedEntry{
			Author:       dec.Author,
			EntryBytes:   hex.EncodeToString(entryBytes),
			EntryHash:    entryHash,
			LogID:        dec.LogID,
			PayloadBytes: hex.EncodeToString(payloadBytes),
			PayloadHash:  dec.PayloadHash,
			SeqNum:       dec.SeqNum,
		},
	})

	return entry.LogPosition{
		LogID:    dec.LogID,
		SeqNum:   dec.SeqNum + 1,
		Backlink: entryHash,
	}, nil
}

// Entries implements session.Node, returning a schema's entries in publish
// order.
func (n *MemoryNode) Entries(_ context.Context, schemaID string) ([]entry.EncodedEntry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var entries []entry.EncodedEntry
	for _, pub := range n.order {
		if pub.schemaID == schemaID {
			entries = append(entries, pub.encoded)
		}
	}
	return entries, nil
}
