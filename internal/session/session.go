// Package session implements the client side of the log-session protocol:
// the publish handshake that signs and transmits entries while keeping the
// position cache exactly one step ahead, and the query/decode pipeline that
// turns fetched entries into records the materializer can fold.
package session

import (
	"context"
	"io"
	"log/slog"

	"github.com/skifflog/skiff/internal/archive"
	"github.com/skifflog/skiff/internal/codec"
	"github.com/skifflog/skiff/internal/entry"
	"github.com/skifflog/skiff/internal/position"
	"github.com/skifflog/skiff/internal/schema"
)

// Node is the remote node API the session consumes.
// rpc.Client implements it over HTTP JSON-RPC; testutil.MemoryNode
// implements it in process.
type Node interface {
	// NextPosition returns the arguments for the next entry of
	// (author, target).
	NextPosition(ctx context.Context, author, target string) (entry.LogPosition, error)

	// Publish transmits a signed entry with its operation payload and
	// returns the subsequent position for the entry's target.
	Publish(ctx context.Context, entryBytes, payloadBytes []byte) (entry.LogPosition, error)

	// Entries returns all encoded entries for a schema, ordered by the node.
	Entries(ctx context.Context, schemaID string) ([]entry.EncodedEntry, error)
}

// Session is a client session against one node.
//
// Concurrency: each publish or query call is a single flow of suspendable
// network operations with no internal parallelism. Publishes on distinct
// (author, target) keys proceed concurrently; publishes on the same key are
// serialized by a per-key lock so the position cache's consume-once
// contract holds.
type Session struct {
	node      Node
	codec     codec.Codec
	positions *position.Cache
	locks     *position.KeyedLock
	schemas   *schema.Registry
	archive   *archive.Archive
	logger    *slog.Logger
	tokens    TokenGenerator
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithSchemas enables client-side field validation against a schema
// registry before any operation is signed. Without a registry the node is
// the only validator.
func WithSchemas(reg *schema.Registry) Option {
	return func(s *Session) {
		s.schemas = reg
	}
}

// WithArchive records every published and fetched entry into a local
// archive for offline materialization. Archive failures are logged, never
// surfaced: the archive is an observer of the protocol, not a participant.
func WithArchive(a *archive.Archive) Option {
	return func(s *Session) {
		s.archive = a
	}
}

// WithTokenGenerator replaces the correlation token generator, e.g. with
// testutil.FixedTokens for deterministic logs.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(s *Session) {
		s.tokens = gen
	}
}

// New creates a session for the given node and codec.
func New(node Node, c codec.Codec, opts ...Option) *Session {
	s := &Session{
		node:      node,
		codec:     c,
		positions: position.NewCache(),
		locks:     position.NewKeyedLock(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tokens:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Positions exposes the position cache. Intended for tests asserting the
// cache discipline; production callers have no reason to touch it.
func (s *Session) Positions() *position.Cache {
	return s.positions
}
