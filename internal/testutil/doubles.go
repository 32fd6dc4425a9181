package testutil

import (
	"context"
	"sync"

	"github.com/skifflog/skiff/internal/codec"
	"github.com/skifflog/skiff/internal/entry"
)

// FlakyNode wraps a node and injects failures per call site.
// A nil error field passes the call through.
type FlakyNode struct {
	Inner interface {
		NextPosition(ctx context.Context, author, target string) (entry.LogPosition, error)
		Publish(ctx context.Context, entryBytes, payloadBytes []byte) (entry.LogPosition, error)
		Entries(ctx context.Context, schemaID string) ([]entry.EncodedEntry, error)
	}
	NextPositionErr error
	PublishErr      error
	EntriesErr      error
}

func (f *FlakyNode) NextPosition(ctx context.Context, author, target string) (entry.LogPosition, error) {
	if f.NextPositionErr != nil {
		return entry.LogPosition{}, f.NextPositionErr
	}
	return f.Inner.NextPosition(ctx, author, target)
}

func (f *FlakyNode) Publish(ctx context.Context, entryBytes, payloadBytes []byte) (entry.LogPosition, error) {
	if f.PublishErr != nil {
		return entry.LogPosition{}, f.PublishErr
	}
	return f.Inner.Publish(ctx, entryBytes, payloadBytes)
}

func (f *FlakyNode) Entries(ctx context.Context, schemaID string) ([]entry.EncodedEntry, error) {
	if f.EntriesErr != nil {
		return nil, f.EntriesErr
	}
	return f.Inner.Entries(ctx, schemaID)
}

// FlakyCodec wraps a codec and injects failures per capability.
type FlakyCodec struct {
	Inner     codec.Codec
	EncodeErr error
	SignErr   error
	DecodeErr error
}

func (f *FlakyCodec) EncodeOperation(op entry.Operation) ([]byte, error) {
	if f.EncodeErr != nil {
		return nil, f.EncodeErr
	}
	return f.Inner.EncodeOperation(op)
}

func (f *FlakyCodec) SignAndEncodeEntry(payload []byte, pos entry.LogPosition, kp codec.KeyPair) ([]byte, string, error) {
	if f.SignErr != nil {
		return nil, "", f.SignErr
	}
	return f.Inner.SignAndEncodeEntry(payload, pos, kp)
}

func (f *FlakyCodec) DecodeEntry(entryBytes, payloadBytes []byte) (codec.Decoded, error) {
	if f.DecodeErr != nil {
		return codec.Decoded{}, f.DecodeErr
	}
	return f.Inner.DecodeEntry(entryBytes, payloadBytes)
}

// FixedTokens returns predetermined correlation tokens for deterministic
// logs in tests.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTokens struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokens creates a generator that returns tokens in order, then
// panics when exhausted. Running out mid-test means the test enqueued more
// calls than it accounted for, which should fail loudly.
func NewFixedTokens(tokens ...string) *FixedTokens {
	return &FixedTokens{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("testutil: fixed tokens exhausted")
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}
