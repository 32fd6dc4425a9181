package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skifflog/skiff/internal/devcodec"
	"github.com/skifflog/skiff/internal/schema"
	"github.com/skifflog/skiff/internal/testutil"
)

func newValidatingSession(t *testing.T) (*Session, *testutil.FlakyNode, devcodec.KeyPair) {
	t.Helper()
	reg, err := schema.LoadDir("testdata")
	require.NoError(t, err)

	// The tripwire proves rejected operations never reach the node.
	flaky := &testutil.FlakyNode{
		Inner:           testutil.NewMemoryNode(),
		NextPositionErr: errors.New("node must not be contacted"),
	}
	sess := New(flaky, devcodec.New(), WithSchemas(reg))
	return sess, flaky, devcodec.NewKeyPair("alice")
}

func TestSchemaViolationStopsBeforeNode(t *testing.T) {
	sess, _, kp := newValidatingSession(t)
	ctx := context.Background()

	// Missing required field.
	_, err := sess.CreateDocument(ctx, "posts_0020", map[string]any{"title": "hi"}, kp)
	require.Error(t, err)
	assert.True(t, IsInvalidOperation(err))

	// Type mismatch.
	_, err = sess.CreateDocument(ctx, "posts_0020", map[string]any{"title": 1, "views": 2}, kp)
	require.Error(t, err)
	assert.True(t, IsInvalidOperation(err))

	// Unknown field on an update (partial validation still checks names).
	_, err = sess.UpdateDocument(ctx, "posts_0020", "doc-1", []string{"doc-1"}, map[string]any{"extra": 1}, kp)
	require.Error(t, err)
	assert.True(t, IsInvalidOperation(err))
}

func TestSchemaValidOperationPasses(t *testing.T) {
	sess, flaky, kp := newValidatingSession(t)
	flaky.NextPositionErr = nil

	_, err := sess.CreateDocument(context.Background(), "posts_0020", map[string]any{
		"title": "hi",
		"views": 0,
	}, kp)
	assert.NoError(t, err)
}

func TestSchemaUpdatePartial(t *testing.T) {
	sess, flaky, kp := newValidatingSession(t)
	flaky.NextPositionErr = nil
	ctx := context.Background()

	createBytes, err := sess.CreateDocument(ctx, "posts_0020", map[string]any{"title": "hi", "views": 0}, kp)
	require.NoError(t, err)
	docID := devcodec.EntryHash(createBytes)

	// A subset of schema fields is a valid update.
	_, err = sess.UpdateDocument(ctx, "posts_0020", docID, []string{docID}, map[string]any{"views": 1}, kp)
	assert.NoError(t, err)
}
