package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skifflog/skiff/internal/devcodec"
	"github.com/skifflog/skiff/internal/testutil"
)

const testSchema = "posts_0020"

func newTestSession(t *testing.T) (*Session, *testutil.MemoryNode, devcodec.KeyPair) {
	t.Helper()
	node := testutil.NewMemoryNode()
	sess := New(node, devcodec.New())
	return sess, node, devcodec.NewKeyPair("alice")
}

func TestCreateDocument(t *testing.T) {
	sess, _, kp := newTestSession(t)

	entryBytes, err := sess.CreateDocument(context.Background(), testSchema, map[string]any{"title": "hi"}, kp)
	require.NoError(t, err)
	require.NotEmpty(t, entryBytes)

	docID := devcodec.EntryHash(entryBytes)

	// The cache holds the next position under the new document id, not the
	// schema id the request was keyed by.
	pos, ok := sess.Positions().Get(kp.PublicKey(), docID)
	require.True(t, ok)
	assert.Equal(t, int64(2), pos.SeqNum)
	assert.Equal(t, docID, pos.Backlink)

	_, ok = sess.Positions().Get(kp.PublicKey(), testSchema)
	assert.False(t, ok)
}

func TestCreateUpdateDeleteLifecycle(t *testing.T) {
	sess, _, kp := newTestSession(t)
	ctx := context.Background()

	createBytes, err := sess.CreateDocument(ctx, testSchema, map[string]any{"title": "first", "views": 0}, kp)
	require.NoError(t, err)
	docID := devcodec.EntryHash(createBytes)

	updateBytes, err := sess.UpdateDocument(ctx, testSchema, docID, []string{docID}, map[string]any{"views": 1}, kp)
	require.NoError(t, err)
	updateID := devcodec.EntryHash(updateBytes)

	_, err = sess.DeleteDocument(ctx, testSchema, docID, []string{updateID}, kp)
	require.NoError(t, err)

	docs, err := sess.QueryDocuments(ctx, testSchema)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, docID, docs[0].ID)
	assert.True(t, docs[0].Meta.Deleted)
	assert.Empty(t, docs[0].Fields)
	assert.Len(t, docs[0].Meta.Entries, 3)
}

func TestUpdateUsesCachedPosition(t *testing.T) {
	sess, node, kp := newTestSession(t)
	ctx := context.Background()

	createBytes, err := sess.CreateDocument(ctx, testSchema, map[string]any{"n": 1}, kp)
	require.NoError(t, err)
	docID := devcodec.EntryHash(createBytes)

	flaky := &testutil.FlakyNode{Inner: node, NextPositionErr: errors.New("unreachable")}
	sess.node = flaky

	// With the position cached the session never asks the node, so the
	// injected NextPosition failure is invisible.
	_, err = sess.UpdateDocument(ctx, testSchema, docID, []string{docID}, map[string]any{"n": 2}, kp)
	require.NoError(t, err)

	pos, ok := sess.Positions().Get(kp.PublicKey(), docID)
	require.True(t, ok)
	assert.Equal(t, int64(3), pos.SeqNum)
}

func TestPublishPositionUnavailable(t *testing.T) {
	node := testutil.NewMemoryNode()
	flaky := &testutil.FlakyNode{Inner: node, NextPositionErr: errors.New("boom")}
	sess := New(flaky, devcodec.New())
	kp := devcodec.NewKeyPair("alice")

	_, err := sess.CreateDocument(context.Background(), testSchema, map[string]any{"a": 1}, kp)
	require.Error(t, err)
	assert.True(t, IsPositionUnavailable(err))
	assert.Equal(t, 0, sess.Positions().Len())
}

func TestPublishSigningFailureRestoresCache(t *testing.T) {
	node := testutil.NewMemoryNode()
	flaky := &testutil.FlakyCodec{Inner: devcodec.New()}
	sess := New(node, flaky)
	kp := devcodec.NewKeyPair("alice")
	ctx := context.Background()

	createBytes, err := sess.CreateDocument(ctx, testSchema, map[string]any{"n": 1}, kp)
	require.NoError(t, err)
	docID := devcodec.EntryHash(createBytes)

	before, ok := sess.Positions().Get(kp.PublicKey(), docID)
	require.True(t, ok)
	sess.Positions().Set(kp.PublicKey(), docID, before)

	flaky.SignErr = errors.New("hsm offline")
	_, err = sess.UpdateDocument(ctx, testSchema, docID, []string{docID}, map[string]any{"n": 2}, kp)
	require.Error(t, err)
	assert.True(t, IsSigningFailed(err))

	// The consumed position is back in the cache, untouched.
	after, ok := sess.Positions().Get(kp.PublicKey(), docID)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestPublishTransmitFailureRestoresCache(t *testing.T) {
	node := testutil.NewMemoryNode()
	flaky := &testutil.FlakyNode{Inner: node}
	sess := New(flaky, devcodec.New())
	kp := devcodec.NewKeyPair("alice")
	ctx := context.Background()

	createBytes, err := sess.CreateDocument(ctx, testSchema, map[string]any{"n": 1}, kp)
	require.NoError(t, err)
	docID := devcodec.EntryHash(createBytes)

	before, ok := sess.Positions().Get(kp.PublicKey(), docID)
	require.True(t, ok)
	sess.Positions().Set(kp.PublicKey(), docID, before)

	flaky.PublishErr = errors.New("connection reset")
	_, err = sess.UpdateDocument(ctx, testSchema, docID, []string{docID}, map[string]any{"n": 2}, kp)
	require.Error(t, err)
	assert.True(t, IsTransmitFailed(err))

	after, ok := sess.Positions().Get(kp.PublicKey(), docID)
	require.True(t, ok)
	assert.Equal(t, before, after)

	// The retry succeeds with the restored position.
	flaky.PublishErr = nil
	_, err = sess.UpdateDocument(ctx, testSchema, docID, []string{docID}, map[string]any{"n": 2}, kp)
	assert.NoError(t, err)
}

func TestPublishFailureWithoutCachedPosition(t *testing.T) {
	node := testutil.NewMemoryNode()
	flaky := &testutil.FlakyNode{Inner: node, PublishErr: errors.New("refused")}
	sess := New(flaky, devcodec.New())
	kp := devcodec.NewKeyPair("alice")

	_, err := sess.CreateDocument(context.Background(), testSchema, map[string]any{"n": 1}, kp)
	require.Error(t, err)

	// Nothing was consumed, so nothing is restored: the cache stays empty.
	assert.Equal(t, 0, sess.Positions().Len())
}

func TestInvalidOperationRejectedBeforeTransmit(t *testing.T) {
	sess, _, kp := newTestSession(t)
	ctx := context.Background()

	// Create with no fields.
	_, err := sess.CreateDocument(ctx, testSchema, map[string]any{}, kp)
	require.Error(t, err)
	assert.True(t, IsInvalidOperation(err))

	// Update without previous operations.
	_, err = sess.UpdateDocument(ctx, testSchema, "doc-1", nil, map[string]any{"a": 1}, kp)
	require.Error(t, err)
	assert.True(t, IsInvalidOperation(err))

	// Delete without previous operations.
	_, err = sess.DeleteDocument(ctx, testSchema, "doc-1", nil, kp)
	require.Error(t, err)
	assert.True(t, IsInvalidOperation(err))

	// Untaggable field value.
	_, err = sess.CreateDocument(ctx, testSchema, map[string]any{"ch": make(chan int)}, kp)
	require.Error(t, err)
	assert.True(t, IsInvalidOperation(err))
}

func TestQueryEntriesRequiresSchema(t *testing.T) {
	sess, _, _ := newTestSession(t)

	_, err := sess.QueryEntries(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsSchemaRequired(err))
}

func TestQueryEntriesRemoteFailure(t *testing.T) {
	node := testutil.NewMemoryNode()
	flaky := &testutil.FlakyNode{Inner: node, EntriesErr: errors.New("timeout")}
	sess := New(flaky, devcodec.New())

	_, err := sess.QueryEntries(context.Background(), testSchema)
	require.Error(t, err)
	assert.True(t, IsRemoteQueryFailed(err))
}

func TestQueryEntriesDecodeFailureFailsBatch(t *testing.T) {
	node := testutil.NewMemoryNode()
	flaky := &testutil.FlakyCodec{Inner: devcodec.New()}
	sess := New(node, flaky)
	kp := devcodec.NewKeyPair("alice")
	ctx := context.Background()

	_, err := sess.CreateDocument(ctx, testSchema, map[string]any{"a": 1}, kp)
	require.NoError(t, err)

	flaky.DecodeErr = errors.New("corrupt")
	records, err := sess.QueryEntries(ctx, testSchema)
	require.Error(t, err)
	assert.True(t, IsDecodeFailed(err))
	assert.Nil(t, records)
}

func TestQueryEntriesEmptySchemaResult(t *testing.T) {
	sess, _, _ := newTestSession(t)

	records, err := sess.QueryEntries(context.Background(), "unused_0001")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQueryEntriesPreservesNodeOrder(t *testing.T) {
	sess, _, kp := newTestSession(t)
	ctx := context.Background()

	first, err := sess.CreateDocument(ctx, testSchema, map[string]any{"n": 1}, kp)
	require.NoError(t, err)
	second, err := sess.CreateDocument(ctx, testSchema, map[string]any{"n": 2}, kp)
	require.NoError(t, err)

	records, err := sess.QueryEntries(ctx, testSchema)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, devcodec.EntryHash(first), records[0].EntryHash)
	assert.Equal(t, devcodec.EntryHash(second), records[1].EntryHash)
}

func TestTwoAuthorsIndependentLogs(t *testing.T) {
	node := testutil.NewMemoryNode()
	sess := New(node, devcodec.New())
	alice := devcodec.NewKeyPair("alice")
	bob := devcodec.NewKeyPair("bob")
	ctx := context.Background()

	aliceBytes, err := sess.CreateDocument(ctx, testSchema, map[string]any{"by": "alice"}, alice)
	require.NoError(t, err)
	_, err = sess.CreateDocument(ctx, testSchema, map[string]any{"by": "bob"}, bob)
	require.NoError(t, err)

	aliceDoc := devcodec.EntryHash(aliceBytes)
	_, err = sess.UpdateDocument(ctx, testSchema, aliceDoc, []string{aliceDoc}, map[string]any{"edited": true}, alice)
	require.NoError(t, err)

	docs, err := sess.QueryDocuments(ctx, testSchema)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byAuthor := map[string]bool{}
	for _, doc := range docs {
		byAuthor[doc.Meta.Author] = true
	}
	assert.True(t, byAuthor[alice.PublicKey()])
	assert.True(t, byAuthor[bob.PublicKey()])
}

func TestFixedTokensDrive(t *testing.T) {
	sess, _, kp := newTestSession(t)
	sessWithTokens := New(sess.node, devcodec.New(), WithTokenGenerator(testutil.NewFixedTokens("t-1")))

	_, err := sessWithTokens.CreateDocument(context.Background(), testSchema, map[string]any{"a": 1}, kp)
	assert.NoError(t, err)
}
