package materialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skifflog/skiff/internal/entry"
	"github.com/skifflog/skiff/internal/fieldval"
)

func record(t *testing.T, hash string, seq int64, action entry.Action, previous []string, raw map[string]any) entry.EntryRecord {
	t.Helper()
	var m *fieldval.Map
	if raw != nil {
		var err error
		m, err = fieldval.Tag(raw)
		require.NoError(t, err)
	}
	return entry.EntryRecord{
		Author:    "author-1",
		EntryHash: hash,
		LogID:     1,
		SeqNum:    seq,
		Operation: entry.Operation{
			Action:   action,
			SchemaID: "posts_0020",
			Previous: previous,
			Fields:   m,
		},
	}
}

func TestMaterializeCreateUpdateUpdate(t *testing.T) {
	records := []entry.EntryRecord{
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 0, "b": 0}),
		record(t, "h2", 2, entry.ActionUpdate, []string{"h1"}, map[string]any{"a": 1}),
		record(t, "h3", 3, entry.ActionUpdate, []string{"h2"}, map[string]any{"b": 2}),
	}

	set, err := Materialize(records)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	doc, ok := set.Get("h1")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": int64(1), "b": int64(2)}, doc.Fields)
	assert.True(t, doc.Meta.Edited)
	assert.False(t, doc.Meta.Deleted)
	assert.Len(t, doc.Meta.Entries, 3)
	assert.Equal(t, "author-1", doc.Meta.Author)
	assert.Equal(t, "posts_0020", doc.Meta.Schema)
}

func TestMaterializeTombstonePermanent(t *testing.T) {
	records := []entry.EntryRecord{
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 1}),
		record(t, "h2", 2, entry.ActionDelete, []string{"h1"}, nil),
		record(t, "h3", 3, entry.ActionUpdate, []string{"h2"}, map[string]any{"a": 9}),
	}

	set, err := Materialize(records)
	require.NoError(t, err)

	doc, ok := set.Get("h1")
	require.True(t, ok)
	assert.True(t, doc.Meta.Deleted)
	assert.Empty(t, doc.Fields)
	// The post-delete update is dropped and not recorded in history.
	assert.Len(t, doc.Meta.Entries, 2)
	// Tombstones stay in the set.
	assert.Equal(t, 1, set.Len())
}

func TestMaterializeOrderIndependent(t *testing.T) {
	inOrder := []entry.EntryRecord{
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 0}),
		record(t, "h2", 2, entry.ActionUpdate, []string{"h1"}, map[string]any{"a": 1}),
		record(t, "h3", 3, entry.ActionUpdate, []string{"h2"}, map[string]any{"a": 2}),
	}
	shuffled := []entry.EntryRecord{inOrder[2], inOrder[0], inOrder[1]}

	setA, err := Materialize(inOrder)
	require.NoError(t, err)
	setB, err := Materialize(shuffled)
	require.NoError(t, err)

	docA, _ := setA.Get("h1")
	docB, _ := setB.Get("h1")
	assert.Equal(t, docA.Fields, docB.Fields)
	assert.Equal(t, len(docA.Meta.Entries), len(docB.Meta.Entries))
}

func TestMaterializeDuplicateCreateFails(t *testing.T) {
	records := []entry.EntryRecord{
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 1}),
		record(t, "h1", 2, entry.ActionCreate, nil, map[string]any{"a": 2}),
	}

	set, err := Materialize(records)
	require.Error(t, err)
	assert.Nil(t, set)
	assert.True(t, IsDuplicateCreate(err))

	var fe *FoldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "h1", fe.DocumentID)
}

func TestMaterializeCreateOnTombstoneSkipped(t *testing.T) {
	records := []entry.EntryRecord{
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 1}),
		record(t, "h2", 2, entry.ActionDelete, []string{"h1"}, nil),
		record(t, "h1", 3, entry.ActionCreate, nil, map[string]any{"a": 2}),
	}

	set, err := Materialize(records)
	require.NoError(t, err)
	doc, _ := set.Get("h1")
	assert.True(t, doc.Meta.Deleted)
	assert.Len(t, doc.Meta.Entries, 2)
}

func TestMaterializeUnknownActionFails(t *testing.T) {
	records := []entry.EntryRecord{
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 1}),
		record(t, "h2", 2, entry.Action("rename"), []string{"h1"}, map[string]any{"a": 2}),
	}

	_, err := Materialize(records)
	require.Error(t, err)
	assert.True(t, IsUnhandledAction(err))
	assert.Contains(t, err.Error(), "rename")
}

func TestMaterializeDanglingPreviousSkipped(t *testing.T) {
	records := []entry.EntryRecord{
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 1}),
		record(t, "h2", 2, entry.ActionUpdate, []string{"missing"}, map[string]any{"a": 9}),
	}

	set, err := Materialize(records)
	require.NoError(t, err)
	doc, _ := set.Get("h1")
	assert.Equal(t, map[string]any{"a": int64(1)}, doc.Fields)
	assert.Len(t, doc.Meta.Entries, 1)
}

func TestMaterializeTargetResolvesThroughUpdates(t *testing.T) {
	// h3 names only the update as previous; ownership still resolves to h1.
	records := []entry.EntryRecord{
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 1}),
		record(t, "h2", 2, entry.ActionUpdate, []string{"h1"}, map[string]any{"b": 2}),
		record(t, "h3", 3, entry.ActionDelete, []string{"h2"}, nil),
	}

	set, err := Materialize(records)
	require.NoError(t, err)
	doc, _ := set.Get("h1")
	assert.True(t, doc.Meta.Deleted)
}

func TestMaterializeSetInsertionOrder(t *testing.T) {
	records := []entry.EntryRecord{
		record(t, "hb", 1, entry.ActionCreate, nil, map[string]any{"n": 1}),
		record(t, "ha", 2, entry.ActionCreate, nil, map[string]any{"n": 2}),
		record(t, "hc", 3, entry.ActionCreate, nil, map[string]any{"n": 3}),
	}

	set, err := Materialize(records)
	require.NoError(t, err)
	// First-create sighting order, not lexicographic.
	assert.Equal(t, []string{"hb", "ha", "hc"}, set.IDs())

	docs := set.Documents()
	require.Len(t, docs, 3)
	assert.Equal(t, "hb", docs[0].ID)
}

func TestMaterializeEmpty(t *testing.T) {
	set, err := Materialize(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Documents())
}

func TestMaterializeDoesNotMutateInput(t *testing.T) {
	records := []entry.EntryRecord{
		record(t, "h3", 3, entry.ActionUpdate, []string{"h1"}, map[string]any{"a": 2}),
		record(t, "h1", 1, entry.ActionCreate, nil, map[string]any{"a": 0}),
	}
	_, err := Materialize(records)
	require.NoError(t, err)

	// The input slice keeps its original order; the fold sorts a copy.
	assert.Equal(t, "h3", records[0].EntryHash)
	assert.Equal(t, "h1", records[1].EntryHash)
}
