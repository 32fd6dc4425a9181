package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skifflog/skiff/internal/fieldval"
)

func TestParseAction(t *testing.T) {
	for _, s := range []string{"create", "update", "delete"} {
		a, err := ParseAction(s)
		require.NoError(t, err)
		assert.Equal(t, Action(s), a)
	}

	a, err := ParseAction("rename")
	require.Error(t, err)
	// Returned verbatim so callers can report what they saw.
	assert.Equal(t, Action("rename"), a)
}

func TestLogPositionValidate(t *testing.T) {
	tests := []struct {
		name    string
		pos     LogPosition
		wantErr bool
	}{
		{"first entry", LogPosition{LogID: 1, SeqNum: 1}, false},
		{"later entry", LogPosition{LogID: 1, SeqNum: 2, Backlink: "aa"}, false},
		{"with skiplink", LogPosition{LogID: 1, SeqNum: 4, Backlink: "aa", Skiplink: "bb"}, false},
		{"zero seq", LogPosition{LogID: 1, SeqNum: 0}, true},
		{"negative seq", LogPosition{LogID: 1, SeqNum: -5}, true},
		{"first with backlink", LogPosition{LogID: 1, SeqNum: 1, Backlink: "aa"}, true},
		{"first with skiplink", LogPosition{LogID: 1, SeqNum: 1, Skiplink: "bb"}, true},
		{"later without backlink", LogPosition{LogID: 1, SeqNum: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pos.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func fields(t *testing.T, raw map[string]any) *fieldval.Map {
	t.Helper()
	m, err := fieldval.Tag(raw)
	require.NoError(t, err)
	return m
}

func TestOperationValidateCreate(t *testing.T) {
	op := Operation{
		Action:   ActionCreate,
		SchemaID: "posts_0020",
		Fields:   fields(t, map[string]any{"title": "hi"}),
	}
	assert.Empty(t, op.Validate())

	op.Fields = nil
	errs := op.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "fields", errs[0].Field)

	op.Fields = fields(t, map[string]any{"title": "hi"})
	op.Previous = []string{"aa"}
	errs = op.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "previousOperations", errs[0].Field)
}

func TestOperationValidateUpdate(t *testing.T) {
	op := Operation{
		Action:   ActionUpdate,
		SchemaID: "posts_0020",
		Previous: []string{"aa"},
		Fields:   fields(t, map[string]any{"title": "new"}),
	}
	assert.Empty(t, op.Validate())

	op.Previous = nil
	op.Fields = nil
	errs := op.Validate()
	assert.Len(t, errs, 2)
}

func TestOperationValidateDelete(t *testing.T) {
	op := Operation{
		Action:   ActionDelete,
		SchemaID: "posts_0020",
		Previous: []string{"aa"},
	}
	assert.Empty(t, op.Validate())

	op.Fields = fields(t, map[string]any{"title": "x"})
	errs := op.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "fields", errs[0].Field)
}

func TestOperationValidateCollectsAll(t *testing.T) {
	op := Operation{Action: Action("rename")}
	errs := op.Validate()
	// Unknown action and missing schema id are both reported.
	assert.Len(t, errs, 2)
}
