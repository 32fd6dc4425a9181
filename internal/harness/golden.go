package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/skifflog/skiff/internal/fieldval"
)

// RunWithGolden executes a scenario and compares the materialized document
// set against a golden file at testdata/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The snapshot is canonical JSON, so it is byte-stable across runs and
// platforms. Returns an error when the scenario itself fails to run; a
// snapshot mismatch fails the test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if result.FoldErr != nil {
		return result.FoldErr
	}

	snapshot, err := snapshotSet(result)
	if err != nil {
		return err
	}

	g := goldie.New(t)
	g.Assert(t, scenario.Name, snapshot)
	return nil
}

// snapshotSet serializes the document set to canonical JSON. Documents keep
// their first-create order.
func snapshotSet(result *Result) ([]byte, error) {
	docs := make([]any, 0, result.Set.Len())
	for _, doc := range result.Set.Documents() {
		docs = append(docs, map[string]any{
			"id":      doc.ID,
			"author":  doc.Meta.Author,
			"schema":  doc.Meta.Schema,
			"deleted": doc.Meta.Deleted,
			"edited":  doc.Meta.Edited,
			"entries": len(doc.Meta.Entries),
			"fields":  doc.Fields,
		})
	}
	return fieldval.MarshalCanonical(map[string]any{
		"scenario":  result.Scenario.Name,
		"documents": docs,
	})
}
