package harness

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/skifflog/skiff/internal/entry"
	"github.com/skifflog/skiff/internal/fieldval"
	"github.com/skifflog/skiff/internal/materialize"
)

// Result is the outcome of running one scenario.
type Result struct {
	Scenario *Scenario
	Set      *materialize.DocumentSet
	FoldErr  error

	// Failures lists assertion failures. Empty means the scenario passed.
	Failures []string
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run builds entry records from the scenario, materializes them, and
// evaluates the expectations.
func Run(scenario *Scenario) (*Result, error) {
	records, err := buildRecords(scenario)
	if err != nil {
		return nil, err
	}

	result := &Result{Scenario: scenario}
	result.Set, result.FoldErr = materialize.Materialize(records)
	result.Failures = evaluate(scenario, result)
	return result, nil
}

// buildRecords turns scenario steps into entry records. Refs stand in for
// entry hashes; the materializer treats hashes as opaque ids, so symbolic
// values exercise the same paths as real content addresses.
func buildRecords(scenario *Scenario) ([]entry.EntryRecord, error) {
	defaultSchema := ""
	for _, step := range scenario.Entries {
		if step.Schema != "" {
			defaultSchema = step.Schema
			break
		}
	}

	seqs := make(map[string]int64)
	records := make([]entry.EntryRecord, 0, len(scenario.Entries))
	for i, step := range scenario.Entries {
		ref := step.Ref
		if ref == "" {
			ref = fmt.Sprintf("entry-%d", i)
		}
		author := step.Author
		if author == "" {
			author = "author-1"
		}
		schemaID := step.Schema
		if schemaID == "" {
			schemaID = defaultSchema
		}
		seq := step.Seq
		if seq == 0 {
			seqs[author]++
			seq = seqs[author]
		} else if seq > seqs[author] {
			seqs[author] = seq
		}

		fields, err := fieldval.Tag(step.Fields)
		if err != nil {
			return nil, fmt.Errorf("entries[%d]: %w", i, err)
		}
		if fields.Len() == 0 {
			fields = nil
		}

		records = append(records, entry.EntryRecord{
			Author:    author,
			EntryHash: ref,
			SeqNum:    seq,
			Operation: entry.Operation{
				Action:   entry.Action(step.Action),
				SchemaID: schemaID,
				Previous: step.Previous,
				Fields:   fields,
			},
		})
	}
	return records, nil
}

func evaluate(scenario *Scenario, result *Result) []string {
	var failures []string

	if scenario.Expect.Error != "" {
		failures = append(failures, expectError(scenario.Expect.Error, result.FoldErr)...)
		return failures
	}
	if result.FoldErr != nil {
		return []string{fmt.Sprintf("unexpected fold error: %v", result.FoldErr)}
	}

	for _, want := range scenario.Expect.Documents {
		failures = append(failures, expectDocument(result.Set, want)...)
	}
	return failures
}

func expectError(code string, err error) []string {
	if err == nil {
		return []string{fmt.Sprintf("expected fold error %s, fold succeeded", code)}
	}
	var fe *materialize.FoldError
	if !errors.As(err, &fe) || string(fe.Code) != code {
		return []string{fmt.Sprintf("expected fold error %s, got %v", code, err)}
	}
	return nil
}

func expectDocument(set *materialize.DocumentSet, want ExpectedDocument) []string {
	doc, ok := set.Get(want.Ref)
	if !ok {
		return []string{fmt.Sprintf("document %q not materialized", want.Ref)}
	}

	var failures []string
	if doc.Meta.Deleted != want.Deleted {
		failures = append(failures, fmt.Sprintf("document %q: deleted = %v, want %v", want.Ref, doc.Meta.Deleted, want.Deleted))
	}
	if doc.Meta.Edited != want.Edited {
		failures = append(failures, fmt.Sprintf("document %q: edited = %v, want %v", want.Ref, doc.Meta.Edited, want.Edited))
	}
	if want.Entries != 0 && len(doc.Meta.Entries) != want.Entries {
		failures = append(failures, fmt.Sprintf("document %q: %d history entries, want %d", want.Ref, len(doc.Meta.Entries), want.Entries))
	}
	for name, wantVal := range want.Fields {
		gotVal, ok := doc.Fields[name]
		if !ok {
			failures = append(failures, fmt.Sprintf("document %q: field %q missing", want.Ref, name))
			continue
		}
		if !fieldEqual(gotVal, wantVal) {
			failures = append(failures, fmt.Sprintf("document %q: field %q = %v, want %v", want.Ref, name, gotVal, wantVal))
		}
	}
	return failures
}

// fieldEqual compares an untagged field value with a YAML scalar. YAML
// integers decode as int while untagged values are int64, so integers are
// normalized before comparison.
func fieldEqual(got, want any) bool {
	if g, ok := got.(int64); ok {
		if w, ok := want.(int); ok {
			return g == int64(w)
		}
	}
	return reflect.DeepEqual(got, want)
}
