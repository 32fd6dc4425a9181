// Package harness provides a conformance testing framework for the
// document materializer. Scenarios are YAML files describing a batch of
// entries and the documents expected after folding them; golden snapshots
// pin the exact materialized output.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; the golden file shares it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Entries is the batch handed to the materializer, in the listed
	// order. The materializer sorts internally, so listing entries out of
	// seq order is a legitimate scenario.
	Entries []EntryStep `yaml:"entries"`

	// Expect describes the outcome.
	Expect Expectation `yaml:"expect"`
}

// EntryStep describes one entry record.
type EntryStep struct {
	// Ref is the symbolic entry hash. Other steps reference it in
	// previous, and expectations reference it as a document id. Defaults
	// to "entry-<index>".
	Ref string `yaml:"ref,omitempty"`

	// Author is a symbolic author key. Defaults to "author-1".
	Author string `yaml:"author,omitempty"`

	// Action is the operation action. Unknown values are passed through
	// verbatim so scenarios can exercise the unhandled-action failure.
	Action string `yaml:"action"`

	// Schema is the schema id. Steps without one inherit the scenario's
	// first schema.
	Schema string `yaml:"schema,omitempty"`

	// Seq is the entry's sequence number. Defaults to the step's position
	// within its author's entries, starting at 1.
	Seq int64 `yaml:"seq,omitempty"`

	// Previous lists refs of the causal tips for update/delete.
	Previous []string `yaml:"previous,omitempty"`

	// Fields is the raw field map for create/update.
	Fields map[string]any `yaml:"fields,omitempty"`
}

// Expectation describes the expected fold outcome.
type Expectation struct {
	// Error is the expected fold error code ("DUPLICATE_CREATE",
	// "UNHANDLED_ACTION"). Empty means the fold must succeed.
	Error string `yaml:"error,omitempty"`

	// Documents are the expected documents, in first-create order.
	Documents []ExpectedDocument `yaml:"documents,omitempty"`
}

// ExpectedDocument is a subset assertion on one materialized document.
type ExpectedDocument struct {
	// Ref is the create entry's ref (the document id).
	Ref string `yaml:"ref"`

	Deleted bool `yaml:"deleted,omitempty"`
	Edited  bool `yaml:"edited,omitempty"`

	// Entries is the expected history length. Zero means "don't check".
	Entries int `yaml:"entries,omitempty"`

	// Fields are expected visible field values. Subset match - only the
	// listed fields are compared.
	Fields map[string]any `yaml:"fields,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown YAML fields
// (typos) and missing required fields are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}

	if err := scenario.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Entries) == 0 {
		return fmt.Errorf("at least one entry is required")
	}
	refs := make(map[string]bool)
	for i, step := range s.Entries {
		if step.Action == "" {
			return fmt.Errorf("entries[%d]: action is required", i)
		}
		if step.Ref != "" {
			if refs[step.Ref] {
				return fmt.Errorf("entries[%d]: duplicate ref %q", i, step.Ref)
			}
			refs[step.Ref] = true
		}
	}
	return nil
}
