package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skifflog/skiff/internal/fieldval"
)

// ValidationError collects all schema violations in one field map.
// Returning every violation at once gives better feedback than fail-fast.
type ValidationError struct {
	SchemaID   string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema %s: %s", e.SchemaID, strings.Join(e.Violations, "; "))
}

// Validate checks a tagged field map against the schema. With partial set
// (updates), the map may cover any subset of schema fields; without it
// (creates), every schema field must be present. Unknown fields and type
// mismatches are violations either way.
func (r *Registry) Validate(schemaID string, fields *fieldval.Map, partial bool) error {
	def, ok := r.byID[schemaID]
	if !ok {
		return &ValidationError{
			SchemaID:   schemaID,
			Violations: []string{"schema is not registered"},
		}
	}

	var violations []string
	for _, name := range fields.Keys() {
		want, declared := def.Fields[name]
		if !declared {
			violations = append(violations, fmt.Sprintf("field %q is not in the schema", name))
			continue
		}
		v, _ := fields.Get(name)
		if got := typeOf(v); got != want {
			violations = append(violations, fmt.Sprintf("field %q: want %s, got %s", name, want, got))
		}
	}

	if !partial {
		for name := range def.Fields {
			if _, present := fields.Get(name); !present {
				violations = append(violations, fmt.Sprintf("field %q is missing", name))
			}
		}
	}

	if len(violations) > 0 {
		// Stable order regardless of map iteration, so errors reproduce.
		sort.Strings(violations)
		return &ValidationError{SchemaID: schemaID, Violations: violations}
	}
	return nil
}
