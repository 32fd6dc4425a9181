// Package schema loads document schema definitions from CUE files and
// validates field maps against them before anything is signed. Validation
// here is a convenience for fast feedback; the node remains the authority.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/skifflog/skiff/internal/fieldval"
)

// FieldType names a wire field type in a schema definition.
type FieldType string

const (
	TypeText         FieldType = "str"
	TypeInt          FieldType = "int"
	TypeFloat        FieldType = "float"
	TypeBool         FieldType = "bool"
	TypeRelation     FieldType = "relation"
	TypeRelationList FieldType = "relation_list"
)

// ValidFieldTypes defines the allowed type strings in schema files.
var ValidFieldTypes = map[FieldType]bool{
	TypeText:         true,
	TypeInt:          true,
	TypeFloat:        true,
	TypeBool:         true,
	TypeRelation:     true,
	TypeRelationList: true,
}

// Definition is one parsed document schema.
type Definition struct {
	// Name is the declaration label in the CUE file.
	Name string

	// ID is the schema id documents reference on the wire.
	ID string

	// Fields maps field names to their declared types.
	Fields map[string]FieldType
}

// Registry holds parsed schemas indexed by schema id.
type Registry struct {
	byID map[string]*Definition
}

// SchemaError is a schema file problem with source position.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadDir parses every .cue file in dir into one registry.
// Duplicate schema ids across files are an error.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".cue") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .cue schema files in %s", dir)
	}
	sort.Strings(files)

	reg := &Registry{byID: make(map[string]*Definition)}
	ctx := cuecontext.New()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema file: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		if err := reg.addAll(v); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// addAll parses every definition under the top-level "schema" struct.
func (r *Registry) addAll(v cue.Value) error {
	schemaVal := v.LookupPath(cue.ParsePath("schema"))
	if !schemaVal.Exists() {
		return &SchemaError{
			Field:   "schema",
			Message: "file declares no schema struct",
			Pos:     v.Pos(),
		}
	}

	iter, err := schemaVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		def, err := parseDefinition(iter.Selector().String(), iter.Value())
		if err != nil {
			return err
		}
		if _, dup := r.byID[def.ID]; dup {
			return &SchemaError{
				Field:   def.Name,
				Message: fmt.Sprintf("duplicate schema id %q", def.ID),
				Pos:     iter.Value().Pos(),
			}
		}
		r.byID[def.ID] = def
	}
	return nil
}

func parseDefinition(name string, v cue.Value) (*Definition, error) {
	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return nil, &SchemaError{
			Field:   name + ".id",
			Message: "schema id is required",
			Pos:     v.Pos(),
		}
	}
	id, err := idVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &SchemaError{
			Field:   name + ".fields",
			Message: "at least one field is required",
			Pos:     v.Pos(),
		}
	}

	def := &Definition{Name: name, ID: id, Fields: make(map[string]FieldType)}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		fieldName := iter.Selector().String()
		typeStr, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		ft := FieldType(typeStr)
		if !ValidFieldTypes[ft] {
			return nil, &SchemaError{
				Field:   fmt.Sprintf("%s.fields.%s", name, fieldName),
				Message: fmt.Sprintf("invalid field type %q", typeStr),
				Pos:     iter.Value().Pos(),
			}
		}
		def.Fields[fieldName] = ft
	}
	if len(def.Fields) == 0 {
		return nil, &SchemaError{
			Field:   name + ".fields",
			Message: "at least one field is required",
			Pos:     fieldsVal.Pos(),
		}
	}
	return def, nil
}

// Get returns the definition for a schema id.
func (r *Registry) Get(schemaID string) (*Definition, bool) {
	def, ok := r.byID[schemaID]
	return def, ok
}

// IDs returns all registered schema ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &SchemaError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// typeOf maps a tagged value to its schema field type.
func typeOf(v fieldval.Value) FieldType {
	switch v.(type) {
	case fieldval.Text:
		return TypeText
	case fieldval.Int, fieldval.BigInt:
		return TypeInt
	case fieldval.Float:
		return TypeFloat
	case fieldval.Bool:
		return TypeBool
	case fieldval.Relation:
		return TypeRelation
	case fieldval.RelationList:
		return TypeRelationList
	default:
		return ""
	}
}
