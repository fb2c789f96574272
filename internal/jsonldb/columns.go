// Handles schema definition, column types, and reflection-based schema generation.

package jsonldb

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/maruel/ksid"
)

var errSchemaVersionRequired = errors.New("schema version is required")

// currentVersion is the current version of the JSONL table format.
const currentVersion = "1.0"

// ColumnType represents the type of a table column.
type ColumnType string

// Builtin column types.
const (
	ColumnTypeID     ColumnType = "id"
	ColumnTypeText   ColumnType = "text"
	ColumnTypeNumber ColumnType = "number"
	ColumnTypeBool   ColumnType = "bool"
	ColumnTypeDate   ColumnType = "date"
	ColumnTypeJSONB  ColumnType = "jsonb"
)

// ColumnTyper is implemented by field types that declare their own column
// type, for example a field whose content lives outside the table.
type ColumnTyper interface {
	ColumnType() string
}

// Column describes a table column in the schema header.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

// schemaHeader is the first row of a JSONL data file.
type schemaHeader struct {
	Version string   `json:"version"`
	Columns []Column `json:"columns"`
}

// Validate checks that the schema header is well-formed.
func (h *schemaHeader) Validate() error {
	if h.Version == "" {
		return errSchemaVersionRequired
	}
	for i, col := range h.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d: name is required", i)
		}
		if col.Type == "" {
			return fmt.Errorf("column %d: type is required", i)
		}
	}
	return nil
}

// schemaFromType extracts column definitions using JSON Schema reflection.
//
// Descriptions come from `jsonschema:"description=..."` tags and required
// fields from the generated schema. T must be a pointer to a struct.
func schemaFromType[T any]() ([]Column, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("row type must be a pointer to struct, got %s", t)
	}
	structType := t.Elem()

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(structType)

	required := make(map[string]bool)
	for _, name := range schema.Required {
		required[name] = true
	}

	var columns []Column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		colType := ColumnTypeText
		for i := range structType.NumField() {
			field := structType.Field(i)
			if jsonFieldName(&field) == name {
				colType = goTypeToColumnType(field.Type)
				break
			}
		}
		columns = append(columns, Column{
			Name:        name,
			Type:        colType,
			Required:    required[name],
			Description: pair.Value.Description,
		})
	}
	return columns, nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

// goTypeToColumnType maps Go types to JSONL column types.
func goTypeToColumnType(t reflect.Type) ColumnType {
	if t.Implements(reflect.TypeFor[ColumnTyper]()) {
		return ColumnType(reflect.Zero(t).Interface().(ColumnTyper).ColumnType())
	}
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(reflect.TypeFor[ColumnTyper]()) {
		return ColumnType(reflect.New(t).Interface().(ColumnTyper).ColumnType())
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case reflect.TypeFor[ksid.ID]():
		return ColumnTypeID
	case reflect.TypeFor[time.Time]():
		return ColumnTypeDate
	}

	switch t.Kind() { //nolint:exhaustive // Everything else is stored as text.
	case reflect.Bool:
		return ColumnTypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ColumnTypeNumber
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return ColumnTypeJSONB
	}
	return ColumnTypeText
}
