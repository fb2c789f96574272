package remotejson

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/maruel/remotejson/internal/jsonvalue"
)

// Column is the in-memory attribute of a remote JSON column in a row struct.
//
// It holds nil, a *Proxy, or a raw Go value assigned by the application and
// not yet saved. On the wire it is the column's stored form: null or a blob
// path. After Field.PreSave ran, the column marshals to exactly the value
// PreSave returned.
type Column struct {
	value    any
	prepared bool
	raw      *string
}

// NewColumn returns a column holding v.
func NewColumn(v any) Column {
	return Column{value: v}
}

// Set assigns v: nil, a *Proxy, or any JSON-compatible Go value.
func (c *Column) Set(v any) {
	c.value = v
	c.prepared = false
	c.raw = nil
}

// Value returns the assigned value.
func (c *Column) Value() any {
	return c.value
}

// Proxy returns the assigned value when it is a *Proxy.
func (c *Column) Proxy() *Proxy {
	p, _ := c.value.(*Proxy)
	return p
}

// IsNull reports whether nothing is assigned.
func (c *Column) IsNull() bool {
	return c.value == nil
}

// IsZero makes omitzero drop null columns.
func (c *Column) IsZero() bool {
	return c.value == nil
}

// ColumnType names the column type in the table schema.
func (*Column) ColumnType() string {
	return "remote_json"
}

// JSONSchema describes the stored form: a blob path or null.
//
// Value receiver: the schema reflector only looks at the field's own type.
func (Column) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{{Type: "string"}, {Type: "null"}},
	}
}

func (c *Column) prepare(v any, raw *string) {
	c.value = v
	c.prepared = true
	c.raw = raw
}

// MarshalJSON writes the stored form of the column.
//
// Value receiver so rows marshalled by value, which are not addressable,
// still write the stored form.
func (c Column) MarshalJSON() ([]byte, error) {
	raw := c.raw
	if !c.prepared {
		var err error
		if raw, err = Prep(c.value); err != nil {
			return nil, err
		}
	}
	if raw == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*raw)
}

// UnmarshalJSON keeps the stored form as is. Field.Load converts it.
func (c *Column) UnmarshalJSON(data []byte) error {
	v, err := jsonvalue.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConversion, err)
	}
	c.prepared = false
	c.raw = nil
	switch v.Kind() {
	case jsonvalue.KindNull:
		c.value = nil
	case jsonvalue.KindString:
		c.value = v.Str()
	default:
		c.value = v
	}
	return nil
}
