package remotejson

import (
	"github.com/maruel/remotejson/internal/jsonldb"
)

// TableRow is a jsonldb row that also exposes its identity as a string.
type TableRow interface {
	jsonldb.Row
	Row
}

// Binding attaches a Field to one Column of a jsonldb.Table's rows.
type Binding[T TableRow] struct {
	field  *Field
	column func(T) *Column
}

// Bind registers f on table. column returns the row's Column for f.
func Bind[T TableRow](table *jsonldb.Table[T], f *Field, column func(T) *Column) *Binding[T] {
	b := &Binding[T]{field: f, column: column}
	table.AddHook(b)
	return b
}

// Field returns the bound field.
func (b *Binding[T]) Field() *Field {
	return b.field
}

// PreSave implements jsonldb.Hook.
func (b *Binding[T]) PreSave(src jsonldb.RawReader, row T, add bool) error {
	_, err := b.field.PreSave(src, row, b.column(row), add)
	return err
}

// PostLoad implements jsonldb.Hook.
func (b *Binding[T]) PostLoad(row T) error {
	return b.field.Load(b.column(row))
}

// UsedPaths returns the blob paths referenced by the rows of table.
func (b *Binding[T]) UsedPaths(table *jsonldb.Table[T]) (map[string]bool, error) {
	used := map[string]bool{}
	for row, err := range table.All() {
		if err != nil {
			return nil, err
		}
		if p := b.column(row).Proxy(); p != nil && p.Path() != "" {
			used[p.Path()] = true
		}
	}
	return used, nil
}
