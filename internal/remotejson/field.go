package remotejson

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maruel/remotejson/internal/blobstore"
	"github.com/maruel/remotejson/internal/jsonvalue"
)

var (
	// ErrConversion is returned when a stored column value has no JSON shape.
	ErrConversion = errors.New("cannot convert stored value")
	// ErrSerialization is returned when an assigned value cannot be encoded
	// as JSON.
	ErrSerialization = errors.New("value is not JSON serializable")
	// ErrUnsupportedAssignment is returned when an assigned value cannot be
	// written to the column as is.
	ErrUnsupportedAssignment = errors.New("unsupported value for remote JSON column")
)

// Row identifies the row a Field is saved for.
type Row interface {
	// RowKey returns the row identity, empty while the row has none.
	RowKey() string
}

// RawSource reads the currently stored raw string of a column.
type RawSource interface {
	RawString(key, column string) (s string, ok bool, err error)
}

// PathFunc maps a generated file name to the blob path used for row.
type PathFunc func(row Row, filename string) string

// Field stores the JSON content of a column in a blob store, keeping only
// the blob path in the row.
type Field struct {
	name     string
	store    blobstore.Store
	pathFunc PathFunc
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Field.
type Option func(*Field)

// WithPathFunc sets the function turning a generated file name into a blob
// path, for example to add a directory. The default keeps the file name.
func WithPathFunc(f PathFunc) Option {
	return func(fl *Field) { fl.pathFunc = f }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(fl *Field) { fl.log = l }
}

// WithClock sets the time source used in generated paths.
func WithClock(now func() time.Time) Option {
	return func(fl *Field) { fl.now = now }
}

// NewField returns a field for column name stored in store. name must be
// the column's JSON name in the row.
func NewField(name string, store blobstore.Store, opts ...Option) *Field {
	f := &Field{
		name:     name,
		store:    store,
		pathFunc: func(_ Row, filename string) string { return filename },
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the column name.
func (f *Field) Name() string {
	return f.name
}

// Store returns the blob store.
func (f *Field) Store() blobstore.Store {
	return f.store
}

// GeneratePath returns a new blob path for row.
func (f *Field) GeneratePath(row Row) string {
	return f.pathFunc(row, filename(f.now(), row.RowKey()))
}

// PreSave reconciles the column's blob with its assigned value before the
// row is written, and returns the raw value to store in the column.
//
// The path already stored for the row is reused, otherwise a new one is
// generated. A null value (nil, a null *Proxy, or a Go value converting to
// null) deletes the stored blob and leaves the column null. An unmodified *Proxy is
// not written again. Anything else is serialized, the previous blob is
// deleted, and the new content is saved. Afterwards col holds a saved
// *Proxy, or nil.
func (f *Field) PreSave(src RawSource, row Row, col *Column, add bool) (*string, error) {
	var existing string
	var hasExisting bool
	if key := row.RowKey(); key != "" {
		var err error
		if existing, hasExisting, err = src.RawString(key, f.name); err != nil {
			return nil, err
		}
		hasExisting = hasExisting && existing != ""
	}
	target := existing
	if !hasExisting {
		target = f.GeneratePath(row)
	}

	var proxy *Proxy
	var value jsonvalue.Value
	switch v := col.Value().(type) {
	case nil:
	case *Proxy:
		if v.isNull() {
			break
		}
		if v.store == nil {
			v.store = f.store
		}
		if v.path == "" {
			v.path = target
		}
		if !v.NeedsSave() {
			path := v.path
			col.prepare(v, &path)
			f.log.Debug("remotejson: unchanged", "column", f.name, "path", path)
			return &path, nil
		}
		var err error
		if value, err = v.Get(); err != nil {
			return nil, err
		}
		proxy = v
	default:
		var err error
		if value, err = jsonvalue.FromGo(v); err != nil {
			return nil, fmt.Errorf("%w: column %s: %w", ErrSerialization, f.name, err)
		}
	}
	// A null value is stored as a null column, never as a "null" blob.
	if value.IsNull() {
		if hasExisting {
			if err := f.store.Delete(target); err != nil {
				return nil, err
			}
			f.log.Debug("remotejson: deleted blob", "column", f.name, "path", target)
		}
		col.prepare(nil, nil)
		return nil, nil
	}
	content, err := jsonvalue.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: %w", ErrSerialization, f.name, err)
	}

	if hasExisting {
		if err := f.store.Delete(target); err != nil {
			return nil, err
		}
	}
	saved, err := f.store.Save(target, content)
	if err != nil {
		return nil, err
	}
	if saved != "" {
		target = saved
	}
	f.log.Debug("remotejson: saved blob", "column", f.name, "path", target, "bytes", len(content), "insert", add)

	if proxy == nil {
		proxy = NewSaved(f.store, target, value)
	} else {
		proxy.MarkSaved()
	}
	col.prepare(proxy, &target)
	return &target, nil
}

// FromDB converts a stored column value into its in-memory form: nil, or a
// *Proxy. A string shaped like a generated path becomes a lazy Proxy; any
// other string, and any JSON container or scalar, becomes a loaded Proxy.
func (f *Field) FromDB(raw any) (*Proxy, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case *Proxy:
		return t, nil
	case string:
		return f.fromString(t), nil
	case jsonvalue.Value:
		switch t.Kind() {
		case jsonvalue.KindNull:
			return nil, nil
		case jsonvalue.KindString:
			return f.fromString(t.Str()), nil
		}
		return New(t), nil
	}
	v, err := jsonvalue.FromGo(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %w", ErrConversion, raw, err)
	}
	if v.IsNull() {
		return nil, nil
	}
	return New(v), nil
}

func (f *Field) fromString(s string) *Proxy {
	if IsPath(s) {
		return Open(f.store, s)
	}
	return New(jsonvalue.String(s))
}

// Prep returns the raw column value for v: a string as is, nil as null, a
// *Proxy as its path.
func Prep(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &t, nil
	case *Proxy:
		if t.path == "" {
			return nil, nil
		}
		path := t.path
		return &path, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedAssignment, v)
}

// Load converts the stored value held by col into its in-memory form.
func (f *Field) Load(col *Column) error {
	p, err := f.FromDB(col.Value())
	if err != nil {
		return err
	}
	if p == nil {
		col.Set(nil)
		return nil
	}
	if p.store == nil {
		p.store = f.store
	}
	col.Set(p)
	return nil
}
