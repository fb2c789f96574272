package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync"

	"github.com/maruel/ksid"
)

var (
	// ErrNotFound is returned when no row has the requested ID.
	ErrNotFound = errors.New("row not found")
	// ErrDuplicate is returned by Insert when a row with the same ID exists.
	ErrDuplicate = errors.New("row already exists")

	errZeroID = errors.New("row ID is zero")
)

// Row is implemented by the pointer-to-struct types stored in a Table.
type Row interface {
	GetID() ksid.ID
	Validate() error
}

// RawReader reads the raw stored JSON of one column, bypassing decoding.
type RawReader interface {
	// RawString returns the string stored in column for the row whose ID
	// encodes to key. ok is false when the row does not exist, the column is
	// absent or it holds null.
	RawString(key, column string) (s string, ok bool, err error)
}

// Hook observes row persistence.
type Hook[T Row] interface {
	// PreSave runs before row is marshaled. add is true for an insert. src
	// reflects the table content before this save.
	PreSave(src RawReader, row T, add bool) error
	// PostLoad runs after a row is decoded from its stored line.
	PostLoad(row T) error
}

// Table stores rows of type T in a JSONL file, keeping every raw line in
// memory. T must be a pointer to a struct.
type Table[T Row] struct {
	path    string
	elem    reflect.Type
	columns []Column
	log     *slog.Logger

	mu    sync.RWMutex
	rows  map[string]json.RawMessage
	hooks []Hook[T]
}

// Option configures a Table.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the table's logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewTable creates a new Table and loads all data from the file.
func NewTable[T Row](path string, opts ...Option) (*Table[T], error) {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	columns, err := schemaFromType[T]()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	t := &Table[T]{
		path:    path,
		elem:    reflect.TypeFor[T]().Elem(),
		columns: columns,
		log:     o.log,
	}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the JSONL file backing the table.
func (t *Table[T]) Path() string {
	return t.path
}

// Columns returns the schema of T.
func (t *Table[T]) Columns() []Column {
	return slices.Clone(t.columns)
}

// AddHook registers h. Hooks run in registration order.
func (t *Table[T]) AddHook(h Hook[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, h)
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Reload discards the in-memory rows and reads the file again.
func (t *Table[T]) Reload() error {
	rows, err := t.readFile()
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.rows = rows
	t.mu.Unlock()
	return nil
}

func (t *Table[T]) readFile() (map[string]json.RawMessage, error) {
	rows := map[string]json.RawMessage{}
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return rows, nil
		}
		return nil, fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(nil, 16<<20)
	first := true
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var h schemaHeader
			if err := json.Unmarshal(line, &h); err != nil {
				return nil, fmt.Errorf("failed to unmarshal schema header in %s: %w", t.path, err)
			}
			if err := h.Validate(); err != nil {
				return nil, fmt.Errorf("invalid schema header in %s: %w", t.path, err)
			}
			continue
		}
		row, err := t.decode(line)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		id := row.GetID()
		if id.IsZero() {
			return nil, fmt.Errorf("row in %s: %w", t.path, errZeroID)
		}
		rows[id.String()] = slices.Clone(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}
	return rows, nil
}

// Get decodes a fresh copy of the row with the given ID and runs the
// PostLoad hooks on it.
func (t *Table[T]) Get(id ksid.ID) (T, error) {
	t.mu.RLock()
	line, ok := t.rows[id.String()]
	hooks := t.hooks
	t.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.load(line, hooks)
}

// All iterates over fresh copies of all rows in ID order.
func (t *Table[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		t.mu.RLock()
		keys := t.sortedKeys()
		lines := make([]json.RawMessage, len(keys))
		for i, k := range keys {
			lines[i] = t.rows[k]
		}
		hooks := t.hooks
		t.mu.RUnlock()
		for _, line := range lines {
			if !yield(t.load(line, hooks)) {
				return
			}
		}
	}
}

// RawString implements RawReader.
func (t *Table[T]) RawString(key, column string) (string, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rawString(key, column)
}

func (t *Table[T]) rawString(key, column string) (string, bool, error) {
	line, ok := t.rows[key]
	if !ok {
		return "", false, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return "", false, fmt.Errorf("failed to read row %s: %w", key, err)
	}
	raw, ok := fields[column]
	if !ok || string(raw) == "null" {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, fmt.Errorf("column %q of row %s is not a string: %w", column, key, err)
	}
	return s, true, nil
}

// Insert adds a new row. It fails with ErrDuplicate if the ID exists.
func (t *Table[T]) Insert(row T) error {
	return t.write(row, func(exists bool) error {
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicate, row.GetID())
		}
		return nil
	})
}

// Update replaces an existing row. It fails with ErrNotFound otherwise.
func (t *Table[T]) Update(row T) error {
	return t.write(row, func(exists bool) error {
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, row.GetID())
		}
		return nil
	})
}

// Save inserts or updates row.
func (t *Table[T]) Save(row T) error {
	return t.write(row, func(bool) error { return nil })
}

// Delete removes the row with the given ID.
func (t *Table[T]) Delete(id ksid.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := id.String()
	prev, ok := t.rows[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(t.rows, key)
	if err := t.persist(); err != nil {
		t.rows[key] = prev
		return err
	}
	t.log.Debug("jsonldb: deleted row", "table", t.path, "id", key)
	return nil
}

// write runs the PreSave hooks, marshals row and persists the table. The
// write lock is held for the entire sequence.
func (t *Table[T]) write(row T, check func(exists bool) error) error {
	id := row.GetID()
	if id.IsZero() {
		return errZeroID
	}
	if err := row.Validate(); err != nil {
		return fmt.Errorf("invalid row %s: %w", id, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := id.String()
	prev, exists := t.rows[key]
	if err := check(exists); err != nil {
		return err
	}
	src := lockedReader[T]{t}
	for _, h := range t.hooks {
		if err := h.PreSave(src, row, !exists); err != nil {
			return err
		}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	t.rows[key] = data
	if err := t.persist(); err != nil {
		if exists {
			t.rows[key] = prev
		} else {
			delete(t.rows, key)
		}
		return err
	}
	t.log.Debug("jsonldb: saved row", "table", t.path, "id", key, "insert", !exists)
	return nil
}

// persist rewrites the whole file through a temporary file. Caller must hold
// the write lock.
func (t *Table[T]) persist() error {
	f, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	tmp := f.Name()
	if err := t.writeTo(f); err != nil {
		return errors.Join(err, f.Close(), os.Remove(tmp))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close table file: %w", err), os.Remove(tmp))
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return errors.Join(fmt.Errorf("failed to replace table file: %w", err), os.Remove(tmp))
	}
	return nil
}

func (t *Table[T]) writeTo(f *os.File) error {
	writer := bufio.NewWriter(f)
	header, err := json.Marshal(schemaHeader{Version: currentVersion, Columns: t.columns})
	if err != nil {
		return fmt.Errorf("failed to marshal schema header: %w", err)
	}
	lines := [][]byte{header}
	for _, k := range t.sortedKeys() {
		lines = append(lines, t.rows[k])
	}
	for _, data := range lines {
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

// sortedKeys returns the row keys in ID order. The ID encoding sorts
// lexicographically.
func (t *Table[T]) sortedKeys() []string {
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (t *Table[T]) decode(line []byte) (T, error) {
	row := reflect.New(t.elem).Interface().(T)
	if err := json.Unmarshal(line, row); err != nil {
		var zero T
		return zero, err
	}
	return row, nil
}

func (t *Table[T]) load(line []byte, hooks []Hook[T]) (T, error) {
	row, err := t.decode(line)
	if err != nil {
		return row, fmt.Errorf("failed to unmarshal row: %w", err)
	}
	for _, h := range hooks {
		if err := h.PostLoad(row); err != nil {
			var zero T
			return zero, err
		}
	}
	return row, nil
}

// lockedReader reads raw columns while the table's write lock is held.
type lockedReader[T Row] struct {
	t *Table[T]
}

func (r lockedReader[T]) RawString(key, column string) (string, bool, error) {
	return r.t.rawString(key, column)
}
