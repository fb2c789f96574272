package remotejson

import (
	"errors"
	"fmt"
	"iter"

	"github.com/maruel/remotejson/internal/blobstore"
	"github.com/maruel/remotejson/internal/jsonvalue"
)

var errNoBlobStore = errors.New("remote JSON value has a path but no blob store")

// Proxy is a JSON value that may live in a blob store.
//
// A Proxy is either loaded, holding its value in memory, or lazy, holding
// only the path of the blob to read on first access. Every accessor loads
// the value first. Mutations made through the Proxy (Set, SetIndex, mutator
// calls, in-place operators) mark it dirty until MarkSaved is called.
//
// Mutating a container obtained through Get or Index does not mark the Proxy
// dirty: only the Proxy's own methods track changes.
//
// A Proxy is not safe for concurrent use.
type Proxy struct {
	store    blobstore.Store
	path     string
	loaded   bool
	value    jsonvalue.Value
	dirty    bool
	mutators map[string]*Mutator
}

// New returns a Proxy holding v that has never been saved. A non-null v
// marks the Proxy dirty.
func New(v jsonvalue.Value) *Proxy {
	return &Proxy{
		loaded: !v.IsNull(),
		value:  v,
		dirty:  !v.IsNull(),
	}
}

// Open returns a lazy Proxy reading path from store on first access.
func Open(store blobstore.Store, path string) *Proxy {
	return &Proxy{store: store, path: path}
}

// NewSaved returns a loaded Proxy for a value already stored at path.
func NewSaved(store blobstore.Store, path string, v jsonvalue.Value) *Proxy {
	return &Proxy{store: store, path: path, loaded: true, value: v}
}

// Path returns the blob path, empty until one is assigned.
func (p *Proxy) Path() string {
	return p.path
}

// Loaded reports whether the value is in memory.
func (p *Proxy) Loaded() bool {
	return p.loaded
}

// isNull reports whether p holds null without loading it: a Proxy created
// from null, or a loaded one whose value is null.
func (p *Proxy) isNull() bool {
	if p.loaded {
		return p.value.IsNull()
	}
	return p.path == ""
}

// NeedsSave reports whether the value changed since it was last saved.
func (p *Proxy) NeedsSave() bool {
	return p.dirty
}

// MarkSaved clears the dirty flag.
func (p *Proxy) MarkSaved() {
	p.dirty = false
}

func (p *Proxy) ensureLoaded() error {
	if p.loaded || p.path == "" {
		return nil
	}
	if p.store == nil {
		return fmt.Errorf("%w: %s", errNoBlobStore, p.path)
	}
	r, err := p.store.Open(p.path)
	if err != nil {
		return err
	}
	v, err := jsonvalue.Decode(r)
	if err = errors.Join(err, r.Close()); err != nil {
		return fmt.Errorf("failed to load %s: %w", p.path, err)
	}
	p.value = v
	p.loaded = true
	return nil
}

// Get returns the current value.
func (p *Proxy) Get() (jsonvalue.Value, error) {
	if err := p.ensureLoaded(); err != nil {
		return jsonvalue.Value{}, err
	}
	return p.value, nil
}

// Set replaces the value and marks the Proxy dirty.
func (p *Proxy) Set(v jsonvalue.Value) {
	p.value = v
	p.loaded = true
	p.dirty = true
}

// Kind returns the variant of the current value.
func (p *Proxy) Kind() (jsonvalue.Kind, error) {
	if err := p.ensureLoaded(); err != nil {
		return jsonvalue.KindNull, err
	}
	return p.value.Kind(), nil
}

// AsObject returns the value as an object.
func (p *Proxy) AsObject() (*jsonvalue.Object, error) {
	if err := p.ensureLoaded(); err != nil {
		return nil, err
	}
	if p.value.Kind() != jsonvalue.KindObject {
		return nil, fmt.Errorf("%w: %s is not an object", jsonvalue.ErrNotSupported, p.value.Kind())
	}
	return p.value.Object(), nil
}

// AsArray returns the value as an array.
func (p *Proxy) AsArray() (*jsonvalue.Array, error) {
	if err := p.ensureLoaded(); err != nil {
		return nil, err
	}
	if p.value.Kind() != jsonvalue.KindArray {
		return nil, fmt.Errorf("%w: %s is not an array", jsonvalue.ErrNotSupported, p.value.Kind())
	}
	return p.value.Array(), nil
}

// AsScalar returns the value when it is null, a bool, a number or a string.
func (p *Proxy) AsScalar() (jsonvalue.Value, error) {
	if err := p.ensureLoaded(); err != nil {
		return jsonvalue.Value{}, err
	}
	if !p.value.Kind().IsScalar() {
		return jsonvalue.Value{}, fmt.Errorf("%w: %s is not a scalar", jsonvalue.ErrNotSupported, p.value.Kind())
	}
	return p.value, nil
}

// Index returns value[key]. A null value has no keys.
func (p *Proxy) Index(key jsonvalue.Value) (jsonvalue.Value, error) {
	if err := p.ensureLoaded(); err != nil {
		return jsonvalue.Value{}, err
	}
	if p.value.IsNull() {
		return jsonvalue.Value{}, fmt.Errorf("%w: %s", jsonvalue.ErrKeyNotFound, key.Repr())
	}
	return p.value.Index(key)
}

// SetIndex performs value[key] = item and marks the Proxy dirty. A null
// value is first replaced by an empty object.
func (p *Proxy) SetIndex(key, item jsonvalue.Value) error {
	if err := p.ensureLoaded(); err != nil {
		return err
	}
	if p.value.IsNull() {
		p.value = jsonvalue.NewObject().Value()
		p.loaded = true
	}
	if err := p.value.SetIndex(key, item); err != nil {
		return err
	}
	p.dirty = true
	return nil
}

// Mutator is a container method bound to a Proxy. Calling it marks the Proxy
// dirty.
type Mutator struct {
	p    *Proxy
	name string
}

// Name returns the method name.
func (m *Mutator) Name() string {
	return m.name
}

// Call invokes the method on the Proxy's current value.
func (m *Mutator) Call(args ...jsonvalue.Value) (jsonvalue.Value, error) {
	if err := m.p.ensureLoaded(); err != nil {
		return jsonvalue.Value{}, err
	}
	out, err := jsonvalue.CallMutator(m.p.value, m.name, args...)
	if err != nil {
		return jsonvalue.Value{}, err
	}
	m.p.dirty = true
	return out, nil
}

// Mutator returns the named mutator. Repeated calls with the same name return
// the same *Mutator. It fails with jsonvalue.ErrNoAttribute when the current
// value has no such method.
func (p *Proxy) Mutator(name string) (*Mutator, error) {
	if err := p.ensureLoaded(); err != nil {
		return nil, err
	}
	if !jsonvalue.HasMutator(name, p.value.Kind()) {
		return nil, fmt.Errorf("%w: %s has no %q", jsonvalue.ErrNoAttribute, p.value.Kind(), name)
	}
	if m, ok := p.mutators[name]; ok {
		return m, nil
	}
	if p.mutators == nil {
		p.mutators = make(map[string]*Mutator)
	}
	m := &Mutator{p: p, name: name}
	p.mutators[name] = m
	return m, nil
}

// Call is shorthand for Mutator(name) followed by Call(args...).
func (p *Proxy) Call(name string, args ...jsonvalue.Value) (jsonvalue.Value, error) {
	m, err := p.Mutator(name)
	if err != nil {
		return jsonvalue.Value{}, err
	}
	return m.Call(args...)
}

// Equal reports whether the value equals o.
func (p *Proxy) Equal(o jsonvalue.Value) (bool, error) {
	if err := p.ensureLoaded(); err != nil {
		return false, err
	}
	return p.value.Equal(o), nil
}

// Compare orders the value against o.
func (p *Proxy) Compare(o jsonvalue.Value) (int, error) {
	if err := p.ensureLoaded(); err != nil {
		return 0, err
	}
	return p.value.Compare(o)
}

// Truthy reports the value's truthiness.
func (p *Proxy) Truthy() (bool, error) {
	if err := p.ensureLoaded(); err != nil {
		return false, err
	}
	return p.value.Truthy(), nil
}

// Str returns the string conversion of the value.
func (p *Proxy) Str() (string, error) {
	if err := p.ensureLoaded(); err != nil {
		return "", err
	}
	return p.value.String(), nil
}

// Repr returns the JSON representation of the value.
func (p *Proxy) Repr() (string, error) {
	if err := p.ensureLoaded(); err != nil {
		return "", err
	}
	return p.value.Repr(), nil
}

// String implements fmt.Stringer. A load failure is rendered inline.
func (p *Proxy) String() string {
	s, err := p.Str()
	if err != nil {
		return fmt.Sprintf("<remotejson %s: %v>", p.path, err)
	}
	return s
}

// Len returns the number of characters, items or keys.
func (p *Proxy) Len() (int, error) {
	if err := p.ensureLoaded(); err != nil {
		return 0, err
	}
	return p.value.Len()
}

// Contains reports membership of item in the value.
func (p *Proxy) Contains(item jsonvalue.Value) (bool, error) {
	if err := p.ensureLoaded(); err != nil {
		return false, err
	}
	return p.value.Contains(item)
}

// Iterate returns a new iterator over the value. Each call starts over.
func (p *Proxy) Iterate() (iter.Seq[jsonvalue.Value], error) {
	if err := p.ensureLoaded(); err != nil {
		return nil, err
	}
	return p.value.Iterate()
}

// Binary returns value op other. An error wrapping jsonvalue.ErrNotSupported
// means the value's variant has no such operator; the caller may then try
// the operator reflected on other.
func (p *Proxy) Binary(op jsonvalue.Op, other jsonvalue.Value) (jsonvalue.Value, error) {
	if err := p.ensureLoaded(); err != nil {
		return jsonvalue.Value{}, err
	}
	return jsonvalue.Binary(op, p.value, other)
}

// Reflected returns other op value.
func (p *Proxy) Reflected(op jsonvalue.Op, other jsonvalue.Value) (jsonvalue.Value, error) {
	if err := p.ensureLoaded(); err != nil {
		return jsonvalue.Value{}, err
	}
	return jsonvalue.Reflected(op, p.value, other)
}

// InPlace performs value op= other, adopts the result, marks the Proxy dirty
// and returns p itself. Containers with a true in-place variant are mutated
// where they are.
func (p *Proxy) InPlace(op jsonvalue.Op, other jsonvalue.Value) (*Proxy, error) {
	if err := p.ensureLoaded(); err != nil {
		return nil, err
	}
	out, err := jsonvalue.InPlace(op, p.value, other)
	if err != nil {
		return nil, err
	}
	p.value = out
	p.loaded = true
	p.dirty = true
	return p, nil
}

// Neg returns -value.
func (p *Proxy) Neg() (jsonvalue.Value, error) {
	return p.unary(jsonvalue.Value.Neg)
}

// Pos returns +value.
func (p *Proxy) Pos() (jsonvalue.Value, error) {
	return p.unary(jsonvalue.Value.Pos)
}

// Abs returns |value|.
func (p *Proxy) Abs() (jsonvalue.Value, error) {
	return p.unary(jsonvalue.Value.Abs)
}

// Invert returns ^value.
func (p *Proxy) Invert() (jsonvalue.Value, error) {
	return p.unary(jsonvalue.Value.Invert)
}

func (p *Proxy) unary(f func(jsonvalue.Value) (jsonvalue.Value, error)) (jsonvalue.Value, error) {
	if err := p.ensureLoaded(); err != nil {
		return jsonvalue.Value{}, err
	}
	return f(p.value)
}
