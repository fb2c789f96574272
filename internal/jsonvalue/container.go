package jsonvalue

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Array is a mutable JSON array. Use a pointer; the zero Array is empty.
type Array struct {
	items []Value
}

// NewArray returns an array holding items.
func NewArray(items ...Value) *Array {
	return &Array{items: append([]Value(nil), items...)}
}

// Value wraps the array in a Value sharing the same storage.
func (a *Array) Value() Value {
	return Value{kind: KindArray, arr: a}
}

// Len returns the number of items.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns the i-th item. It panics if i is out of range.
func (a *Array) At(i int) Value {
	return a.items[i]
}

// Items returns a copy of the item slice.
func (a *Array) Items() []Value {
	return append([]Value(nil), a.items...)
}

// Append adds items at the end.
func (a *Array) Append(items ...Value) {
	a.items = append(a.items, items...)
}

// Index returns the position of the first item equal to v, or -1.
func (a *Array) Index(v Value) int {
	if a == nil {
		return -1
	}
	for i, item := range a.items {
		if item.Equal(v) {
			return i
		}
	}
	return -1
}

// Object is a mutable JSON object preserving key insertion order.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Value]()}
}

// Value wraps the object in a Value sharing the same storage.
func (o *Object) Value() Value {
	return Value{kind: KindObject, obj: o}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Get returns the value stored at key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return Value{}, false
	}
	return o.m.Get(key)
}

// Set stores v at key. A new key is appended; an existing key keeps its
// position.
func (o *Object) Set(key string, v Value) {
	if o.m == nil {
		o.m = orderedmap.New[string, Value]()
	}
	o.m.Set(key, v)
}

// Delete removes key and returns the value it held.
func (o *Object) Delete(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return Value{}, false
	}
	return o.m.Delete(key)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	for k := range o.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates over key/value pairs in insertion order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil || o.m == nil {
			return
		}
		for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// clone returns a shallow copy: nested containers are shared.
func (o *Object) clone() *Object {
	c := NewObject()
	for k, v := range o.All() {
		c.m.Set(k, v)
	}
	return c
}

// newest returns the most recently inserted pair.
func (o *Object) newest() (string, Value, bool) {
	if o.Len() == 0 {
		return "", Value{}, false
	}
	p := o.m.Newest()
	return p.Key, p.Value, true
}
