// Package jsonvalue implements a mutable JSON value as a tagged union.
//
// A [Value] is one of null, bool, int, float, string, array or object. Arrays
// and objects are reference types: copying a Value that holds an [*Array] or an
// [*Object] shares the underlying container, the same way a JSON decoder's
// map[string]any and []any would.
//
// Operators, comparisons and container mutators are dispatched through fixed
// per-variant tables (see [Binary] and [CallMutator]) instead of reflection.
package jsonvalue

import (
	"fmt"
	"iter"
	"math"
	"strings"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value variants.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsScalar returns true for null, bool, numbers and strings.
func (k Kind) IsScalar() bool {
	return k != KindArray && k != KindObject
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  *Array
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// ArrayOf returns a new array value holding items.
func ArrayOf(items ...Value) Value { return NewArray(items...).Value() }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull returns true if v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload, false for other kinds.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Int returns the integer payload. Floats are truncated, bools are 0 or 1.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	case KindBool:
		if v.b {
			return 1
		}
	}
	return 0
}

// Float returns the numeric payload as a float64.
func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt, KindBool:
		return float64(v.Int())
	}
	return 0
}

// Str returns the string payload, "" for other kinds.
func (v Value) Str() string { return v.s }

// Array returns the array payload, nil for other kinds.
func (v Value) Array() *Array { return v.arr }

// Object returns the object payload, nil for other kinds.
func (v Value) Object() *Object { return v.obj }

// String returns the string payload for strings and the JSON encoding for
// everything else.
func (v Value) String() string {
	if v.kind == KindString {
		return v.s
	}
	return v.Repr()
}

// Repr returns the JSON encoding of v. Values that cannot be encoded (NaN)
// are rendered with fmt.
func (v Value) Repr() string {
	b, err := Marshal(v)
	if err != nil {
		if v.kind == KindFloat {
			return fmt.Sprint(v.f)
		}
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(b)
}

// Truthy reports whether v is considered true: null, false, zero, the empty
// string and empty containers are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindArray:
		return v.arr.Len() != 0
	case KindObject:
		return v.obj.Len() != 0
	}
	return false
}

// Equal reports deep equality. Bools, ints and floats compare numerically,
// so true equals 1. Object key order is irrelevant.
func (v Value) Equal(o Value) bool {
	if v.isNumeric() && o.isNumeric() {
		if v.kind != KindFloat && o.kind != KindFloat {
			return v.Int() == o.Int()
		}
		return v.Float() == o.Float()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindArray:
		if v.arr == o.arr {
			return true
		}
		if v.arr.Len() != o.arr.Len() {
			return false
		}
		for i, item := range v.arr.items {
			if !item.Equal(o.arr.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if v.obj == o.obj {
			return true
		}
		if v.obj.Len() != o.obj.Len() {
			return false
		}
		for k, item := range v.obj.All() {
			other, ok := o.obj.Get(k)
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders v against o, returning -1, 0 or 1. Numbers and bools
// (as 0 and 1), strings and arrays (lexicographically) are ordered; anything
// else, including other mixed kinds, returns ErrNotSupported.
func (v Value) Compare(o Value) (int, error) {
	switch {
	case v.isNumeric() && o.isNumeric():
		if v.kind != KindFloat && o.kind != KindFloat {
			return cmpOrdered(v.Int(), o.Int()), nil
		}
		a, b := v.Float(), o.Float()
		if math.IsNaN(a) || math.IsNaN(b) {
			return 0, fmt.Errorf("%w: NaN is unordered", ErrNotSupported)
		}
		return cmpOrdered(a, b), nil
	case v.kind == KindString && o.kind == KindString:
		return strings.Compare(v.s, o.s), nil
	case v.kind == KindArray && o.kind == KindArray:
		n := min(v.arr.Len(), o.arr.Len())
		for i := range n {
			c, err := v.arr.items[i].Compare(o.arr.items[i])
			if err != nil || c != 0 {
				return c, err
			}
		}
		return cmpOrdered(v.arr.Len(), o.arr.Len()), nil
	}
	return 0, fmt.Errorf("%w: cannot order %s and %s", ErrNotSupported, v.kind, o.kind)
}

// Len returns the number of characters, items or keys.
func (v Value) Len() (int, error) {
	switch v.kind {
	case KindString:
		return utf8.RuneCountInString(v.s), nil
	case KindArray:
		return v.arr.Len(), nil
	case KindObject:
		return v.obj.Len(), nil
	}
	return 0, fmt.Errorf("%w: %s has no length", ErrNotSupported, v.kind)
}

// Contains reports membership: an equal item in an array, a key in an
// object, a substring in a string.
func (v Value) Contains(item Value) (bool, error) {
	switch v.kind {
	case KindArray:
		return v.arr.Index(item) >= 0, nil
	case KindObject:
		if item.kind != KindString {
			return false, nil
		}
		_, ok := v.obj.Get(item.s)
		return ok, nil
	case KindString:
		if item.kind != KindString {
			return false, fmt.Errorf("%w: 'in <string>' requires string as left operand, not %s", ErrNotSupported, item.kind)
		}
		return strings.Contains(v.s, item.s), nil
	}
	return false, fmt.Errorf("%w: %s is not a container", ErrNotSupported, v.kind)
}

// Iterate returns a new iterator over array items, object keys or string
// characters. Each call starts from the beginning.
func (v Value) Iterate() (iter.Seq[Value], error) {
	switch v.kind {
	case KindArray:
		a := v.arr
		return func(yield func(Value) bool) {
			for i := 0; i < len(a.items); i++ {
				if !yield(a.items[i]) {
					return
				}
			}
		}, nil
	case KindObject:
		keys := v.obj.Keys()
		return func(yield func(Value) bool) {
			for _, k := range keys {
				if !yield(String(k)) {
					return
				}
			}
		}, nil
	case KindString:
		s := v.s
		return func(yield func(Value) bool) {
			for _, r := range s {
				if !yield(String(string(r))) {
					return
				}
			}
		}, nil
	}
	return nil, fmt.Errorf("%w: %s is not iterable", ErrNotSupported, v.kind)
}

// Index returns v[key]. Objects take string keys, arrays and strings take
// integer indexes; negative indexes count from the end.
func (v Value) Index(key Value) (Value, error) {
	switch v.kind {
	case KindObject:
		if key.kind == KindString {
			if item, ok := v.obj.Get(key.s); ok {
				return item, nil
			}
		}
		return Value{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key.Repr())
	case KindArray:
		i, err := resolveIndex(key, v.arr.Len())
		if err != nil {
			return Value{}, err
		}
		return v.arr.items[i], nil
	case KindString:
		runes := []rune(v.s)
		i, err := resolveIndex(key, len(runes))
		if err != nil {
			return Value{}, err
		}
		return String(string(runes[i])), nil
	}
	return Value{}, fmt.Errorf("%w: %s is not subscriptable", ErrNotSupported, v.kind)
}

// SetIndex performs v[key] = item on an object or an array.
func (v Value) SetIndex(key, item Value) error {
	switch v.kind {
	case KindObject:
		if key.kind != KindString {
			return fmt.Errorf("%w: object keys must be strings, not %s", ErrNotSupported, key.kind)
		}
		v.obj.Set(key.s, item)
		return nil
	case KindArray:
		i, err := resolveIndex(key, v.arr.Len())
		if err != nil {
			return err
		}
		v.arr.items[i] = item
		return nil
	}
	return fmt.Errorf("%w: %s does not support item assignment", ErrNotSupported, v.kind)
}

// Neg returns -v.
func (v Value) Neg() (Value, error) {
	switch v.kind {
	case KindInt, KindBool:
		i := v.Int()
		if i == math.MinInt64 {
			return Value{}, fmt.Errorf("%w: -%d", ErrOverflow, i)
		}
		return Int(-i), nil
	case KindFloat:
		return Float(-v.f), nil
	}
	return Value{}, fmt.Errorf("%w: bad operand for unary -: %s", ErrNotSupported, v.kind)
}

// Pos returns +v. Bools become ints.
func (v Value) Pos() (Value, error) {
	switch v.kind {
	case KindInt, KindBool:
		return Int(v.Int()), nil
	case KindFloat:
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: bad operand for unary +: %s", ErrNotSupported, v.kind)
}

// Abs returns |v|.
func (v Value) Abs() (Value, error) {
	switch v.kind {
	case KindInt, KindBool:
		if i := v.Int(); i < 0 {
			return v.Neg()
		}
		return Int(v.Int()), nil
	case KindFloat:
		return Float(math.Abs(v.f)), nil
	}
	return Value{}, fmt.Errorf("%w: bad operand for abs(): %s", ErrNotSupported, v.kind)
}

// Invert returns ^v for integers.
func (v Value) Invert() (Value, error) {
	switch v.kind {
	case KindInt, KindBool:
		return Int(^v.Int()), nil
	}
	return Value{}, fmt.Errorf("%w: bad operand for unary ~: %s", ErrNotSupported, v.kind)
}

func (v Value) isNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// isNumeric includes bools, which order and compare as 0 and 1.
func (v Value) isNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat || v.kind == KindBool
}

// resolveIndex maps an integer index, possibly negative, into [0, n).
func resolveIndex(key Value, n int) (int, error) {
	if key.kind != KindInt && key.kind != KindBool {
		return 0, fmt.Errorf("%w: indices must be integers, not %s", ErrNotSupported, key.kind)
	}
	i := key.Int()
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, key.Int())
	}
	return int(i), nil
}

func cmpOrdered[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
