package jsonvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// FromGo converts a Go value into a Value.
//
// Accepted: nil, Value, *Array, *Object, bool, all integer and float kinds,
// string, json.Number, json.RawMessage, json.Marshaler, and slices, arrays
// and string-keyed maps of accepted values. Pointers are followed. Anything
// else (structs, channels, funcs, byte slices, maps with non-string keys,
// sets expressed as map[T]struct{}) returns ErrUnsupportedType.
func FromGo(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Value{}, nil
		}
		return *t, nil
	case *Array:
		if t == nil {
			return Value{}, nil
		}
		return t.Value(), nil
	case *Object:
		if t == nil {
			return Value{}, nil
		}
		return t.Value(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case json.Number:
		return parseNumber(t)
	case json.RawMessage:
		return Parse(t)
	case []byte:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	case []any:
		arr := &Array{items: make([]Value, 0, len(t))}
		for i, item := range t {
			c, err := FromGo(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			arr.items = append(arr.items, c)
		}
		return arr.Value(), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			c, err := FromGo(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			obj.Set(k, c)
		}
		return obj.Value(), nil
	case json.Marshaler:
		b, err := t.MarshalJSON()
		if err != nil {
			return Value{}, err
		}
		return Parse(b)
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() { //nolint:exhaustive // Everything else is unsupported.
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Value{}, nil
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d", ErrOverflow, u)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Value{}, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
		}
		arr := &Array{items: make([]Value, 0, rv.Len())}
		for i := range rv.Len() {
			c, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			arr.items = append(arr.items, c)
		}
		return arr.Value(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
		}
		if rv.IsNil() {
			return Value{}, nil
		}
		if rv.Type().Elem().Kind() == reflect.Struct && rv.Type().Elem().NumField() == 0 {
			return Value{}, fmt.Errorf("%w: set %s", ErrUnsupportedType, rv.Type())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			c, err := FromGo(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			obj.Set(k, c)
		}
		return obj.Value(), nil
	}
	if !rv.IsValid() {
		return Value{}, nil
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

// Interface converts v to plain Go values: nil, bool, int64, float64,
// string, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr.items))
		for i, item := range v.arr.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for k, item := range v.obj.All() {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}
