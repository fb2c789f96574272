package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Parse decodes a single JSON document. Numbers without a fraction or an
// exponent become ints when they fit in int64; everything else becomes a
// float.
func Parse(data []byte) (Value, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a single JSON document from r.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after JSON document")
		}
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Useful for literals.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	switch t := tok.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return parseNumber(t)
	case json.Delim:
		switch t {
		case '[':
			arr := NewArray()
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr.Append(item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("invalid JSON: %w", err)
			}
			return arr.Value(), nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("invalid JSON: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("invalid JSON: object key %v is not a string", keyTok)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("invalid JSON: %w", err)
			}
			return obj.Value(), nil
		}
	}
	return Value{}, fmt.Errorf("invalid JSON: unexpected token %v", tok)
}

func parseNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("invalid JSON number %q: %w", s, err)
	}
	return Float(f), nil
}

// Marshal encodes v as compact JSON. Object keys keep their insertion order.
// Floats with an integral value keep a ".0" suffix so they decode as floats.
func Marshal(v Value) ([]byte, error) {
	return appendValue(nil, v)
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.b), nil
	case KindInt:
		return strconv.AppendInt(buf, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, v.f)
		}
		start := len(buf)
		buf = strconv.AppendFloat(buf, v.f, 'g', -1, 64)
		if !bytes.ContainsAny(buf[start:], ".e") {
			buf = append(buf, ".0"...)
		}
		return buf, nil
	case KindString:
		return appendString(buf, v.s), nil
	case KindArray:
		buf = append(buf, '[')
		for i, item := range v.arr.items {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendValue(buf, item); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case KindObject:
		buf = append(buf, '{')
		first := true
		for k, item := range v.obj.All() {
			if !first {
				buf = append(buf, ',')
			}
			first = false
			buf = appendString(buf, k)
			buf = append(buf, ':')
			var err error
			if buf, err = appendValue(buf, item); err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
		}
		return append(buf, '}'), nil
	}
	return nil, fmt.Errorf("%w: kind %s", ErrUnsupportedType, v.kind)
}

func appendString(buf []byte, s string) []byte {
	// json.Marshal of a string never fails.
	b, _ := json.Marshal(s)
	return append(buf, b...)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
