package jsonvalue

import "errors"

// Errors returned by Value operations. They are wrapped with details; test
// with errors.Is.
var (
	// ErrKeyNotFound is returned when reading a missing object key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrIndexOutOfRange is returned for an array or string index past the end.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNotSupported is returned when an operation is not defined for the
	// operand kinds. Binary operators return it so that the caller can try
	// the other operand's reflected form.
	ErrNotSupported = errors.New("operation not supported")
	// ErrNoAttribute is returned when calling a mutator the value kind lacks.
	ErrNoAttribute = errors.New("no such mutator")
	// ErrBadArguments is returned when a mutator receives the wrong arguments.
	ErrBadArguments = errors.New("bad arguments")
	// ErrValueNotFound is returned by remove when the item is absent.
	ErrValueNotFound = errors.New("value not found")
	// ErrDivisionByZero is returned by division, modulo and negative powers of zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrOverflow is returned when integer arithmetic overflows int64.
	ErrOverflow = errors.New("integer overflow")
	// ErrUnsupportedType is returned when a Go value has no JSON shape.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrUnsupportedValue is returned when encoding NaN or an infinity.
	ErrUnsupportedValue = errors.New("unsupported value")
)
