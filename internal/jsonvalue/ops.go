package jsonvalue

import (
	"fmt"
	"math"
	"strings"
)

// Op is an arithmetic or bitwise binary operator.
type Op uint8

// Supported operators.
const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpMatMul
	OpTrueDiv
	OpFloorDiv
	OpMod
	OpPow
	OpLShift
	OpRShift
	OpAnd
	OpXor
	OpOr
	numOps
)

type opFunc func(a, b Value) (Value, error)

// opEntry describes one operator. inPlace lists the variants that mutate the
// left operand instead of producing a new value; other variants fall back to
// binary.
type opEntry struct {
	binary  opFunc
	inPlace map[Kind]opFunc
}

// Names and symbols live apart from ops: the operator functions format
// errors with them, and ops refers to those functions.
var (
	opNames = [numOps]string{
		OpAdd: "add", OpSub: "sub", OpMul: "mul", OpMatMul: "matmul",
		OpTrueDiv: "truediv", OpFloorDiv: "floordiv", OpMod: "mod", OpPow: "pow",
		OpLShift: "lshift", OpRShift: "rshift", OpAnd: "and", OpXor: "xor", OpOr: "or",
	}
	opSymbols = [numOps]string{
		OpAdd: "+", OpSub: "-", OpMul: "*", OpMatMul: "@",
		OpTrueDiv: "/", OpFloorDiv: "//", OpMod: "%", OpPow: "**",
		OpLShift: "<<", OpRShift: ">>", OpAnd: "&", OpXor: "^", OpOr: "|",
	}
)

var ops = [numOps]opEntry{
	OpAdd:      {binary: add, inPlace: map[Kind]opFunc{KindArray: extendInPlace}},
	OpSub:      {binary: sub},
	OpMul:      {binary: mul, inPlace: map[Kind]opFunc{KindArray: repeatInPlace}},
	OpMatMul:   {binary: matmul},
	OpTrueDiv:  {binary: trueDiv},
	OpFloorDiv: {binary: floorDiv},
	OpMod:      {binary: mod},
	OpPow:      {binary: pow},
	OpLShift:   {binary: lshift},
	OpRShift:   {binary: rshift},
	OpAnd:      {binary: bitAnd},
	OpXor:      {binary: bitXor},
	OpOr:       {binary: bitOr, inPlace: map[Kind]opFunc{KindObject: updateInPlace}},
}

// Ops returns all operators in table order.
func Ops() []Op {
	out := make([]Op, numOps)
	for i := range out {
		out[i] = Op(i)
	}
	return out
}

func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Symbol returns the operator's infix spelling.
func (op Op) Symbol() string {
	if op < numOps {
		return opSymbols[op]
	}
	return "?"
}

// Binary returns a op b. An ErrNotSupported error means the operator is not
// defined for these operand kinds.
func Binary(op Op, a, b Value) (Value, error) {
	if op >= numOps {
		return Value{}, fmt.Errorf("%w: %s", ErrNotSupported, op)
	}
	return ops[op].binary(a, b)
}

// Reflected evaluates the operator with self as the right operand: other op self.
func Reflected(op Op, self, other Value) (Value, error) {
	return Binary(op, other, self)
}

// HasInPlace reports whether op mutates values of kind k in place.
func HasInPlace(op Op, k Kind) bool {
	return op < numOps && ops[op].inPlace[k] != nil
}

// InPlace evaluates a op= b. When a's variant has a true in-place form, a's
// container is mutated and returned; otherwise the binary result is returned.
func InPlace(op Op, a, b Value) (Value, error) {
	if op >= numOps {
		return Value{}, fmt.Errorf("%w: %s", ErrNotSupported, op)
	}
	if f := ops[op].inPlace[a.kind]; f != nil {
		return f(a, b)
	}
	return ops[op].binary(a, b)
}

func unsupported(op Op, a, b Value) error {
	return fmt.Errorf("%w: unsupported operand kinds for %s: %s and %s", ErrNotSupported, op.Symbol(), a.kind, b.kind)
}

// asInt returns the integer payload of ints and bools.
func asInt(v Value) (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindBool:
		return v.Int(), true
	}
	return 0, false
}

// numbers classifies a pair of numeric operands. Bools count as integers.
// bothInt is true when neither operand is a float.
func numbers(a, b Value) (bothInt, ok bool) {
	isNum := func(v Value) bool { return v.kind == KindInt || v.kind == KindFloat || v.kind == KindBool }
	if !isNum(a) || !isNum(b) {
		return false, false
	}
	return a.kind != KindFloat && b.kind != KindFloat, true
}

func add(a, b Value) (Value, error) {
	if bothInt, ok := numbers(a, b); ok {
		if !bothInt {
			return Float(a.Float() + b.Float()), nil
		}
		x, y := a.Int(), b.Int()
		s := x + y
		if (s > x) != (y > 0) {
			return Value{}, fmt.Errorf("%w: %d + %d", ErrOverflow, x, y)
		}
		return Int(s), nil
	}
	switch {
	case a.kind == KindString && b.kind == KindString:
		return String(a.s + b.s), nil
	case a.kind == KindArray && b.kind == KindArray:
		items := make([]Value, 0, a.arr.Len()+b.arr.Len())
		items = append(items, a.arr.items...)
		items = append(items, b.arr.items...)
		return (&Array{items: items}).Value(), nil
	}
	return Value{}, unsupported(OpAdd, a, b)
}

func sub(a, b Value) (Value, error) {
	bothInt, ok := numbers(a, b)
	if !ok {
		return Value{}, unsupported(OpSub, a, b)
	}
	if !bothInt {
		return Float(a.Float() - b.Float()), nil
	}
	x, y := a.Int(), b.Int()
	d := x - y
	if (d < x) != (y > 0) {
		return Value{}, fmt.Errorf("%w: %d - %d", ErrOverflow, x, y)
	}
	return Int(d), nil
}

func mul(a, b Value) (Value, error) {
	if bothInt, ok := numbers(a, b); ok {
		if !bothInt {
			return Float(a.Float() * b.Float()), nil
		}
		p, err := mulInt(a.Int(), b.Int())
		if err != nil {
			return Value{}, err
		}
		return Int(p), nil
	}
	seq, n := a, b
	if _, ok := asInt(seq); ok {
		seq, n = b, a
	}
	count, ok := asInt(n)
	if !ok {
		return Value{}, unsupported(OpMul, a, b)
	}
	switch seq.kind {
	case KindString:
		n, err := repeatLen(len(seq.s), count)
		if err != nil {
			return Value{}, err
		}
		if n == 0 {
			return String(""), nil
		}
		return String(strings.Repeat(seq.s, int(count))), nil
	case KindArray:
		items, err := repeatItems(seq.arr.items, count)
		if err != nil {
			return Value{}, err
		}
		return (&Array{items: items}).Value(), nil
	}
	return Value{}, unsupported(OpMul, a, b)
}

func matmul(a, b Value) (Value, error) {
	return Value{}, unsupported(OpMatMul, a, b)
}

func trueDiv(a, b Value) (Value, error) {
	if _, ok := numbers(a, b); !ok {
		return Value{}, unsupported(OpTrueDiv, a, b)
	}
	if b.Float() == 0 {
		return Value{}, fmt.Errorf("%w: %s / %s", ErrDivisionByZero, a.Repr(), b.Repr())
	}
	return Float(a.Float() / b.Float()), nil
}

func floorDiv(a, b Value) (Value, error) {
	bothInt, ok := numbers(a, b)
	if !ok {
		return Value{}, unsupported(OpFloorDiv, a, b)
	}
	if b.Float() == 0 {
		return Value{}, fmt.Errorf("%w: %s // %s", ErrDivisionByZero, a.Repr(), b.Repr())
	}
	if !bothInt {
		return Float(math.Floor(a.Float() / b.Float())), nil
	}
	x, y := a.Int(), b.Int()
	if x == math.MinInt64 && y == -1 {
		return Value{}, fmt.Errorf("%w: %d // %d", ErrOverflow, x, y)
	}
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return Int(q), nil
}

func mod(a, b Value) (Value, error) {
	bothInt, ok := numbers(a, b)
	if !ok {
		return Value{}, unsupported(OpMod, a, b)
	}
	if b.Float() == 0 {
		return Value{}, fmt.Errorf("%w: %s %% %s", ErrDivisionByZero, a.Repr(), b.Repr())
	}
	if !bothInt {
		x, y := a.Float(), b.Float()
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return Float(r), nil
	}
	x, y := a.Int(), b.Int()
	if y == -1 {
		return Int(0), nil
	}
	r := x % y
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return Int(r), nil
}

func pow(a, b Value) (Value, error) {
	bothInt, ok := numbers(a, b)
	if !ok {
		return Value{}, unsupported(OpPow, a, b)
	}
	if bothInt && b.Int() >= 0 {
		base, exp := a.Int(), b.Int()
		result := int64(1)
		for exp > 0 {
			var err error
			if exp&1 == 1 {
				if result, err = mulInt(result, base); err != nil {
					return Value{}, err
				}
			}
			exp >>= 1
			if exp > 0 {
				if base, err = mulInt(base, base); err != nil {
					return Value{}, err
				}
			}
		}
		return Int(result), nil
	}
	x, y := a.Float(), b.Float()
	if x == 0 && y < 0 {
		return Value{}, fmt.Errorf("%w: 0 cannot be raised to a negative power", ErrDivisionByZero)
	}
	if x < 0 && y != math.Trunc(y) {
		return Value{}, fmt.Errorf("%w: negative number raised to a fractional power", ErrNotSupported)
	}
	return Float(math.Pow(x, y)), nil
}

func shiftOperands(op Op, a, b Value) (int64, int64, error) {
	x, okA := asInt(a)
	n, okB := asInt(b)
	if !okA || !okB {
		return 0, 0, unsupported(op, a, b)
	}
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: negative shift count", ErrBadArguments)
	}
	return x, n, nil
}

func lshift(a, b Value) (Value, error) {
	x, n, err := shiftOperands(OpLShift, a, b)
	if err != nil {
		return Value{}, err
	}
	if x == 0 {
		return Int(0), nil
	}
	if n >= 63 || (x<<n)>>n != x {
		return Value{}, fmt.Errorf("%w: %d << %d", ErrOverflow, x, n)
	}
	return Int(x << n), nil
}

func rshift(a, b Value) (Value, error) {
	x, n, err := shiftOperands(OpRShift, a, b)
	if err != nil {
		return Value{}, err
	}
	if n >= 63 {
		n = 63
	}
	return Int(x >> n), nil
}

func bitwise(op Op, a, b Value, fb func(x, y bool) bool, fi func(x, y int64) int64) (Value, error) {
	if a.kind == KindBool && b.kind == KindBool {
		return Bool(fb(a.b, b.b)), nil
	}
	x, okA := asInt(a)
	y, okB := asInt(b)
	if !okA || !okB {
		return Value{}, unsupported(op, a, b)
	}
	return Int(fi(x, y)), nil
}

func bitAnd(a, b Value) (Value, error) {
	return bitwise(OpAnd, a, b, func(x, y bool) bool { return x && y }, func(x, y int64) int64 { return x & y })
}

func bitXor(a, b Value) (Value, error) {
	return bitwise(OpXor, a, b, func(x, y bool) bool { return x != y }, func(x, y int64) int64 { return x ^ y })
}

func bitOr(a, b Value) (Value, error) {
	if a.kind == KindObject && b.kind == KindObject {
		merged := a.obj.clone()
		for k, v := range b.obj.All() {
			merged.Set(k, v)
		}
		return merged.Value(), nil
	}
	return bitwise(OpOr, a, b, func(x, y bool) bool { return x || y }, func(x, y int64) int64 { return x | y })
}

// In-place variants.

func extendInPlace(a, b Value) (Value, error) {
	items, err := iterItems(b)
	if err != nil {
		return Value{}, fmt.Errorf("%w: can only concatenate an iterable to array, not %s", ErrNotSupported, b.kind)
	}
	a.arr.Append(items...)
	return a, nil
}

func repeatInPlace(a, b Value) (Value, error) {
	count, ok := asInt(b)
	if !ok {
		return Value{}, unsupported(OpMul, a, b)
	}
	items, err := repeatItems(a.arr.items, count)
	if err != nil {
		return Value{}, err
	}
	a.arr.items = items
	return a, nil
}

func updateInPlace(a, b Value) (Value, error) {
	if b.kind != KindObject {
		return Value{}, unsupported(OpOr, a, b)
	}
	for k, v := range b.obj.All() {
		a.obj.Set(k, v)
	}
	return a, nil
}

// iterItems materializes what iterating v yields.
func iterItems(v Value) ([]Value, error) {
	seq, err := v.Iterate()
	if err != nil {
		return nil, err
	}
	var out []Value
	for item := range seq {
		out = append(out, item)
	}
	return out, nil
}

// maxRepeatLen bounds the length of a repeated string or array.
const maxRepeatLen = 1 << 30

// repeatLen returns the length of n elements repeated count times. A
// negative count repeats zero times.
func repeatLen(n int, count int64) (int, error) {
	if n == 0 || count <= 0 {
		return 0, nil
	}
	if count > int64(maxRepeatLen/n) {
		return 0, fmt.Errorf("%w: repeating %d items %d times", ErrOverflow, n, count)
	}
	return n * int(count), nil
}

func repeatItems(items []Value, count int64) ([]Value, error) {
	total, err := repeatLen(len(items), count)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, total)
	for len(out) < total {
		out = append(out, items...)
	}
	return out, nil
}

func mulInt(x, y int64) (int64, error) {
	if x == 0 || y == 0 {
		return 0, nil
	}
	p := x * y
	if p/y != x || (x == math.MinInt64 && y == -1) {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, x, y)
	}
	return p, nil
}
