package jsonvalue

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
)

func TestParseMarshal(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tests := []struct {
			name string
			in   string
			want string
			kind Kind
		}{
			{"null", `null`, `null`, KindNull},
			{"true", `true`, `true`, KindBool},
			{"int", `123`, `123`, KindInt},
			{"negative int", `-7`, `-7`, KindInt},
			{"float", `1.23`, `1.23`, KindFloat},
			{"integral float", `2.0`, `2.0`, KindFloat},
			{"exponent", `1e3`, `1000.0`, KindFloat},
			{"huge int becomes float", `123456789012345678901234567890`, `1.2345678901234568e+29`, KindFloat},
			{"string", `"s"`, `"s"`, KindString},
			{"array", `[1, 2, [3]]`, `[1,2,[3]]`, KindArray},
			{"object keeps order", `{"b": 1, "a": {"z": null}}`, `{"b":1,"a":{"z":null}}`, KindObject},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				v, err := Parse([]byte(tt.in))
				if err != nil {
					t.Fatalf("Parse(%q) error = %v", tt.in, err)
				}
				if v.Kind() != tt.kind {
					t.Errorf("Kind() = %s, want %s", v.Kind(), tt.kind)
				}
				got, err := Marshal(v)
				if err != nil {
					t.Fatalf("Marshal() error = %v", err)
				}
				if string(got) != tt.want {
					t.Errorf("Marshal() = %s, want %s", got, tt.want)
				}
			})
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{``, `{`, `[1,`, `{"a" 1}`, `1 2`, `nul`} {
			if _, err := Parse([]byte(in)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", in)
			}
		}
	})

	t.Run("NaN", func(t *testing.T) {
		_, err := Marshal(ArrayOf(Float(math.NaN())))
		if !errors.Is(err, ErrUnsupportedValue) {
			t.Errorf("Marshal(NaN) error = %v, want ErrUnsupportedValue", err)
		}
	})

	t.Run("encoding/json", func(t *testing.T) {
		var doc struct {
			Data Value `json:"data"`
		}
		if err := json.Unmarshal([]byte(`{"data":{"x":[1,2.5]}}`), &doc); err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != `{"data":{"x":[1,2.5]}}` {
			t.Errorf("round trip = %s", b)
		}
	})
}

func TestEqualCompare(t *testing.T) {
	t.Run("Equal", func(t *testing.T) {
		tests := []struct {
			a, b string
			want bool
		}{
			{`1`, `1.0`, true},
			{`1`, `2`, false},
			{`true`, `1`, true},
			{`false`, `0.0`, true},
			{`true`, `2`, false},
			{`[true]`, `[1]`, true},
			{`null`, `null`, true},
			{`"a"`, `"a"`, true},
			{`[1,[2]]`, `[1,[2]]`, true},
			{`[1,2]`, `[2,1]`, false},
			{`{"a":1,"b":2}`, `{"b":2,"a":1}`, true},
			{`{"a":1}`, `{"a":1,"b":2}`, false},
			{`{"a":1}`, `[1]`, false},
		}
		for _, tt := range tests {
			if got := MustParse(tt.a).Equal(MustParse(tt.b)); got != tt.want {
				t.Errorf("%s == %s: got %v, want %v", tt.a, tt.b, got, tt.want)
			}
		}
	})

	t.Run("Compare", func(t *testing.T) {
		tests := []struct {
			a, b string
			want int
		}{
			{`10`, `20`, -1},
			{`10`, `10.0`, 0},
			{`2.5`, `2`, 1},
			{`"a"`, `"b"`, -1},
			{`[1,2]`, `[1,3]`, -1},
			{`[1,2]`, `[1]`, 1},
			{`false`, `true`, -1},
			{`true`, `1`, 0},
			{`true`, `2`, -1},
			{`1.5`, `true`, 1},
		}
		for _, tt := range tests {
			got, err := MustParse(tt.a).Compare(MustParse(tt.b))
			if err != nil {
				t.Fatalf("Compare(%s, %s) error = %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		}
		for _, pair := range [][2]string{{`1`, `"1"`}, {`{}`, `{}`}, {`null`, `null`}, {`true`, `"1"`}} {
			if _, err := MustParse(pair[0]).Compare(MustParse(pair[1])); !errors.Is(err, ErrNotSupported) {
				t.Errorf("Compare(%s, %s) error = %v, want ErrNotSupported", pair[0], pair[1], err)
			}
		}
	})

	t.Run("Truthy", func(t *testing.T) {
		for in, want := range map[string]bool{
			`null`: false, `false`: false, `0`: false, `0.0`: false, `""`: false, `[]`: false, `{}`: false,
			`true`: true, `1`: true, `"x"`: true, `[0]`: true, `{"a":null}`: true,
		} {
			if got := MustParse(in).Truthy(); got != want {
				t.Errorf("Truthy(%s) = %v, want %v", in, got, want)
			}
		}
	})
}

func TestContainer(t *testing.T) {
	t.Run("Index", func(t *testing.T) {
		v := MustParse(`{"a":[10,20,30],"s":"héllo"}`)
		arr, err := v.Index(String("a"))
		if err != nil {
			t.Fatal(err)
		}
		last, err := arr.Index(Int(-1))
		if err != nil || !last.Equal(Int(30)) {
			t.Errorf("a[-1] = %v, %v", last, err)
		}
		if _, err := arr.Index(Int(3)); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("a[3] error = %v", err)
		}
		if _, err := v.Index(String("missing")); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("missing key error = %v", err)
		}
		s, _ := v.Index(String("s"))
		c, err := s.Index(Int(1))
		if err != nil || c.Str() != "é" {
			t.Errorf("s[1] = %v, %v", c, err)
		}
		if _, err := Int(1).Index(Int(0)); !errors.Is(err, ErrNotSupported) {
			t.Errorf("int index error = %v", err)
		}
	})

	t.Run("SetIndex shares nested containers", func(t *testing.T) {
		v := MustParse(`{"nested":{"x":1}}`)
		nested, _ := v.Index(String("nested"))
		if err := nested.SetIndex(String("y"), Int(2)); err != nil {
			t.Fatal(err)
		}
		if got := v.Repr(); got != `{"nested":{"x":1,"y":2}}` {
			t.Errorf("after nested SetIndex = %s", got)
		}
		if err := String("s").SetIndex(Int(0), String("x")); !errors.Is(err, ErrNotSupported) {
			t.Errorf("string SetIndex error = %v", err)
		}
	})

	t.Run("Len Contains", func(t *testing.T) {
		v := MustParse(`{"a":1,"b":2}`)
		if n, _ := v.Len(); n != 2 {
			t.Errorf("Len = %d", n)
		}
		if ok, _ := v.Contains(String("a")); !ok {
			t.Error("object should contain key a")
		}
		if ok, _ := MustParse(`[1,"x"]`).Contains(String("x")); !ok {
			t.Error("array should contain x")
		}
		if ok, _ := String("hello").Contains(String("ell")); !ok {
			t.Error("string should contain substring")
		}
		if _, err := Int(1).Len(); !errors.Is(err, ErrNotSupported) {
			t.Errorf("Len(int) error = %v", err)
		}
	})

	t.Run("Iterate restarts", func(t *testing.T) {
		seq, err := MustParse(`{"k1":1,"k2":2}`).Iterate()
		if err != nil {
			t.Fatal(err)
		}
		for range 2 {
			var keys []string
			for k := range seq {
				keys = append(keys, k.Str())
			}
			if !slices.Equal(keys, []string{"k1", "k2"}) {
				t.Errorf("keys = %v", keys)
			}
		}
		if _, err := Float(1).Iterate(); !errors.Is(err, ErrNotSupported) {
			t.Errorf("Iterate(float) error = %v", err)
		}
	})
}

func TestOps(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		for op := range numOps {
			if op.String() == "" || op.Symbol() == "" || ops[op].binary == nil {
				t.Errorf("Op(%d) = %q %q, binary set: %t", op, op.String(), op.Symbol(), ops[op].binary != nil)
			}
		}
		// Operator errors name the operator through the same tables.
		_, err := Binary(OpMatMul, Int(1), Int(2))
		if err == nil || !strings.Contains(err.Error(), "@") {
			t.Errorf("1 @ 2 error = %v", err)
		}
	})
	t.Run("Binary", func(t *testing.T) {
		tests := []struct {
			op   Op
			a, b string
			want string
		}{
			{OpAdd, `10`, `5`, `15`},
			{OpAdd, `1`, `0.5`, `1.5`},
			{OpAdd, `true`, `1`, `2`},
			{OpAdd, `"ab"`, `"cd"`, `"abcd"`},
			{OpAdd, `[1]`, `[2]`, `[1,2]`},
			{OpSub, `10`, `15`, `-5`},
			{OpMul, `3`, `4`, `12`},
			{OpMul, `"ab"`, `3`, `"ababab"`},
			{OpMul, `2`, `[0]`, `[0,0]`},
			{OpMul, `[1]`, `-1`, `[]`},
			{OpMul, `"ab"`, `0`, `""`},
			{OpMul, `"ab"`, `-3`, `""`},
			{OpMul, `[1,2]`, `0`, `[]`},
			{OpMul, `true`, `"x"`, `"x"`},
			{OpMul, `""`, `4611686018427387904`, `""`},
			{OpMul, `[]`, `4611686018427387904`, `[]`},
			{OpTrueDiv, `7`, `2`, `3.5`},
			{OpTrueDiv, `4`, `2`, `2.0`},
			{OpFloorDiv, `7`, `2`, `3`},
			{OpFloorDiv, `-7`, `2`, `-4`},
			{OpFloorDiv, `7.5`, `2`, `3.0`},
			{OpMod, `-7`, `3`, `2`},
			{OpMod, `7`, `-3`, `-2`},
			{OpMod, `-1.5`, `1`, `0.5`},
			{OpPow, `2`, `10`, `1024`},
			{OpPow, `2`, `-1`, `0.5`},
			{OpPow, `4`, `0.5`, `2.0`},
			{OpLShift, `1`, `4`, `16`},
			{OpRShift, `-16`, `2`, `-4`},
			{OpAnd, `12`, `10`, `8`},
			{OpXor, `12`, `10`, `6`},
			{OpOr, `12`, `10`, `14`},
			{OpAnd, `true`, `false`, `false`},
			{OpOr, `{"a":1}`, `{"b":2,"a":3}`, `{"a":3,"b":2}`},
		}
		for _, tt := range tests {
			t.Run(tt.a+tt.op.Symbol()+tt.b, func(t *testing.T) {
				got, err := Binary(tt.op, MustParse(tt.a), MustParse(tt.b))
				if err != nil {
					t.Fatalf("error = %v", err)
				}
				if got.Repr() != tt.want {
					t.Errorf("got %s, want %s", got.Repr(), tt.want)
				}
			})
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			op   Op
			a, b string
			want error
		}{
			{OpAdd, `{}`, `{}`, ErrNotSupported},
			{OpAdd, `"a"`, `1`, ErrNotSupported},
			{OpSub, `"a"`, `"b"`, ErrNotSupported},
			{OpMatMul, `[1]`, `[1]`, ErrNotSupported},
			{OpTrueDiv, `1`, `0`, ErrDivisionByZero},
			{OpFloorDiv, `1`, `0.0`, ErrDivisionByZero},
			{OpMod, `1`, `0`, ErrDivisionByZero},
			{OpPow, `0`, `-1`, ErrDivisionByZero},
			{OpAdd, `9223372036854775807`, `1`, ErrOverflow},
			{OpMul, `9223372036854775807`, `2`, ErrOverflow},
			{OpPow, `2`, `64`, ErrOverflow},
			{OpLShift, `1`, `-1`, ErrBadArguments},
			{OpMul, `"ab"`, `4611686018427387904`, ErrOverflow},
			{OpMul, `4611686018427387904`, `"ab"`, ErrOverflow},
			{OpMul, `[1]`, `4611686018427387904`, ErrOverflow},
			{OpMul, `[1,2]`, `9223372036854775807`, ErrOverflow},
			{OpAnd, `1.5`, `1`, ErrNotSupported},
		}
		for _, tt := range tests {
			if _, err := Binary(tt.op, MustParse(tt.a), MustParse(tt.b)); !errors.Is(err, tt.want) {
				t.Errorf("%s %s %s: error = %v, want %v", tt.a, tt.op.Symbol(), tt.b, err, tt.want)
			}
		}
	})

	t.Run("Reflected", func(t *testing.T) {
		tests := []struct {
			op          Op
			self, other string
			want        string
		}{
			{OpSub, `10`, `5`, `-5`},
			{OpPow, `10`, `2`, `1024`},
			{OpTrueDiv, `4`, `1`, `0.25`},
			{OpFloorDiv, `2`, `7`, `3`},
			{OpMod, `3`, `-7`, `2`},
			{OpLShift, `3`, `1`, `8`},
			{OpAdd, `"b"`, `"a"`, `"ab"`},
			{OpAdd, `[2]`, `[1]`, `[1,2]`},
			{OpMul, `[0]`, `2`, `[0,0]`},
		}
		for _, tt := range tests {
			got, err := Reflected(tt.op, MustParse(tt.self), MustParse(tt.other))
			if err != nil {
				t.Fatalf("%s %s %s: error = %v", tt.other, tt.op.Symbol(), tt.self, err)
			}
			if got.Repr() != tt.want {
				t.Errorf("%s %s %s = %s, want %s", tt.other, tt.op.Symbol(), tt.self, got.Repr(), tt.want)
			}
		}
	})

	t.Run("InPlace repeat", func(t *testing.T) {
		arr := MustParse(`[1,2]`)
		if _, err := InPlace(OpMul, arr, Int(4611686018427387904)); !errors.Is(err, ErrOverflow) {
			t.Fatalf("array *= huge error = %v", err)
		}
		if arr.Repr() != `[1,2]` {
			t.Errorf("array changed on overflow: %s", arr.Repr())
		}
		empty := MustParse(`[]`)
		if _, err := InPlace(OpMul, empty, Int(4611686018427387904)); err != nil || empty.Repr() != `[]` {
			t.Errorf("[] *= huge = %s, %v", empty.Repr(), err)
		}
		if _, err := InPlace(OpMul, arr, Int(2)); err != nil || arr.Repr() != `[1,2,1,2]` {
			t.Errorf("array *= 2 = %s, %v", arr.Repr(), err)
		}
		if _, err := InPlace(OpMul, arr, Int(-1)); err != nil || arr.Repr() != `[]` {
			t.Errorf("array *= -1 = %s, %v", arr.Repr(), err)
		}
	})

	t.Run("InPlace", func(t *testing.T) {
		arr := MustParse(`[1]`)
		got, err := InPlace(OpAdd, arr, MustParse(`[2,3]`))
		if err != nil {
			t.Fatal(err)
		}
		if got.Array() != arr.Array() {
			t.Error("array += must mutate in place")
		}
		if arr.Repr() != `[1,2,3]` {
			t.Errorf("array = %s", arr.Repr())
		}
		if _, err := InPlace(OpAdd, arr, Int(5)); !errors.Is(err, ErrNotSupported) {
			t.Errorf("array += int error = %v", err)
		}
		obj := MustParse(`{"a":1}`)
		if _, err := InPlace(OpOr, obj, MustParse(`{"b":2}`)); err != nil {
			t.Fatal(err)
		}
		if obj.Repr() != `{"a":1,"b":2}` {
			t.Errorf("object = %s", obj.Repr())
		}
		n, err := InPlace(OpAdd, Int(5), Int(1))
		if err != nil || !n.Equal(Int(6)) {
			t.Errorf("5 += 1 = %v, %v", n, err)
		}
		if HasInPlace(OpAdd, KindInt) || !HasInPlace(OpAdd, KindArray) {
			t.Error("HasInPlace mismatch")
		}
	})

	t.Run("Unary", func(t *testing.T) {
		ten := Int(-10)
		if v, _ := ten.Neg(); !v.Equal(Int(10)) {
			t.Errorf("-(-10) = %v", v)
		}
		if v, _ := ten.Abs(); !v.Equal(Int(10)) {
			t.Errorf("abs(-10) = %v", v)
		}
		if v, _ := Int(0).Invert(); !v.Equal(Int(-1)) {
			t.Errorf("~0 = %v", v)
		}
		if v, _ := Bool(true).Pos(); v.Kind() != KindInt {
			t.Errorf("+true kind = %s", v.Kind())
		}
		if _, err := String("x").Neg(); !errors.Is(err, ErrNotSupported) {
			t.Errorf("-string error = %v", err)
		}
	})
}

func TestMutators(t *testing.T) {
	call := func(t *testing.T, v Value, name string, args ...Value) Value {
		t.Helper()
		got, err := CallMutator(v, name, args...)
		if err != nil {
			t.Fatalf("%s error = %v", name, err)
		}
		return got
	}

	t.Run("array", func(t *testing.T) {
		v := MustParse(`[3,1]`)
		call(t, v, "append", Int(2))
		call(t, v, "extend", MustParse(`[5]`))
		call(t, v, "insert", Int(0), Int(0))
		call(t, v, "insert", Int(100), Int(9))
		if v.Repr() != `[0,3,1,2,5,9]` {
			t.Fatalf("after inserts = %s", v.Repr())
		}
		if got := call(t, v, "pop"); !got.Equal(Int(9)) {
			t.Errorf("pop() = %v", got)
		}
		if got := call(t, v, "pop", Int(0)); !got.Equal(Int(0)) {
			t.Errorf("pop(0) = %v", got)
		}
		call(t, v, "remove", Int(5))
		call(t, v, "sort")
		if v.Repr() != `[1,2,3]` {
			t.Errorf("sorted = %s", v.Repr())
		}
		call(t, v, "sort", Bool(true))
		call(t, v, "reverse")
		if v.Repr() != `[1,2,3]` {
			t.Errorf("reverse sorted = %s", v.Repr())
		}
		call(t, v, "add", Int(1))
		call(t, v, "add", Int(4))
		call(t, v, "discard", Int(2))
		call(t, v, "discard", Int(42))
		if v.Repr() != `[1,3,4]` {
			t.Errorf("set ops = %s", v.Repr())
		}
		call(t, v, "clear")
		if v.Repr() != `[]` {
			t.Errorf("cleared = %s", v.Repr())
		}
	})

	t.Run("array errors", func(t *testing.T) {
		v := MustParse(`[1,"a"]`)
		if _, err := CallMutator(v, "sort"); !errors.Is(err, ErrNotSupported) {
			t.Errorf("sort mixed error = %v", err)
		}
		if v.Repr() != `[1,"a"]` {
			t.Errorf("failed sort modified array: %s", v.Repr())
		}
		if _, err := CallMutator(v, "remove", Int(7)); !errors.Is(err, ErrValueNotFound) {
			t.Errorf("remove absent error = %v", err)
		}
		if _, err := CallMutator(MustParse(`[]`), "pop"); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("pop empty error = %v", err)
		}
		if _, err := CallMutator(v, "append"); !errors.Is(err, ErrBadArguments) {
			t.Errorf("append() error = %v", err)
		}
		if _, err := CallMutator(v, "update", MustParse(`{}`)); !errors.Is(err, ErrNoAttribute) {
			t.Errorf("array.update error = %v", err)
		}
		if _, err := CallMutator(v, "frobnicate"); !errors.Is(err, ErrNoAttribute) {
			t.Errorf("unknown mutator error = %v", err)
		}
	})

	t.Run("object", func(t *testing.T) {
		v := MustParse(`{"a":1}`)
		call(t, v, "update", MustParse(`{"b":2}`))
		call(t, v, "update", MustParse(`[["c",3]]`))
		if got := call(t, v, "setdefault", String("a"), Int(100)); !got.Equal(Int(1)) {
			t.Errorf("setdefault existing = %v", got)
		}
		if got := call(t, v, "setdefault", String("d")); !got.IsNull() {
			t.Errorf("setdefault new = %v", got)
		}
		if got := call(t, v, "popitem"); got.Repr() != `["d",null]` {
			t.Errorf("popitem = %s", got.Repr())
		}
		if got := call(t, v, "pop", String("a")); !got.Equal(Int(1)) {
			t.Errorf("pop(a) = %v", got)
		}
		if got := call(t, v, "pop", String("zz"), String("def")); got.Str() != "def" {
			t.Errorf("pop default = %v", got)
		}
		if _, err := CallMutator(v, "pop", String("zz")); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("pop missing error = %v", err)
		}
		if v.Repr() != `{"b":2,"c":3}` {
			t.Errorf("object = %s", v.Repr())
		}
		call(t, v, "clear")
		if _, err := CallMutator(v, "popitem"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("popitem empty error = %v", err)
		}
	})

	t.Run("names", func(t *testing.T) {
		want := []string{"add", "append", "clear", "discard", "extend", "insert", "pop", "popitem", "remove", "reverse", "setdefault", "sort", "update"}
		if got := MutatorNames(); !slices.Equal(got, want) {
			t.Errorf("MutatorNames() = %v", got)
		}
		if !IsMutator("append") || IsMutator("keys") {
			t.Error("IsMutator mismatch")
		}
		if !HasMutator("pop", KindObject) || HasMutator("append", KindObject) {
			t.Error("HasMutator mismatch")
		}
	})
}

func TestFromGo(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		tests := []struct {
			name string
			in   any
			want string
		}{
			{"nil", nil, `null`},
			{"int", 123, `123`},
			{"uint8", uint8(7), `7`},
			{"float", 1.23, `1.23`},
			{"bool", false, `false`},
			{"string", "s", `"s"`},
			{"slice", []int{1, 2}, `[1,2]`},
			{"any map", map[string]any{"b": []any{true}, "a": nil}, `{"a":null,"b":[true]}`},
			{"typed map", map[string]float64{"x": 0.5}, `{"x":0.5}`},
			{"raw", json.RawMessage(`{"k":1}`), `{"k":1}`},
			{"pointer", new(int), `0`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				v, err := FromGo(tt.in)
				if err != nil {
					t.Fatalf("FromGo() error = %v", err)
				}
				if v.Repr() != tt.want {
					t.Errorf("FromGo() = %s, want %s", v.Repr(), tt.want)
				}
			})
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		type opaque struct{ X int }
		tests := map[string]any{
			"struct":       opaque{X: 1},
			"set":          map[string]struct{}{"a": {}},
			"int keys":     map[int]string{1: "a"},
			"bytes":        []byte("x"),
			"chan":         make(chan int),
			"nested func":  []any{func() {}},
			"nested struc": map[string]any{"o": opaque{}},
		}
		for name, in := range tests {
			if _, err := FromGo(in); !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("%s: FromGo() error = %v, want ErrUnsupportedType", name, err)
			}
		}
	})

	t.Run("Interface", func(t *testing.T) {
		got := MustParse(`{"a":[1,2.5,"x",null,true]}`).Interface()
		want := map[string]any{"a": []any{int64(1), 2.5, "x", nil, true}}
		gb, _ := json.Marshal(got)
		wb, _ := json.Marshal(want)
		if string(gb) != string(wb) {
			t.Errorf("Interface() = %s, want %s", gb, wb)
		}
	})
}
