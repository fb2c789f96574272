package remotejson

import (
	"errors"
	"testing"

	"github.com/maruel/remotejson/internal/blobstore"
	"github.com/maruel/remotejson/internal/jsonvalue"
)

// stored returns a lazy proxy over a blob holding content.
func stored(t *testing.T, content string) (*Proxy, *blobstore.Memory) {
	t.Helper()
	mem := blobstore.NewMemory()
	if _, err := mem.Save("v.json", []byte(content)); err != nil {
		t.Fatal(err)
	}
	mem.ResetStats()
	return Open(mem, "v.json"), mem
}

func TestProxyLifecycle(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		p := New(jsonvalue.MustParse(`{"a":1}`))
		if !p.Loaded() || !p.NeedsSave() || p.Path() != "" {
			t.Errorf("New() loaded=%v dirty=%v path=%q", p.Loaded(), p.NeedsSave(), p.Path())
		}
		p.MarkSaved()
		if p.NeedsSave() || !p.Loaded() {
			t.Error("MarkSaved() must only clear the dirty flag")
		}
	})

	t.Run("New null", func(t *testing.T) {
		p := New(jsonvalue.Null())
		if p.NeedsSave() {
			t.Error("a null value is not dirty")
		}
		v, err := p.Get()
		if err != nil || !v.IsNull() {
			t.Errorf("Get() = %v, %v", v, err)
		}
	})

	t.Run("lazy load happens once", func(t *testing.T) {
		p, mem := stored(t, `[1,2,3]`)
		if p.Loaded() {
			t.Fatal("Open() must be lazy")
		}
		for range 3 {
			if n, err := p.Len(); err != nil || n != 3 {
				t.Fatalf("Len() = %d, %v", n, err)
			}
		}
		if s := mem.Stats(); s.Opens != 1 {
			t.Errorf("Opens = %d, want 1", s.Opens)
		}
		if p.NeedsSave() {
			t.Error("loading must not mark dirty")
		}
	})

	t.Run("Set", func(t *testing.T) {
		p, mem := stored(t, `1`)
		p.Set(jsonvalue.String("x"))
		if !p.NeedsSave() || !p.Loaded() {
			t.Error("Set() must mark loaded and dirty")
		}
		if s, _ := p.Str(); s != "x" {
			t.Errorf("Str() = %q", s)
		}
		if mem.Stats().Opens != 0 {
			t.Error("Set() must not read the blob")
		}
	})

	t.Run("no store", func(t *testing.T) {
		p := Open(nil, "v.json")
		if _, err := p.Get(); !errors.Is(err, errNoBlobStore) {
			t.Errorf("Get() error = %v, want errNoBlobStore", err)
		}
	})

	t.Run("corrupt blob", func(t *testing.T) {
		p, _ := stored(t, `{"a":`)
		if _, err := p.Get(); err == nil {
			t.Error("Get() of corrupt blob succeeded")
		}
		if p.Loaded() {
			t.Error("failed load marked loaded")
		}
	})
}

func TestProxyItems(t *testing.T) {
	t.Run("Index", func(t *testing.T) {
		p, _ := stored(t, `{"a":{"b":[1,2]}}`)
		a, err := p.Index(jsonvalue.String("a"))
		if err != nil {
			t.Fatal(err)
		}
		if a.Repr() != `{"b":[1,2]}` {
			t.Errorf("p[a] = %s", a.Repr())
		}
		if _, err := p.Index(jsonvalue.String("zz")); !errors.Is(err, jsonvalue.ErrKeyNotFound) {
			t.Errorf("missing key error = %v", err)
		}
		arr := New(jsonvalue.MustParse(`[1]`))
		if _, err := arr.Index(jsonvalue.Int(4)); !errors.Is(err, jsonvalue.ErrIndexOutOfRange) {
			t.Errorf("out of range error = %v", err)
		}
	})

	t.Run("Index on null", func(t *testing.T) {
		p, _ := stored(t, `null`)
		for _, key := range []jsonvalue.Value{jsonvalue.String("a"), jsonvalue.Int(0)} {
			if _, err := p.Index(key); !errors.Is(err, jsonvalue.ErrKeyNotFound) {
				t.Errorf("Index(%s) error = %v, want ErrKeyNotFound", key.Repr(), err)
			}
		}
	})

	t.Run("SetIndex on null", func(t *testing.T) {
		p, _ := stored(t, `null`)
		if err := p.SetIndex(jsonvalue.String("k"), jsonvalue.Int(1)); err != nil {
			t.Fatal(err)
		}
		if r, _ := p.Repr(); r != `{"k":1}` {
			t.Errorf("Repr() = %s", r)
		}
		if !p.NeedsSave() {
			t.Error("SetIndex did not mark dirty")
		}
	})

	t.Run("SetIndex same value still dirty", func(t *testing.T) {
		p, _ := stored(t, `{"k":1}`)
		if err := p.SetIndex(jsonvalue.String("k"), jsonvalue.Int(1)); err != nil {
			t.Fatal(err)
		}
		if !p.NeedsSave() {
			t.Error("SetIndex did not mark dirty")
		}
	})

	t.Run("failed SetIndex", func(t *testing.T) {
		p, _ := stored(t, `"text"`)
		if err := p.SetIndex(jsonvalue.Int(0), jsonvalue.String("x")); !errors.Is(err, jsonvalue.ErrNotSupported) {
			t.Errorf("SetIndex() error = %v", err)
		}
		if p.NeedsSave() {
			t.Error("failed SetIndex marked dirty")
		}
	})

	t.Run("nested mutation does not propagate", func(t *testing.T) {
		p, _ := stored(t, `{"nested":{"x":1},"list":[]}`)
		nested, err := p.Index(jsonvalue.String("nested"))
		if err != nil {
			t.Fatal(err)
		}
		if err := nested.SetIndex(jsonvalue.String("y"), jsonvalue.Int(2)); err != nil {
			t.Fatal(err)
		}
		list, _ := p.Index(jsonvalue.String("list"))
		if _, err := jsonvalue.CallMutator(list, "append", jsonvalue.Int(1)); err != nil {
			t.Fatal(err)
		}
		if p.NeedsSave() {
			t.Error("nested mutation marked the proxy dirty")
		}
		if r, _ := p.Repr(); r != `{"nested":{"x":1,"y":2},"list":[1]}` {
			t.Errorf("nested change not visible: %s", r)
		}
	})
}

func TestProxyMutators(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		p := New(jsonvalue.MustParse(`[]`))
		m1, err := p.Mutator("append")
		if err != nil {
			t.Fatal(err)
		}
		m2, _ := p.Mutator("append")
		if m1 != m2 {
			t.Error("Mutator() must return the same value for the same name")
		}
		m3, _ := p.Mutator("extend")
		if m1 == m3 {
			t.Error("different mutators share identity")
		}
		if m1.Name() != "append" {
			t.Errorf("Name() = %q", m1.Name())
		}
	})

	t.Run("every call marks dirty", func(t *testing.T) {
		tests := []struct {
			init string
			name string
			args []jsonvalue.Value
			want string
		}{
			{`[1]`, "append", []jsonvalue.Value{jsonvalue.Int(2)}, `[1,2]`},
			{`[1]`, "extend", []jsonvalue.Value{jsonvalue.MustParse(`[2,3]`)}, `[1,2,3]`},
			{`[1]`, "insert", []jsonvalue.Value{jsonvalue.Int(0), jsonvalue.Int(0)}, `[0,1]`},
			{`[1,2]`, "pop", nil, `[1]`},
			{`[1,2]`, "remove", []jsonvalue.Value{jsonvalue.Int(1)}, `[2]`},
			{`[1,2]`, "clear", nil, `[]`},
			{`[1,2]`, "reverse", nil, `[2,1]`},
			{`[2,1]`, "sort", nil, `[1,2]`},
			{`[1]`, "add", []jsonvalue.Value{jsonvalue.Int(1)}, `[1]`},
			{`[1]`, "discard", []jsonvalue.Value{jsonvalue.Int(9)}, `[1]`},
			{`{"a":1}`, "pop", []jsonvalue.Value{jsonvalue.String("a")}, `{}`},
			{`{"a":1}`, "popitem", nil, `{}`},
			{`{"a":1}`, "clear", nil, `{}`},
			{`{"a":1}`, "update", []jsonvalue.Value{jsonvalue.MustParse(`{"b":2}`)}, `{"a":1,"b":2}`},
			{`{"a":1}`, "setdefault", []jsonvalue.Value{jsonvalue.String("a"), jsonvalue.Int(5)}, `{"a":1}`},
		}
		for _, tt := range tests {
			t.Run(tt.init+"."+tt.name, func(t *testing.T) {
				p, _ := stored(t, tt.init)
				if _, err := p.Call(tt.name, tt.args...); err != nil {
					t.Fatalf("Call() error = %v", err)
				}
				if !p.NeedsSave() {
					t.Error("mutator did not mark dirty")
				}
				if r, _ := p.Repr(); r != tt.want {
					t.Errorf("Repr() = %s, want %s", r, tt.want)
				}
			})
		}
	})

	t.Run("unknown or missing", func(t *testing.T) {
		p := New(jsonvalue.MustParse(`{}`))
		p.MarkSaved()
		for _, name := range []string{"append", "keys", "frobnicate"} {
			if _, err := p.Mutator(name); !errors.Is(err, jsonvalue.ErrNoAttribute) {
				t.Errorf("Mutator(%q) error = %v, want ErrNoAttribute", name, err)
			}
		}
		if _, err := p.Call("pop", jsonvalue.String("missing")); !errors.Is(err, jsonvalue.ErrKeyNotFound) {
			t.Errorf("pop missing error = %v", err)
		}
		if p.NeedsSave() {
			t.Error("failed mutator marked dirty")
		}
	})

	t.Run("cached mutator follows the current value", func(t *testing.T) {
		p := New(jsonvalue.MustParse(`[1]`))
		m, _ := p.Mutator("pop")
		p.Set(jsonvalue.MustParse(`{"k":"v"}`))
		got, err := m.Call(jsonvalue.String("k"))
		if err != nil {
			t.Fatalf("Call() error = %v", err)
		}
		if got.Str() != "v" {
			t.Errorf("pop(k) = %s", got.Repr())
		}
	})
}

func TestProxyValueProtocol(t *testing.T) {
	t.Run("arithmetic", func(t *testing.T) {
		p, _ := stored(t, `10`)
		sum, err := p.Binary(jsonvalue.OpAdd, jsonvalue.Int(5))
		if err != nil || !sum.Equal(jsonvalue.Int(15)) {
			t.Errorf("p + 5 = %v, %v", sum, err)
		}
		rsum, err := p.Reflected(jsonvalue.OpAdd, jsonvalue.Int(5))
		if err != nil || !rsum.Equal(jsonvalue.Int(15)) {
			t.Errorf("5 + p = %v, %v", rsum, err)
		}
		diff, err := p.Reflected(jsonvalue.OpSub, jsonvalue.Int(3))
		if err != nil || !diff.Equal(jsonvalue.Int(-7)) {
			t.Errorf("3 - p = %v, %v", diff, err)
		}
		rpow, err := p.Reflected(jsonvalue.OpPow, jsonvalue.Int(2))
		if err != nil || !rpow.Equal(jsonvalue.Int(1024)) {
			t.Errorf("2 ** p = %v, %v", rpow, err)
		}
		pow, err := p.Binary(jsonvalue.OpPow, jsonvalue.Int(2))
		if err != nil || !pow.Equal(jsonvalue.Int(100)) {
			t.Errorf("p ** 2 = %v, %v", pow, err)
		}
		rdiv, err := p.Reflected(jsonvalue.OpFloorDiv, jsonvalue.Int(25))
		if err != nil || !rdiv.Equal(jsonvalue.Int(2)) {
			t.Errorf("25 // p = %v, %v", rdiv, err)
		}
		if p.NeedsSave() {
			t.Error("binary operators must not mark dirty")
		}
		if _, err := p.Binary(jsonvalue.OpMatMul, jsonvalue.Int(1)); !errors.Is(err, jsonvalue.ErrNotSupported) {
			t.Errorf("p @ 1 error = %v, want ErrNotSupported", err)
		}
	})

	t.Run("in-place", func(t *testing.T) {
		p, _ := stored(t, `[1]`)
		before, _ := p.AsArray()
		q, err := p.InPlace(jsonvalue.OpAdd, jsonvalue.MustParse(`[2]`))
		if err != nil || q != p {
			t.Fatalf("InPlace() = %p, %v", q, err)
		}
		after, _ := p.AsArray()
		if before != after {
			t.Error("array += must keep the same container")
		}
		if r, _ := p.Repr(); r != `[1,2]` {
			t.Errorf("Repr() = %s", r)
		}

		s, _ := stored(t, `"ab"`)
		if _, err := s.InPlace(jsonvalue.OpMul, jsonvalue.Int(2)); err != nil {
			t.Fatal(err)
		}
		if r, _ := s.Repr(); r != `"abab"` || !s.NeedsSave() {
			t.Errorf("string *= 2 -> %s dirty=%v", r, s.NeedsSave())
		}

		o, _ := stored(t, `{}`)
		if _, err := o.InPlace(jsonvalue.OpSub, jsonvalue.Int(1)); !errors.Is(err, jsonvalue.ErrNotSupported) {
			t.Errorf("object -= 1 error = %v", err)
		}
		if o.NeedsSave() {
			t.Error("unsupported in-place op marked dirty")
		}
	})

	t.Run("unary and comparisons", func(t *testing.T) {
		p, _ := stored(t, `-3`)
		for name, f := range map[string]func() (jsonvalue.Value, error){
			"neg": p.Neg, "pos": p.Pos, "abs": p.Abs, "invert": p.Invert,
		} {
			want := map[string]int64{"neg": 3, "pos": -3, "abs": 3, "invert": 2}[name]
			if v, err := f(); err != nil || !v.Equal(jsonvalue.Int(want)) {
				t.Errorf("%s = %v, %v; want %d", name, v, err, want)
			}
		}
		if c, _ := p.Compare(jsonvalue.Int(0)); c != -1 {
			t.Errorf("Compare(0) = %d", c)
		}
		if eq, _ := p.Equal(jsonvalue.Float(-3)); !eq {
			t.Error("-3 should equal -3.0")
		}
		if ok, _ := p.Truthy(); !ok {
			t.Error("-3 is truthy")
		}
		if _, err := p.Compare(jsonvalue.String("x")); !errors.Is(err, jsonvalue.ErrNotSupported) {
			t.Errorf("Compare(string) error = %v", err)
		}
	})

	t.Run("container protocol", func(t *testing.T) {
		p, _ := stored(t, `{"b":1,"a":2}`)
		if n, _ := p.Len(); n != 2 {
			t.Errorf("Len() = %d", n)
		}
		if ok, _ := p.Contains(jsonvalue.String("a")); !ok {
			t.Error("Contains(a) = false")
		}
		seq, err := p.Iterate()
		if err != nil {
			t.Fatal(err)
		}
		for range 2 {
			var keys []string
			for k := range seq {
				keys = append(keys, k.Str())
			}
			if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
				t.Errorf("keys = %v", keys)
			}
		}
	})

	t.Run("type identity", func(t *testing.T) {
		p, _ := stored(t, `{"a":1}`)
		if k, _ := p.Kind(); k != jsonvalue.KindObject {
			t.Errorf("Kind() = %s", k)
		}
		if _, err := p.AsObject(); err != nil {
			t.Errorf("AsObject() error = %v", err)
		}
		if _, err := p.AsArray(); !errors.Is(err, jsonvalue.ErrNotSupported) {
			t.Errorf("AsArray() error = %v", err)
		}
		if _, err := p.AsScalar(); !errors.Is(err, jsonvalue.ErrNotSupported) {
			t.Errorf("AsScalar() error = %v", err)
		}
		s := New(jsonvalue.Int(1))
		if v, err := s.AsScalar(); err != nil || !v.Equal(jsonvalue.Int(1)) {
			t.Errorf("AsScalar() = %v, %v", v, err)
		}
	})

	t.Run("String", func(t *testing.T) {
		p, _ := stored(t, `"plain"`)
		if p.String() != "plain" {
			t.Errorf("String() = %q", p.String())
		}
		q, _ := stored(t, `[1,"x"]`)
		if q.String() != `[1,"x"]` {
			t.Errorf("String() = %q", q.String())
		}
		missing := Open(blobstore.NewMemory(), "nope.json")
		if s := missing.String(); s == "" {
			t.Error("String() of an unloadable proxy is empty")
		}
	})
}
