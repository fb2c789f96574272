package jsonvalue

import (
	"fmt"
	"slices"
	"sort"
)

type mutatorFunc func(v Value, args []Value) (Value, error)

// mutators is the fixed table of container methods that modify their
// receiver, keyed by name then by variant.
var mutators = map[string]map[Kind]mutatorFunc{
	"append":     {KindArray: arrayAppend},
	"extend":     {KindArray: arrayExtend},
	"insert":     {KindArray: arrayInsert},
	"pop":        {KindArray: arrayPop, KindObject: objectPop},
	"popitem":    {KindObject: objectPopItem},
	"remove":     {KindArray: arrayRemove},
	"clear":      {KindArray: arrayClear, KindObject: objectClear},
	"update":     {KindObject: objectUpdate},
	"setdefault": {KindObject: objectSetDefault},
	"reverse":    {KindArray: arrayReverse},
	"sort":       {KindArray: arraySort},
	"discard":    {KindArray: arrayDiscard},
	"add":        {KindArray: arrayAdd},
}

// MutatorNames returns the sorted names of all mutators.
func MutatorNames() []string {
	names := make([]string, 0, len(mutators))
	for name := range mutators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMutator reports whether name is one of the mutator methods.
func IsMutator(name string) bool {
	_, ok := mutators[name]
	return ok
}

// HasMutator reports whether values of kind k implement the named mutator.
func HasMutator(name string, k Kind) bool {
	return mutators[name][k] != nil
}

// CallMutator invokes the named mutator on v and returns its result (null
// for mutators that return nothing).
//
// Arrays also implement "add" and "discard" with set semantics: add appends
// the item only when absent, discard removes it when present.
func CallMutator(v Value, name string, args ...Value) (Value, error) {
	byKind, ok := mutators[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNoAttribute, name)
	}
	f := byKind[v.kind]
	if f == nil {
		return Value{}, fmt.Errorf("%w: %s has no %q", ErrNoAttribute, v.kind, name)
	}
	return f(v, args)
}

func wantArgs(name string, args []Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrBadArguments, name, lo, len(args))
		}
		return fmt.Errorf("%w: %s takes %d to %d arguments, got %d", ErrBadArguments, name, lo, hi, len(args))
	}
	return nil
}

func arrayAppend(v Value, args []Value) (Value, error) {
	if err := wantArgs("append", args, 1, 1); err != nil {
		return Value{}, err
	}
	v.arr.Append(args[0])
	return Value{}, nil
}

func arrayExtend(v Value, args []Value) (Value, error) {
	if err := wantArgs("extend", args, 1, 1); err != nil {
		return Value{}, err
	}
	items, err := iterItems(args[0])
	if err != nil {
		return Value{}, err
	}
	v.arr.Append(items...)
	return Value{}, nil
}

func arrayInsert(v Value, args []Value) (Value, error) {
	if err := wantArgs("insert", args, 2, 2); err != nil {
		return Value{}, err
	}
	i, ok := asInt(args[0])
	if !ok {
		return Value{}, fmt.Errorf("%w: insert index must be an integer, not %s", ErrBadArguments, args[0].kind)
	}
	n := int64(v.arr.Len())
	if i < 0 {
		i = max(i+n, 0)
	}
	i = min(i, n)
	v.arr.items = slices.Insert(v.arr.items, int(i), args[1])
	return Value{}, nil
}

func arrayPop(v Value, args []Value) (Value, error) {
	if err := wantArgs("pop", args, 0, 1); err != nil {
		return Value{}, err
	}
	if v.arr.Len() == 0 {
		return Value{}, fmt.Errorf("%w: pop from empty array", ErrIndexOutOfRange)
	}
	key := Int(-1)
	if len(args) == 1 {
		key = args[0]
	}
	i, err := resolveIndex(key, v.arr.Len())
	if err != nil {
		return Value{}, err
	}
	item := v.arr.items[i]
	v.arr.items = slices.Delete(v.arr.items, i, i+1)
	return item, nil
}

func arrayRemove(v Value, args []Value) (Value, error) {
	if err := wantArgs("remove", args, 1, 1); err != nil {
		return Value{}, err
	}
	i := v.arr.Index(args[0])
	if i < 0 {
		return Value{}, fmt.Errorf("%w: %s", ErrValueNotFound, args[0].Repr())
	}
	v.arr.items = slices.Delete(v.arr.items, i, i+1)
	return Value{}, nil
}

func arrayClear(v Value, args []Value) (Value, error) {
	if err := wantArgs("clear", args, 0, 0); err != nil {
		return Value{}, err
	}
	v.arr.items = v.arr.items[:0]
	return Value{}, nil
}

func arrayReverse(v Value, args []Value) (Value, error) {
	if err := wantArgs("reverse", args, 0, 0); err != nil {
		return Value{}, err
	}
	slices.Reverse(v.arr.items)
	return Value{}, nil
}

// arraySort sorts in ascending order, or descending when given a truthy
// argument. The array is left untouched if two items cannot be ordered.
func arraySort(v Value, args []Value) (Value, error) {
	if err := wantArgs("sort", args, 0, 1); err != nil {
		return Value{}, err
	}
	reverse := len(args) == 1 && args[0].Truthy()
	sorted := v.arr.Items()
	var cmpErr error
	slices.SortStableFunc(sorted, func(a, b Value) int {
		c, err := a.Compare(b)
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		if reverse {
			return -c
		}
		return c
	})
	if cmpErr != nil {
		return Value{}, cmpErr
	}
	v.arr.items = sorted
	return Value{}, nil
}

func arrayAdd(v Value, args []Value) (Value, error) {
	if err := wantArgs("add", args, 1, 1); err != nil {
		return Value{}, err
	}
	if v.arr.Index(args[0]) < 0 {
		v.arr.Append(args[0])
	}
	return Value{}, nil
}

func arrayDiscard(v Value, args []Value) (Value, error) {
	if err := wantArgs("discard", args, 1, 1); err != nil {
		return Value{}, err
	}
	if i := v.arr.Index(args[0]); i >= 0 {
		v.arr.items = slices.Delete(v.arr.items, i, i+1)
	}
	return Value{}, nil
}

func objectKey(name string, k Value) (string, error) {
	if k.kind != KindString {
		return "", fmt.Errorf("%w: %s key must be a string, not %s", ErrBadArguments, name, k.kind)
	}
	return k.s, nil
}

func objectPop(v Value, args []Value) (Value, error) {
	if err := wantArgs("pop", args, 1, 2); err != nil {
		return Value{}, err
	}
	key, err := objectKey("pop", args[0])
	if err != nil {
		return Value{}, err
	}
	if item, ok := v.obj.Delete(key); ok {
		return item, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return Value{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

// objectPopItem removes the most recently inserted pair and returns it as a
// two-item array.
func objectPopItem(v Value, args []Value) (Value, error) {
	if err := wantArgs("popitem", args, 0, 0); err != nil {
		return Value{}, err
	}
	key, item, ok := v.obj.newest()
	if !ok {
		return Value{}, fmt.Errorf("%w: popitem on empty object", ErrKeyNotFound)
	}
	v.obj.Delete(key)
	return ArrayOf(String(key), item), nil
}

func objectClear(v Value, args []Value) (Value, error) {
	if err := wantArgs("clear", args, 0, 0); err != nil {
		return Value{}, err
	}
	for _, k := range v.obj.Keys() {
		v.obj.Delete(k)
	}
	return Value{}, nil
}

// objectUpdate merges an object, or an array of [key, value] pairs.
func objectUpdate(v Value, args []Value) (Value, error) {
	if err := wantArgs("update", args, 0, 1); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return Value{}, nil
	}
	switch src := args[0]; src.kind {
	case KindObject:
		for k, item := range src.obj.All() {
			v.obj.Set(k, item)
		}
	case KindArray:
		for i, pair := range src.arr.items {
			if pair.kind != KindArray || pair.arr.Len() != 2 {
				return Value{}, fmt.Errorf("%w: update sequence element #%d is not a [key, value] pair", ErrBadArguments, i)
			}
			key, err := objectKey("update", pair.arr.items[0])
			if err != nil {
				return Value{}, err
			}
			v.obj.Set(key, pair.arr.items[1])
		}
	default:
		return Value{}, fmt.Errorf("%w: cannot update object from %s", ErrBadArguments, src.kind)
	}
	return Value{}, nil
}

func objectSetDefault(v Value, args []Value) (Value, error) {
	if err := wantArgs("setdefault", args, 1, 2); err != nil {
		return Value{}, err
	}
	key, err := objectKey("setdefault", args[0])
	if err != nil {
		return Value{}, err
	}
	if item, ok := v.obj.Get(key); ok {
		return item, nil
	}
	var def Value
	if len(args) == 2 {
		def = args[1]
	}
	v.obj.Set(key, def)
	return def, nil
}
