// Package value holds the structural values carried by element props.
package value

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Value is a sealed interface. Only Null, String, Int, Float, Bool, List, Map
// and Ref implement it.
type Value interface {
	value()
}

type Null struct{}

func (Null) value() {}

type String string

func (String) value() {}

type Int int64

func (Int) value() {}

type Float float64

func (Float) value() {}

type Bool bool

func (Bool) value() {}

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// Map is a keyed mapping. Use SortedKeys for deterministic iteration.
type Map map[string]Value

func (Map) value() {}

// Ref points at something the engine never looks inside: a callback, a host
// handle, another element. Two refs are equal only if they wrap the same
// pointer-comparable target.
type Ref struct {
	Target any
}

func (Ref) value() {}

func (m Map) SortedKeys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Equal compares primitives, lists and maps structurally and refs by identity.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String, Int, Float, Bool:
		return a == b
	case List:
		bl, ok := b.(List)
		if !ok || len(a) != len(bl) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bl[i]) {
				return false
			}
		}
		return true
	case Map:
		bm, ok := b.(Map)
		if !ok || len(a) != len(bm) {
			return false
		}
		for k, av := range a {
			bv, ok := bm[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Ref:
		br, ok := b.(Ref)
		return ok && Identical(a.Target, br.Target)
	default:
		panic(fmt.Sprintf("value: unknown value type %T", a))
	}
}

// Identical reports a == b, treating uncomparable dynamic types as different
// instead of panicking.
func Identical(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Text renders primitives the way a host would display them. Lists are space
// joined, maps and refs render empty.
func Text(v Value) string {
	switch v := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(v)
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Float:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(v))
	case List:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, Text(item))
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Of converts plain Go values into Values. Anything it does not recognise is
// wrapped in a Ref.
func Of(v any) Value {
	switch v := v.(type) {
	case nil:
		return Null{}
	case Value:
		return v
	case string:
		return String(v)
	case int:
		return Int(v)
	case int64:
		return Int(v)
	case float64:
		return Float(v)
	case bool:
		return Bool(v)
	case []any:
		l := make(List, len(v))
		for i, item := range v {
			l[i] = Of(item)
		}
		return l
	case map[string]any:
		m := make(Map, len(v))
		for k, item := range v {
			m[k] = Of(item)
		}
		return m
	default:
		return Ref{Target: v}
	}
}
