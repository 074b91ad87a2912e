package reconciler

import (
	"fmt"

	"github.com/delaneyj/fiberparty/value"
)

// Node describes one child position: Text, *Element, List, or nil for nothing.
type Node interface {
	isNode()
}

type Text string

func (Text) isNode() {}

func Textf(format string, args ...any) Text {
	return Text(fmt.Sprintf(format, args...))
}

// List is an ordered group of children. A List nested in a List renders as
// a fragment.
type List []Node

func (List) isNode() {}

type Element struct {
	Type  Type
	Key   string
	Ref   *Ref
	Props *Props
}

func (*Element) isNode() {}

// Props are compared by pointer when deciding whether a fiber can bail out,
// so reuse the same *Props to skip work.
type Props struct {
	Attrs    value.Map
	Children Node
	// Value is what a context provider provides.
	Value any
	// Fallback is what a suspense boundary shows while its children wait.
	Fallback Node
}

// Ref receives the host instance of the element it is attached to.
type Ref struct {
	Current any
}

// Type identifies what an element renders as. Types are compared with ==.
type Type interface {
	isType()
}

// Host is a host component type such as "div".
type Host string

func (Host) isType() {}

type Component struct {
	Name   string
	Render func(h *Hooks, props *Props) (Node, error)
}

func (*Component) isType() {}

// Memo wraps a component so it is skipped while its props compare equal.
// A nil Compare means ShallowEqual.
type Memo struct {
	Component *Component
	Compare   func(prev, next *Props) bool
}

func (*Memo) isType() {}

type marker struct{ name string }

func (*marker) isType() {}

var (
	Fragment Type = &marker{name: "fragment"}
	Suspense Type = &marker{name: "suspense"}
)

// H builds an element. Children replace props.Children when given.
func H(t Type, props *Props, children ...Node) *Element {
	if props == nil {
		props = &Props{}
	}
	switch len(children) {
	case 0:
	case 1:
		props.Children = children[0]
	default:
		props.Children = List(children)
	}
	return &Element{Type: t, Props: props}
}

func (e *Element) WithKey(key string) *Element {
	e.Key = key
	return e
}

func (e *Element) WithRef(ref *Ref) *Element {
	e.Ref = ref
	return e
}

// ShallowEqual compares attrs entry by entry, and children, value and
// fallback by identity.
func ShallowEqual(prev, next *Props) bool {
	if prev == next {
		return true
	}
	if prev == nil || next == nil {
		return false
	}
	if len(prev.Attrs) != len(next.Attrs) {
		return false
	}
	for k, v := range prev.Attrs {
		nv, ok := next.Attrs[k]
		if !ok || !value.Equal(v, nv) {
			return false
		}
	}
	return sameNode(prev.Children, next.Children) &&
		sameNode(prev.Fallback, next.Fallback) &&
		value.Identical(prev.Value, next.Value)
}

// sameNode is identity for nodes. Lists are the same when they share their
// backing array.
func sameNode(a, b Node) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case Text:
		bt, ok := b.(Text)
		return ok && a == bt
	case *Element:
		be, ok := b.(*Element)
		return ok && a == be
	case List:
		bl, ok := b.(List)
		return ok && len(a) == len(bl) && (len(a) == 0 || &a[0] == &bl[0])
	default:
		return false
	}
}

func textProps(s string) *Props {
	return &Props{Children: Text(s)}
}

func textOf(p *Props) string {
	if p == nil {
		return ""
	}
	t, _ := p.Children.(Text)
	return string(t)
}
