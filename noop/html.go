package noop

import (
	"io"

	"github.com/delaneyj/fiberparty/value"
	qt "github.com/valyala/quicktemplate"
)

// StreamHTML writes the children of c as HTML. Attributes are written in
// key order so output is stable.
func StreamHTML(qw *qt.Writer, c *Container) {
	for _, child := range c.children {
		streamNode(qw, child)
	}
}

func streamNode(qw *qt.Writer, n *Instance) {
	if n.IsText() {
		qw.E().S(n.Text)
		return
	}
	qw.N().S("<")
	qw.N().S(n.Type)
	for _, k := range n.Attrs.SortedKeys() {
		qw.N().S(" ")
		qw.N().S(k)
		qw.N().S(`="`)
		qw.E().S(value.Text(n.Attrs[k]))
		qw.N().S(`"`)
	}
	qw.N().S(">")
	for _, child := range n.children {
		streamNode(qw, child)
	}
	qw.N().S("</")
	qw.N().S(n.Type)
	qw.N().S(">")
}

func WriteHTML(w io.Writer, c *Container) {
	qw := qt.AcquireWriter(w)
	StreamHTML(qw, c)
	qt.ReleaseWriter(qw)
}

func HTML(c *Container) string {
	bb := qt.AcquireByteBuffer()
	WriteHTML(bb, c)
	s := string(bb.B)
	qt.ReleaseByteBuffer(bb)
	return s
}

// Node is a detached copy of a host node, handy for comparisons.
type Node struct {
	Type     string
	Text     string
	Attrs    map[string]string
	Children []Node
}

func (c *Container) Snapshot() []Node {
	return snapshot(c.children)
}

func snapshot(list []*Instance) []Node {
	if len(list) == 0 {
		return nil
	}
	out := make([]Node, 0, len(list))
	for _, n := range list {
		s := Node{Type: n.Type, Text: n.Text, Children: snapshot(n.children)}
		if len(n.Attrs) > 0 {
			s.Attrs = make(map[string]string, len(n.Attrs))
			for k, v := range n.Attrs {
				s.Attrs[k] = value.Text(v)
			}
		}
		out = append(out, s)
	}
	return out
}
