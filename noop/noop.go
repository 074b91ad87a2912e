// Package noop is an in-memory host for the reconciler. It keeps a plain
// tree of nodes, checks every mutation against it and can print the result
// as HTML.
package noop

import (
	"fmt"
	"slices"

	"github.com/delaneyj/fiberparty/reconciler"
	"github.com/delaneyj/fiberparty/value"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Microtasks is the part of a scheduler host the noop host needs.
type Microtasks interface {
	QueueMicrotask(fn func())
}

// Instance is one host node. Text nodes have an empty Type.
type Instance struct {
	ID    int
	Type  string
	Text  string
	Attrs value.Map

	parent   parent
	children []*Instance
}

func (i *Instance) IsText() bool { return i.Type == "" }

func (i *Instance) Parent() any { return i.parent }

func (i *Instance) Children() []*Instance { return i.children }

func (i *Instance) String() string {
	if i.IsText() {
		return fmt.Sprintf("#text%d(%q)", i.ID, i.Text)
	}
	return fmt.Sprintf("%s#%d", i.Type, i.ID)
}

// Container is a top level node a root renders into.
type Container struct {
	ID       uuid.UUID
	children []*Instance
}

func (c *Container) Children() []*Instance { return c.children }

func (c *Container) String() string { return "container:" + c.ID.String() }

type parent interface {
	fmt.Stringer
	list() *[]*Instance
}

func (i *Instance) list() *[]*Instance  { return &i.children }
func (c *Container) list() *[]*Instance { return &c.children }

// Host implements reconciler.HostConfig. Violations of the tree's
// single-parent ownership are bugs in the caller and panic.
type Host struct {
	micro  Microtasks
	log    logrus.FieldLogger
	nextID int
	ops    []string
}

var _ reconciler.HostConfig = (*Host)(nil)

type Option func(*Host)

func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Host) { h.log = l }
}

func New(micro Microtasks, opts ...Option) *Host {
	h := &Host{micro: micro, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("component", "noop")
	return h
}

func (h *Host) NewContainer() *Container {
	return &Container{ID: uuid.New()}
}

// Ops is the journal of mutations since the last Reset, one line each.
func (h *Host) Ops() []string {
	return slices.Clone(h.ops)
}

func (h *Host) ResetOps() {
	h.ops = h.ops[:0]
}

func (h *Host) record(format string, args ...any) {
	op := fmt.Sprintf(format, args...)
	h.ops = append(h.ops, op)
	h.log.Debug(op)
}

func (h *Host) CreateInstance(typ string, props *reconciler.Props) reconciler.Instance {
	h.nextID++
	inst := &Instance{ID: h.nextID, Type: typ}
	if props != nil && len(props.Attrs) > 0 {
		inst.Attrs = make(value.Map, len(props.Attrs))
		for k, v := range props.Attrs {
			inst.Attrs[k] = v
		}
	}
	h.record("create %s", inst)
	return inst
}

func (h *Host) CreateTextInstance(content string) reconciler.Instance {
	h.nextID++
	inst := &Instance{ID: h.nextID, Text: content}
	h.record("create %s", inst)
	return inst
}

func (h *Host) AppendInitialChild(p, child reconciler.Instance) {
	h.appendChild(asParent(p), asInstance(child))
}

func (h *Host) AppendChildToContainer(child, container reconciler.Instance) {
	h.appendChild(asParent(container), asInstance(child))
}

func (h *Host) InsertChildToContainer(child, container, before reconciler.Instance) {
	p, c, b := asParent(container), asInstance(child), asInstance(before)
	h.detachForMove(p, c)
	list := p.list()
	idx := slices.Index(*list, b)
	if idx < 0 {
		panic(fmt.Sprintf("noop: insert %s before %s, which is not a child of %s", c, b, p))
	}
	*list = slices.Insert(*list, idx, c)
	c.parent = p
	h.record("insert %s into %s before %s", c, p, b)
}

func (h *Host) RemoveChild(child, container reconciler.Instance) {
	p, c := asParent(container), asInstance(child)
	list := p.list()
	idx := slices.Index(*list, c)
	if idx < 0 || c.parent != p {
		panic(fmt.Sprintf("noop: remove %s, which is not a child of %s", c, p))
	}
	*list = slices.Delete(*list, idx, idx+1)
	c.parent = nil
	h.record("remove %s from %s", c, p)
}

func (h *Host) CommitTextUpdate(text reconciler.Instance, content string) {
	t := asInstance(text)
	if !t.IsText() {
		panic(fmt.Sprintf("noop: text update on %s", t))
	}
	t.Text = content
	h.record("text %s", t)
}

func (h *Host) ScheduleMicrotask(fn func()) {
	h.micro.QueueMicrotask(fn)
}

func (h *Host) appendChild(p parent, c *Instance) {
	h.detachForMove(p, c)
	*p.list() = append(*p.list(), c)
	c.parent = p
	h.record("append %s to %s", c, p)
}

// detachForMove lets a child already under p be moved within p. A child
// owned by anyone else is a bug.
func (h *Host) detachForMove(p parent, c *Instance) {
	if c.parent == nil {
		return
	}
	if c.parent != p {
		panic(fmt.Sprintf("noop: %s is already a child of %s", c, c.parent))
	}
	list := p.list()
	*list = slices.DeleteFunc(*list, func(x *Instance) bool { return x == c })
	c.parent = nil
}

func asInstance(v reconciler.Instance) *Instance {
	inst, ok := v.(*Instance)
	if !ok {
		panic(fmt.Sprintf("noop: %T is not a noop instance", v))
	}
	return inst
}

func asParent(v reconciler.Instance) parent {
	switch p := v.(type) {
	case *Instance:
		if p.IsText() {
			panic(fmt.Sprintf("noop: text node %s cannot have children", p))
		}
		return p
	case *Container:
		return p
	default:
		panic(fmt.Sprintf("noop: %T cannot have children", v))
	}
}
