package reconciler

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/fiberparty/lanes"
)

// Context carries a value down the tree to every component that reads it,
// without threading it through props.
type Context struct {
	Name         string
	defaultValue any
	provider     *Provider
}

func NewContext(name string, defaultValue any) *Context {
	c := &Context{Name: name, defaultValue: defaultValue}
	c.provider = &Provider{context: c}
	return c
}

func (c *Context) Default() any { return c.defaultValue }

func (c *Context) Provider() *Provider { return c.provider }

// Provide is shorthand for an element of the context's provider type.
func (c *Context) Provide(v any, children ...Node) *Element {
	return H(c.provider, &Props{Value: v}, children...)
}

type Provider struct {
	context *Context
}

func (*Provider) isType() {}

func (p *Provider) Context() *Context { return p.context }

// contextStack holds provider values for the render in progress. Values
// live here rather than on the Context so several reconcilers can share
// Context values.
type contextStack struct {
	entries []contextEntry
	values  map[*Context]any
}

type contextEntry struct {
	ctx     *Context
	prev    any
	hadPrev bool
}

func newContextStack() *contextStack {
	return &contextStack{values: map[*Context]any{}}
}

func (s *contextStack) current(ctx *Context) any {
	if v, ok := s.values[ctx]; ok {
		return v
	}
	return ctx.defaultValue
}

func (s *contextStack) push(ctx *Context, v any) {
	prev, had := s.values[ctx]
	s.entries = append(s.entries, contextEntry{ctx: ctx, prev: prev, hadPrev: had})
	s.values[ctx] = v
}

func (s *contextStack) pop(ctx *Context) {
	if len(s.entries) == 0 {
		delete(s.values, ctx)
		return
	}
	top := s.entries[len(s.entries)-1]
	if top.ctx != ctx {
		panic(fmt.Sprintf("reconciler: unbalanced context pop, expected %q got %q", top.ctx.Name, ctx.Name))
	}
	s.entries = s.entries[:len(s.entries)-1]
	if top.hadPrev {
		s.values[ctx] = top.prev
	} else {
		delete(s.values, ctx)
	}
}

func (s *contextStack) depth() int {
	return len(s.entries)
}

func (s *contextStack) reset() {
	s.entries = s.entries[:0]
	clear(s.values)
}

func (r *Reconciler) pushProvider(f *Fiber, v any) {
	r.contexts.push(f.Type.(*Provider).context, v)
}

func (r *Reconciler) popProvider(f *Fiber) {
	r.contexts.pop(f.Type.(*Provider).context)
}

func (r *Reconciler) prepareToReadContext(wip *Fiber, renderLanes lanes.Lanes) {
	if deps := wip.dependencies; deps != nil && lanes.IncludesAny(deps.lanes, renderLanes) {
		r.didReceiveUpdate = true
	}
	wip.dependencies = nil
}

func (r *Reconciler) readContext(f *Fiber, ctx *Context) any {
	if f.dependencies == nil {
		f.dependencies = &dependencies{}
	}
	if f.dependencies.contexts == nil {
		f.dependencies.contexts = mapset.NewThreadUnsafeSet[*Context]()
	}
	f.dependencies.contexts.Add(ctx)
	return r.contexts.current(ctx)
}

// propagateContextChange marks every fiber under wip that read ctx so it
// re-renders even if nothing else changed for it. Nested providers of the
// same context shadow it and stop the walk.
func (r *Reconciler) propagateContextChange(wip *Fiber, ctx *Context, renderLanes lanes.Lanes) {
	fiber := wip.child
	if fiber != nil {
		fiber.parent = wip
	}
	for fiber != nil {
		var next *Fiber
		switch {
		case fiber.dependencies != nil && fiber.dependencies.contexts != nil && fiber.dependencies.contexts.Contains(ctx):
			fiber.lanes = lanes.Merge(fiber.lanes, renderLanes)
			if alt := fiber.alternate; alt != nil {
				alt.lanes = lanes.Merge(alt.lanes, renderLanes)
			}
			scheduleContextWorkOnParentPath(fiber.parent, renderLanes, wip)
			fiber.dependencies.lanes = lanes.Merge(fiber.dependencies.lanes, renderLanes)
			next = fiber.child
		case fiber.Tag == ContextProvider && fiber.Type == wip.Type:
			next = nil
		default:
			next = fiber.child
		}

		if next != nil {
			next.parent = fiber
		} else {
			next = fiber
			for next != nil {
				if next == wip {
					next = nil
					break
				}
				if sib := next.sibling; sib != nil {
					sib.parent = next.parent
					next = sib
					break
				}
				next = next.parent
			}
		}
		fiber = next
	}
}

func scheduleContextWorkOnParentPath(parent *Fiber, renderLanes lanes.Lanes, propagationRoot *Fiber) {
	for node := parent; node != nil; node = node.parent {
		alt := node.alternate
		if !lanes.IsSubset(node.childLanes, renderLanes) {
			node.childLanes = lanes.Merge(node.childLanes, renderLanes)
			if alt != nil {
				alt.childLanes = lanes.Merge(alt.childLanes, renderLanes)
			}
		} else if alt != nil && !lanes.IsSubset(alt.childLanes, renderLanes) {
			alt.childLanes = lanes.Merge(alt.childLanes, renderLanes)
		}
		if node == propagationRoot {
			return
		}
	}
}
