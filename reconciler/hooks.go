package reconciler

import (
	"fmt"

	"github.com/delaneyj/fiberparty/lanes"
	"github.com/delaneyj/fiberparty/value"
)

// Hooks is handed to a component for the duration of one render. Hooks
// must be called in the same order on every render of a component and
// never after Render has returned.
type Hooks struct {
	r           *Reconciler
	fiber       *Fiber
	renderLanes lanes.Lanes
	updating    bool
	current     *hook
	last        *hook
	done        bool
}

type hook struct {
	state    any
	queue    *UpdateQueue
	dispatch any
	deps     []any
	effect   *effect
	next     *hook
}

type effectInstance struct {
	destroy func()
}

type effect struct {
	create    func() func()
	deps      []any
	inst      *effectInstance
	hasEffect bool
}

// passiveEffects is what a commit leaves for the passive flush: cleanups of
// unmounted components and the fibers whose effects have to run.
type passiveEffects struct {
	unmount []*effect
	mount   []*Fiber
}

func (p *passiveEffects) empty() bool {
	return len(p.unmount) == 0 && len(p.mount) == 0
}

func (p *passiveEffects) flush() {
	for _, e := range p.unmount {
		e.inst.runDestroy()
	}
	for _, f := range p.mount {
		for _, e := range f.effects {
			if e.hasEffect {
				e.inst.runDestroy()
			}
		}
	}
	for _, f := range p.mount {
		for _, e := range f.effects {
			if e.hasEffect {
				e.inst.destroy = e.create()
			}
		}
	}
}

func (i *effectInstance) runDestroy() {
	if d := i.destroy; d != nil {
		i.destroy = nil
		d()
	}
}

func (r *Reconciler) renderWithHooks(wip *Fiber, c *Component, renderLanes lanes.Lanes) (Node, error) {
	h := &Hooks{r: r, fiber: wip, renderLanes: renderLanes}
	if current := wip.alternate; current != nil {
		h.updating = true
		h.current, _ = current.memoizedState.(*hook)
	}
	wip.memoizedState = nil
	wip.effects = nil

	children, err := c.Render(h, wip.pendingProps)
	h.done = true
	if err != nil {
		return nil, err
	}
	if h.current != nil {
		return nil, fmt.Errorf("%s rendered fewer hooks than during the previous render", c.Name)
	}
	return children, nil
}

// bailoutHooks keeps the committed effects when a component rendered but
// produced nothing new.
func bailoutHooks(current, wip *Fiber, renderLanes lanes.Lanes) {
	wip.flags &^= PassiveEffect
	wip.effects = current.effects
	current.lanes = lanes.Remove(current.lanes, renderLanes)
}

func (h *Hooks) next() (wip, prev *hook) {
	if h.done {
		panic("reconciler: hook called outside of render")
	}
	if h.updating {
		if h.current == nil {
			panic(fmt.Sprintf("reconciler: %s rendered more hooks than during the previous render", h.fiber))
		}
		prev = h.current
		h.current = h.current.next
	}

	wip = &hook{}
	if prev != nil {
		*wip = *prev
		wip.next = nil
	}
	if h.last == nil {
		h.fiber.memoizedState = wip
	} else {
		h.last.next = wip
	}
	h.last = wip
	return wip, prev
}

// SetState enqueues an update for the state it was returned with.
type SetState[T any] func(update func(prev T) T)

func (s SetState[T]) Set(v T) {
	s(func(T) T { return v })
}

func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

func UseState[T any](h *Hooks, initial T) (T, SetState[T]) {
	hk, prev := h.next()
	if prev == nil {
		q := &UpdateQueue{baseState: initial}
		hk.state, hk.queue = initial, q
		fiber, r := h.fiber, h.r
		hk.dispatch = SetState[T](func(fn func(T) T) {
			r.dispatchUpdate(fiber, q, func(prev any) any { return fn(as[T](prev)) })
		})
		return initial, hk.dispatch.(SetState[T])
	}

	state := h.r.processUpdateQueue(h.fiber, hk.queue)
	if !value.Identical(state, prev.state) {
		h.r.didReceiveUpdate = true
	}
	hk.state = state
	return as[T](state), hk.dispatch.(SetState[T])
}

func UseReducer[S, A any](h *Hooks, reducer func(S, A) S, initial S) (S, func(A)) {
	state, set := UseState(h, initial)
	return state, func(action A) {
		set(func(prev S) S { return reducer(prev, action) })
	}
}

func (r *Reconciler) dispatchUpdate(f *Fiber, q *UpdateQueue, reduce func(any) any) {
	q.enqueue(transformWith(reduce))
	r.scheduleUpdateOnFiber(f, r.requestUpdateLane())
}

// UseRef returns the same Ref on every render.
func (h *Hooks) UseRef(initial any) *Ref {
	hk, prev := h.next()
	if prev == nil {
		hk.state = &Ref{Current: initial}
	}
	return hk.state.(*Ref)
}

// UseMemo recomputes only when deps change. Nil deps recompute every render.
func UseMemo[T any](h *Hooks, compute func() T, deps []any) T {
	hk, prev := h.next()
	if prev != nil && deps != nil && depsEqual(prev.deps, deps) {
		return as[T](prev.state)
	}
	v := compute()
	hk.state, hk.deps = v, deps
	return v
}

// UseCallback returns the fn from the render where deps last changed.
func UseCallback[T any](h *Hooks, fn T, deps []any) T {
	return UseMemo(h, func() T { return fn }, deps)
}

func (h *Hooks) UseContext(ctx *Context) any {
	if h.done {
		panic("reconciler: hook called outside of render")
	}
	return h.r.readContext(h.fiber, ctx)
}

// UseEffect runs create after the commit that first mounts the component
// and again after any commit where deps changed. The function create
// returns, if any, runs before the next create and on unmount.
func (h *Hooks) UseEffect(create func() func(), deps []any) {
	hk, prev := h.next()
	e := &effect{create: create, deps: deps, hasEffect: true}
	if prev == nil || prev.effect == nil {
		e.inst = &effectInstance{}
	} else {
		e.inst = prev.effect.inst
		if deps != nil && depsEqual(prev.effect.deps, deps) {
			e.hasEffect = false
		}
	}
	if e.hasEffect {
		h.fiber.flags |= PassiveEffect
	}
	hk.effect = e
	h.fiber.effects = append(h.fiber.effects, e)
}

// Use unwraps a thenable. While it is pending the returned error is a
// *SuspendedError the component should return as is.
func (h *Hooks) Use(th Thenable) (any, error) {
	switch th.Status() {
	case Fulfilled:
		return th.Value(), nil
	case Rejected:
		return nil, th.Err()
	default:
		return nil, &SuspendedError{Thenable: th}
	}
}

func depsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !value.Identical(a[i], b[i]) {
			return false
		}
	}
	return true
}
