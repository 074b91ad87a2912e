package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextStackBalance(t *testing.T) {
	ctx := NewContext("theme", "empty")
	s := newContextStack()

	s.push(ctx, "A")
	s.push(ctx, "B")
	assert.Equal(t, "B", s.current(ctx))

	s.pop(ctx)
	assert.Equal(t, "A", s.current(ctx))

	s.pop(ctx)
	assert.Equal(t, "empty", s.current(ctx))
	assert.Zero(t, s.depth())
}

func TestContextStackRejectsUnbalancedPop(t *testing.T) {
	a, b := NewContext("a", nil), NewContext("b", nil)
	s := newContextStack()
	s.push(a, 1)
	assert.Panics(t, func() { s.pop(b) })
}

func TestUpdateQueueKeepsLateUpdates(t *testing.T) {
	q := &UpdateQueue{baseState: 1}
	q.enqueue(transformWith(func(prev any) any { return prev.(int) + 1 }))
	q.enqueue(transformWith(func(prev any) any { return prev.(int) * 10 }))

	state, n := q.process()
	require.Equal(t, 20, state)
	require.Equal(t, 2, n)

	// arrives after the render read the queue but before it commits
	q.enqueue(replaceWith(7))
	q.rebase(state, n)

	assert.Equal(t, 1, q.Len())
	state, _ = q.process()
	assert.Equal(t, 7, state)
}

func TestDiscardedRenderLeavesQueueAlone(t *testing.T) {
	r := &Reconciler{contexts: newContextStack()}
	boundary := newFiber(SuspenseComponent, &Props{}, "")
	inside := newFiber(FunctionComponent, &Props{}, "")
	inside.parent = boundary
	outside := newFiber(FunctionComponent, &Props{}, "")

	qIn := &UpdateQueue{baseState: 0}
	qIn.enqueue(replaceWith(1))
	qOut := &UpdateQueue{baseState: 0}
	qOut.enqueue(replaceWith(2))

	r.processUpdateQueue(inside, qIn)
	r.processUpdateQueue(outside, qOut)
	r.discardProcessedUnder(boundary)
	r.commitProcessedQueues()

	assert.Equal(t, 1, qIn.Len(), "thrown away with the boundary's first attempt")
	assert.Zero(t, qOut.Len())
	assert.Equal(t, 2, qOut.baseState)
}

func TestChildMapTakesByKeyThenIndex(t *testing.T) {
	keyed := newFiber(HostComponent, &Props{}, "k")
	keyed.index = 3
	first := newFiber(HostText, textProps("a"), "")
	second := newFiber(HostText, textProps("b"), "")
	second.index = 1
	first.sibling = keyed
	keyed.sibling = second

	m := newChildMap(first)
	assert.Same(t, keyed, m.take("k", 0))
	assert.Nil(t, m.take("k", 0))
	assert.Same(t, second, m.take("", 1))
	assert.True(t, m.holds(first))
	assert.False(t, m.holds(second))
}

func TestPlacementOnlyTrackedForUpdates(t *testing.T) {
	parent := newFiber(HostComponent, &Props{}, "")
	children := List{Text("a"), Text("b")}

	first := mountChildFibers.reconcile(parent, nil, children)
	for f := first; f != nil; f = f.sibling {
		assert.Zero(t, f.flags&Placement)
	}

	parent2 := newFiber(HostComponent, &Props{}, "")
	fresh := reconcileChildFibers.reconcile(parent2, nil, Text("c"))
	assert.NotZero(t, fresh.flags&Placement)
}

func TestReplacingAChildDeletesExactlyOnce(t *testing.T) {
	parent := newFiber(HostComponent, &Props{}, "")
	old := createFiberFromElement(H(Host("div"), nil).WithKey("x"))
	next := H(Host("span"), nil).WithKey("x")

	child := reconcileChildFibers.reconcile(parent, old, next)

	require.Len(t, parent.deletions, 1)
	assert.Same(t, old, parent.deletions[0])
	assert.NotZero(t, parent.flags&ChildDeletion)
	assert.NotZero(t, child.flags&Placement)
}

func TestReusedChildIsNotPlaced(t *testing.T) {
	parent := newFiber(HostComponent, &Props{}, "")
	old := createFiberFromElement(H(Host("div"), nil).WithKey("x"))

	child := reconcileChildFibers.reconcile(parent, old, H(Host("div"), nil).WithKey("x"))

	assert.Same(t, old, child.alternate)
	assert.Same(t, child, old.alternate)
	assert.Zero(t, child.flags&Placement)
	assert.Empty(t, parent.deletions)
}
