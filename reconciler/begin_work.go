package reconciler

import (
	"fmt"

	"github.com/delaneyj/fiberparty/lanes"
	"github.com/delaneyj/fiberparty/value"
)

// beginWork renders wip and returns the child to visit next, or nil when
// the subtree below wip is already done.
func (r *Reconciler) beginWork(wip *Fiber, renderLanes lanes.Lanes) (*Fiber, error) {
	if current := wip.alternate; current != nil {
		if current.memoizedProps != wip.pendingProps || current.Type != wip.Type {
			r.didReceiveUpdate = true
		} else if !lanes.IncludesAny(current.lanes, renderLanes) && wip.flags&DidCapture == 0 {
			r.didReceiveUpdate = false
			return r.attemptEarlyBailout(wip, renderLanes), nil
		} else {
			r.didReceiveUpdate = false
		}
	} else {
		r.didReceiveUpdate = false
	}

	wip.lanes = lanes.NoLanes

	switch wip.Tag {
	case HostRoot:
		return r.updateHostRoot(wip, renderLanes), nil
	case HostComponent:
		return r.updateHostComponent(wip), nil
	case HostText:
		return nil, nil
	case FragmentTag:
		r.reconcileChildren(wip, wip.pendingProps.Children)
		return wip.child, nil
	case ContextProvider:
		return r.updateContextProvider(wip, renderLanes), nil
	case FunctionComponent:
		return r.updateFunctionComponent(wip, wip.Type.(*Component), renderLanes)
	case MemoComponent:
		return r.updateMemoComponent(wip, wip.Type.(*Memo), renderLanes)
	case SuspenseComponent:
		return r.updateSuspenseComponent(wip, renderLanes), nil
	default:
		return nil, fmt.Errorf("begin %s: unknown fiber tag", wip.Tag)
	}
}

// attemptEarlyBailout skips wip but keeps the stacks balanced: whatever
// completeWork pops for this tag has to be pushed here too.
func (r *Reconciler) attemptEarlyBailout(wip *Fiber, renderLanes lanes.Lanes) *Fiber {
	switch wip.Tag {
	case ContextProvider:
		r.pushProvider(wip, wip.memoizedProps.Value)
	case SuspenseComponent:
		r.pushSuspenseHandler(wip)
	}
	return r.bailoutOnAlreadyFinishedWork(wip, renderLanes)
}

func (r *Reconciler) bailoutOnAlreadyFinishedWork(wip *Fiber, renderLanes lanes.Lanes) *Fiber {
	if !lanes.IncludesAny(wip.childLanes, renderLanes) {
		return nil
	}
	cloneChildFibers(wip)
	return wip.child
}

// cloneChildFibers swaps wip's children, still shared with current, for
// their work-in-progress twins.
func cloneChildFibers(wip *Fiber) {
	currentChild := wip.child
	if currentChild == nil {
		return
	}
	newChild := createWorkInProgress(currentChild, currentChild.pendingProps)
	wip.child = newChild
	newChild.parent = wip
	for currentChild.sibling != nil {
		currentChild = currentChild.sibling
		newChild.sibling = createWorkInProgress(currentChild, currentChild.pendingProps)
		newChild = newChild.sibling
		newChild.parent = wip
	}
	newChild.sibling = nil
}

func (r *Reconciler) updateHostRoot(wip *Fiber, renderLanes lanes.Lanes) *Fiber {
	prev, _ := wip.memoizedState.(Node)
	next, _ := r.processUpdateQueue(wip, wip.updateQueue).(Node)
	wip.memoizedState = next
	if sameNode(prev, next) {
		return r.bailoutOnAlreadyFinishedWork(wip, renderLanes)
	}
	r.reconcileChildren(wip, next)
	return wip.child
}

func (r *Reconciler) updateHostComponent(wip *Fiber) *Fiber {
	markRef(wip.alternate, wip)
	r.reconcileChildren(wip, wip.pendingProps.Children)
	return wip.child
}

func markRef(current, wip *Fiber) {
	if (current == nil && wip.Ref != nil) || (current != nil && current.Ref != wip.Ref) {
		wip.flags |= RefEffect
	}
}

func (r *Reconciler) updateContextProvider(wip *Fiber, renderLanes lanes.Lanes) *Fiber {
	ctx := wip.Type.(*Provider).context
	oldProps, newProps := wip.memoizedProps, wip.pendingProps
	r.contexts.push(ctx, newProps.Value)

	if oldProps != nil {
		if value.Identical(oldProps.Value, newProps.Value) {
			if sameNode(oldProps.Children, newProps.Children) {
				return r.bailoutOnAlreadyFinishedWork(wip, renderLanes)
			}
		} else {
			r.propagateContextChange(wip, ctx, renderLanes)
		}
	}
	r.reconcileChildren(wip, newProps.Children)
	return wip.child
}

func (r *Reconciler) updateFunctionComponent(wip *Fiber, c *Component, renderLanes lanes.Lanes) (*Fiber, error) {
	r.prepareToReadContext(wip, renderLanes)
	children, err := r.renderWithHooks(wip, c, renderLanes)
	if err != nil {
		return nil, err
	}
	if current := wip.alternate; current != nil && !r.didReceiveUpdate {
		bailoutHooks(current, wip, renderLanes)
		return r.bailoutOnAlreadyFinishedWork(wip, renderLanes), nil
	}
	r.reconcileChildren(wip, children)
	return wip.child, nil
}

func (r *Reconciler) updateMemoComponent(wip *Fiber, m *Memo, renderLanes lanes.Lanes) (*Fiber, error) {
	if current := wip.alternate; current != nil && !lanes.IncludesAny(current.lanes, renderLanes) {
		compare := m.Compare
		if compare == nil {
			compare = ShallowEqual
		}
		if current.Ref == wip.Ref && compare(current.memoizedProps, wip.pendingProps) {
			// keep the committed props so identity checks below us still hold
			wip.pendingProps = current.memoizedProps
			r.didReceiveUpdate = false
			return r.bailoutOnAlreadyFinishedWork(wip, renderLanes), nil
		}
	}
	return r.updateFunctionComponent(wip, m.Component, renderLanes)
}

func (r *Reconciler) updateSuspenseComponent(wip *Fiber, renderLanes lanes.Lanes) *Fiber {
	r.pushSuspenseHandler(wip)
	props := wip.pendingProps
	next := props.Children
	if wip.flags&DidCapture != 0 {
		next = props.Fallback
	}
	r.reconcileChildren(wip, next)
	return wip.child
}

func (r *Reconciler) reconcileChildren(wip *Fiber, next Node) {
	if current := wip.alternate; current == nil {
		wip.child = mountChildFibers.reconcile(wip, nil, next)
	} else {
		wip.child = reconcileChildFibers.reconcile(wip, current.child, next)
	}
}
