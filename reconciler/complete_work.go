package reconciler

import (
	"fmt"

	"github.com/delaneyj/fiberparty/lanes"
)

func (r *Reconciler) completeWork(wip *Fiber) error {
	current := wip.alternate
	props := wip.pendingProps

	switch wip.Tag {
	case HostComponent:
		if current == nil || wip.stateNode == nil {
			typ := string(wip.Type.(Host))
			inst := r.host.CreateInstance(typ, props)
			r.appendAllChildren(inst, wip)
			wip.stateNode = inst
		}
	case HostText:
		text := textOf(props)
		if current != nil && wip.stateNode != nil {
			if textOf(current.memoizedProps) != text {
				wip.flags |= Update
			}
		} else {
			wip.stateNode = r.host.CreateTextInstance(text)
		}
	case ContextProvider:
		r.popProvider(wip)
	case SuspenseComponent:
		r.popSuspenseHandler(wip)
		wip.flags &^= DidCapture
	case HostRoot, FunctionComponent, MemoComponent, FragmentTag:
	default:
		return fmt.Errorf("complete %s: unknown fiber tag", wip.Tag)
	}
	bubbleProperties(wip)
	return nil
}

// appendAllChildren attaches the nearest host descendants of wip to parent.
// Components and fragments in between have no host node of their own.
func (r *Reconciler) appendAllChildren(parent Instance, wip *Fiber) {
	node := wip.child
	for node != nil {
		if isHostNode(node) {
			r.host.AppendInitialChild(parent, node.stateNode)
		} else if node.child != nil {
			node.child.parent = node
			node = node.child
			continue
		}
		if node == wip {
			return
		}
		for node.sibling == nil {
			if node.parent == nil || node.parent == wip {
				return
			}
			node = node.parent
		}
		node.sibling.parent = node.parent
		node = node.sibling
	}
}

func bubbleProperties(wip *Fiber) {
	var subtreeFlags Flags
	childLanes := lanes.NoLanes
	for child := wip.child; child != nil; child = child.sibling {
		childLanes = lanes.Merge(childLanes, lanes.Merge(child.lanes, child.childLanes))
		subtreeFlags |= child.subtreeFlags | child.flags
		child.parent = wip
	}
	wip.subtreeFlags |= subtreeFlags
	wip.childLanes = childLanes
}
