package reconciler

import "fmt"

// commitMutationEffects applies placements, text updates and deletions. It
// only descends into subtrees whose subtreeFlags carry mutation work.
func (r *Reconciler) commitMutationEffects(root *Root, finished *Fiber) {
	next := finished
	for next != nil {
		r.commitDeletions(root, next)
		if child := next.child; child != nil && next.subtreeFlags&MutationMask != 0 {
			next = child
			continue
		}
		for next != nil {
			r.commitMutationEffectsOnFiber(next)
			if next == finished {
				return
			}
			if sib := next.sibling; sib != nil {
				next = sib
				break
			}
			next = next.parent
		}
	}
}

func (r *Reconciler) commitMutationEffectsOnFiber(f *Fiber) {
	if f.flags&Placement != 0 {
		r.commitPlacement(f)
		f.flags &^= Placement
	}
	if f.flags&Update != 0 {
		if f.Tag == HostText {
			r.host.CommitTextUpdate(f.stateNode, textOf(f.memoizedProps))
		}
		f.flags &^= Update
	}
	f.flags &^= ChildDeletion
	f.subtreeFlags &^= MutationMask
}

func (r *Reconciler) commitDeletions(root *Root, parent *Fiber) {
	if parent.flags&ChildDeletion == 0 {
		return
	}
	for _, child := range parent.deletions {
		hostParent := r.hostParentOf(parent)
		r.unmountSubtree(root, child, hostParent, true)
		child.parent = nil
		if alt := child.alternate; alt != nil {
			alt.parent = nil
		}
	}
}

// unmountSubtree removes the topmost host nodes of f from hostParent and
// releases refs and effects everywhere below.
func (r *Reconciler) unmountSubtree(root *Root, f *Fiber, hostParent Instance, removeHost bool) {
	switch f.Tag {
	case HostComponent, HostText:
		if f.Ref != nil {
			f.Ref.Current = nil
		}
		for c := f.child; c != nil; c = c.sibling {
			r.unmountSubtree(root, c, nil, false)
		}
		if removeHost {
			r.host.RemoveChild(f.stateNode, hostParent)
		}
		return
	case FunctionComponent, MemoComponent:
		if len(f.effects) > 0 {
			root.passive().unmount = append(root.passive().unmount, f.effects...)
		}
	}
	for c := f.child; c != nil; c = c.sibling {
		r.unmountSubtree(root, c, hostParent, removeHost)
	}
}

func (r *Reconciler) hostParentOf(f *Fiber) Instance {
	for n := f; n != nil; n = n.parent {
		switch n.Tag {
		case HostComponent:
			return n.stateNode
		case HostRoot:
			return n.stateNode.(*Root).container
		}
	}
	panic(fmt.Sprintf("reconciler: %s has no host parent", f))
}

func (r *Reconciler) commitPlacement(f *Fiber) {
	var parent *Fiber
	for parent = f.parent; parent != nil && !isHostParent(parent); parent = parent.parent {
	}
	if parent == nil {
		panic(fmt.Sprintf("reconciler: %s has no host parent", f))
	}

	var container Instance
	if parent.Tag == HostRoot {
		container = parent.stateNode.(*Root).container
	} else {
		container = parent.stateNode
	}
	r.insertOrAppendPlacementNode(f, getHostSibling(f), container)
}

func (r *Reconciler) insertOrAppendPlacementNode(f *Fiber, before, container Instance) {
	if isHostNode(f) {
		if before != nil {
			r.host.InsertChildToContainer(f.stateNode, container, before)
		} else {
			r.host.AppendChildToContainer(f.stateNode, container)
		}
		return
	}
	for c := f.child; c != nil; c = c.sibling {
		r.insertOrAppendPlacementNode(c, before, container)
	}
}

// getHostSibling finds the host node f has to be inserted before: the first
// host node after f, in tree order under the same host parent, that is not
// itself about to be placed.
func getHostSibling(f *Fiber) Instance {
	node := f
siblings:
	for {
		for node.sibling == nil {
			if node.parent == nil || isHostParent(node.parent) {
				return nil
			}
			node = node.parent
		}
		node.sibling.parent = node.parent
		node = node.sibling

		for !isHostNode(node) {
			if node.flags&Placement != 0 || node.child == nil {
				continue siblings
			}
			node.child.parent = node
			node = node.child
		}
		if node.flags&Placement == 0 {
			return node.stateNode
		}
	}
}

// commitLayoutEffects attaches refs and queues passive effects once the host
// tree is in its final shape.
func (r *Reconciler) commitLayoutEffects(root *Root, finished *Fiber) {
	const mask = LayoutMask | PassiveEffect
	next := finished
	for next != nil {
		if child := next.child; child != nil && next.subtreeFlags&mask != 0 {
			next = child
			continue
		}
		for next != nil {
			r.commitLayoutEffectsOnFiber(root, next)
			if next == finished {
				return
			}
			if sib := next.sibling; sib != nil {
				next = sib
				break
			}
			next = next.parent
		}
	}
}

func (r *Reconciler) commitLayoutEffectsOnFiber(root *Root, f *Fiber) {
	if f.flags&RefEffect != 0 {
		if current := f.alternate; current != nil && current.Ref != nil && current.Ref != f.Ref {
			current.Ref.Current = nil
		}
		if f.Ref != nil {
			f.Ref.Current = f.stateNode
		}
		f.flags &^= RefEffect
	}
	if f.flags&PassiveEffect != 0 {
		p := root.passive()
		p.mount = append(p.mount, f)
		f.flags &^= PassiveEffect
	}
	f.subtreeFlags &^= LayoutMask | PassiveEffect
}
