package reconciler

// unwindWork pops whatever wip pushed on the way down. A boundary that was
// marked to capture turns the mark into DidCapture and is returned so it
// can render its fallback.
func (r *Reconciler) unwindWork(wip *Fiber) *Fiber {
	switch wip.Tag {
	case SuspenseComponent:
		r.popSuspenseHandler(wip)
		if wip.flags&ShouldCapture != 0 && wip.flags&DidCapture == 0 {
			wip.flags = wip.flags&^ShouldCapture | DidCapture
			return wip
		}
	case ContextProvider:
		r.popProvider(wip)
	}
	return nil
}

// unwindUnitOfWork climbs from the fiber that suspended to the boundary that
// caught it and resumes rendering there. With no boundary the render is left
// with nothing to do.
func (r *Reconciler) unwindUnitOfWork(unit *Fiber) {
	for f := unit; f != nil; f = f.parent {
		if boundary := r.unwindWork(f); boundary != nil {
			r.resetBoundary(boundary)
			r.wip = boundary
			return
		}
		if f.Tag == HostRoot {
			break
		}
	}
	r.wip = nil
}

// resetBoundary forgets what the boundary's first attempt produced. Its
// children are diffed again from the committed tree.
func (r *Reconciler) resetBoundary(b *Fiber) {
	b.deletions = nil
	b.flags &^= ChildDeletion
	b.subtreeFlags = NoFlags
	if current := b.alternate; current != nil {
		b.child = current.child
	} else {
		b.child = nil
	}
	r.discardProcessedUnder(b)
}
