package reconciler

import (
	"errors"
	"fmt"

	"github.com/delaneyj/fiberparty/lanes"
	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/sirupsen/logrus"
)

type executionContext uint8

const (
	renderContext executionContext = 1 << iota
	commitContext
)

type exitStatus uint8

const (
	rootIncomplete exitStatus = iota
	rootCompleted
	rootSuspended
	rootErrored
)

// ErrReentrant is returned when work on a root is requested from inside a
// render or a commit.
var ErrReentrant = errors.New("reconciler: render or commit already in progress")

func (r *Reconciler) requestUpdateLane() lanes.Lane {
	return lanes.FromSchedulerPriority(r.sched.CurrentPriorityLevel())
}

// markUpdateLaneFromFiberToRoot records lane on f and on the childLanes of
// every ancestor, in both trees. It returns nil when f is no longer mounted.
func markUpdateLaneFromFiberToRoot(f *Fiber, lane lanes.Lane) *Root {
	f.lanes = lanes.Merge(f.lanes, lane)
	if alt := f.alternate; alt != nil {
		alt.lanes = lanes.Merge(alt.lanes, lane)
	}
	node := f
	for parent := f.parent; parent != nil; parent = parent.parent {
		parent.childLanes = lanes.Merge(parent.childLanes, lane)
		if alt := parent.alternate; alt != nil {
			alt.childLanes = lanes.Merge(alt.childLanes, lane)
		}
		node = parent
	}
	if node.Tag != HostRoot {
		return nil
	}
	return node.stateNode.(*Root)
}

func (r *Reconciler) scheduleUpdateOnFiber(f *Fiber, lane lanes.Lane) {
	root := markUpdateLaneFromFiberToRoot(f, lane)
	if root == nil {
		r.log.WithField("fiber", f.String()).Debug("update on unmounted fiber dropped")
		return
	}
	root.markUpdated(lane)
	r.ensureRootIsScheduled(root)
}

// ensureRootIsScheduled makes sure exactly one callback is queued for the
// root's most urgent lane. An existing callback of the same priority is
// reused; anything else is cancelled and replaced.
func (r *Reconciler) ensureRootIsScheduled(root *Root) {
	next := root.nextLanes()
	existing := root.callbackNode

	if next == lanes.NoLanes {
		if existing != 0 {
			r.sched.CancelCallback(existing)
		}
		root.callbackNode = 0
		root.callbackPriority = lanes.NoLane
		return
	}

	priority := lanes.Highest(next)
	if priority == root.callbackPriority {
		return
	}
	if existing != 0 {
		r.sched.CancelCallback(existing)
	}

	if priority == lanes.SyncLane {
		r.syncQueue = append(r.syncQueue, func() error {
			return r.performSyncWorkOnRoot(root)
		})
		r.host.ScheduleMicrotask(r.flushSyncMicrotask)
		root.callbackNode = 0
	} else {
		root.callbackNode = r.sched.ScheduleCallback(
			lanes.ToSchedulerPriority(priority),
			func(didTimeout bool) (scheduler.Result, error) {
				return r.performConcurrentWorkOnRoot(root, didTimeout)
			},
			0,
		)
	}
	root.callbackPriority = priority
}

func (r *Reconciler) flushSyncMicrotask() {
	if err := r.flushSyncCallbacks(); err != nil {
		r.reportError(err)
	}
}

// flushSyncCallbacks drains the sync queue, including callbacks queued
// while draining.
func (r *Reconciler) flushSyncCallbacks() error {
	if r.flushingSync || len(r.syncQueue) == 0 {
		return nil
	}
	r.flushingSync = true
	defer func() { r.flushingSync = false }()

	var errs []error
	for len(r.syncQueue) > 0 {
		queue := r.syncQueue
		r.syncQueue = nil
		for _, cb := range queue {
			if err := cb(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Reconciler) performSyncWorkOnRoot(root *Root) error {
	if r.executionContext != 0 {
		return ErrReentrant
	}
	r.flushPassiveEffects()

	next := root.nextLanes()
	if !lanes.IncludesAny(next, lanes.SyncLane) {
		r.ensureRootIsScheduled(root)
		return nil
	}
	status, rendered, err := r.renderRoot(root, next, false)
	return r.finishRender(root, rendered, status, err)
}

func (r *Reconciler) performConcurrentWorkOnRoot(root *Root, didTimeout bool) (scheduler.Result, error) {
	if r.executionContext != 0 {
		return scheduler.Done(), ErrReentrant
	}

	original := root.callbackNode
	if r.flushPassiveEffects() && root.callbackNode != original {
		// an effect scheduled something else for this root
		return scheduler.Done(), nil
	}

	next := root.nextLanes()
	if next == lanes.NoLanes {
		return scheduler.Done(), nil
	}

	timeSlice := !didTimeout && !lanes.IncludesAny(next, lanes.SyncLane)
	status, rendered, err := r.renderRoot(root, next, timeSlice)
	if err == nil && status == rootIncomplete {
		if root.callbackNode == original {
			return scheduler.Continue(func(didTimeout bool) (scheduler.Result, error) {
				return r.performConcurrentWorkOnRoot(root, didTimeout)
			}), nil
		}
		return scheduler.Done(), nil
	}
	return scheduler.Done(), r.finishRender(root, rendered, status, err)
}

func (r *Reconciler) finishRender(root *Root, rendered lanes.Lanes, status exitStatus, err error) error {
	log := r.log.WithFields(logrus.Fields{"root": root.ID, "lanes": rendered})
	switch {
	case err != nil:
		root.dropLanes(rendered)
		r.metrics.Failed()
		log.WithError(err).Error("render failed")
		r.ensureRootIsScheduled(root)
		return fmt.Errorf("render root %d: %w", root.ID, err)
	case status == rootSuspended:
		root.markSuspended(rendered)
		r.metrics.Suspended()
		log.Debug("render suspended")
		r.ensureRootIsScheduled(root)
	case status == rootCompleted:
		root.finishedWork = root.current.alternate
		root.finishedLanes = rendered
		r.commitRoot(root)
	}
	return nil
}

// renderRoot builds the work-in-progress tree for renderLanes. A render
// already in flight on root continues when it covers renderLanes; otherwise
// the stack is rebuilt, folding the interrupted lanes into the new render so
// their updates are not applied out of order.
func (r *Reconciler) renderRoot(root *Root, renderLanes lanes.Lanes, timeSlice bool) (exitStatus, lanes.Lanes, error) {
	prev := r.executionContext
	r.executionContext |= renderContext
	defer func() { r.executionContext = prev }()

	if r.wipRoot != root || !lanes.IsSubset(r.wipRenderLanes, renderLanes) {
		if r.wipRoot == root {
			renderLanes = lanes.Merge(renderLanes, r.wipRenderLanes)
		}
		r.prepareFreshStack(root, renderLanes)
	}
	renderLanes = r.wipRenderLanes

	for {
		var err error
		if timeSlice {
			err = r.workLoopConcurrent()
		} else {
			err = r.workLoopSync()
		}
		if err == nil {
			break
		}

		var suspended *SuspendedError
		if !errors.As(err, &suspended) {
			r.resetWorkInProgressStack()
			return rootErrored, renderLanes, err
		}
		if r.throwException(root, suspended.Thenable, renderLanes) == nil {
			r.resetWorkInProgressStack()
			return rootSuspended, renderLanes, nil
		}
		r.unwindUnitOfWork(r.wip)
	}

	if r.wip != nil {
		return rootIncomplete, renderLanes, nil
	}
	r.wipRoot = nil
	r.wipRenderLanes = lanes.NoLanes
	return rootCompleted, renderLanes, nil
}

func (r *Reconciler) prepareFreshStack(root *Root, renderLanes lanes.Lanes) {
	if r.wip != nil {
		r.metrics.Interrupted()
		r.log.WithFields(logrus.Fields{
			"root":  root.ID,
			"was":   r.wipRenderLanes,
			"lanes": renderLanes,
		}).Debug("render interrupted")
	}
	r.resetWorkInProgressStack()
	root.finishedWork = nil
	root.finishedLanes = lanes.NoLanes

	r.wipRoot = root
	r.wip = createWorkInProgress(root.current, nil)
	r.wipRenderLanes = renderLanes
	r.metrics.Started()
}

func (r *Reconciler) resetWorkInProgressStack() {
	r.contexts.reset()
	r.suspenseStack = r.suspenseStack[:0]
	r.processed = r.processed[:0]
	r.wip = nil
	r.wipRoot = nil
	r.wipRenderLanes = lanes.NoLanes
}

func (r *Reconciler) workLoopSync() error {
	for r.wip != nil {
		if err := r.performUnitOfWork(r.wip); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) workLoopConcurrent() error {
	for r.wip != nil && !r.sched.ShouldYield() {
		if err := r.performUnitOfWork(r.wip); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) performUnitOfWork(unit *Fiber) error {
	next, err := r.beginWork(unit, r.wipRenderLanes)
	if err != nil {
		return err
	}
	unit.memoizedProps = unit.pendingProps
	if next == nil {
		return r.completeUnitOfWork(unit)
	}
	r.wip = next
	return nil
}

func (r *Reconciler) completeUnitOfWork(unit *Fiber) error {
	node := unit
	for node != nil {
		if err := r.completeWork(node); err != nil {
			return err
		}
		if sib := node.sibling; sib != nil {
			r.wip = sib
			return nil
		}
		node = node.parent
		r.wip = node
	}
	return nil
}

func (r *Reconciler) commitRoot(root *Root) {
	r.flushPassiveEffects()

	finished := root.finishedWork
	if finished == nil {
		return
	}
	committed := root.finishedLanes
	root.finishedWork = nil
	root.finishedLanes = lanes.NoLanes
	root.callbackNode = 0
	root.callbackPriority = lanes.NoLane

	start := r.sched.Now()
	root.markFinished(lanes.Merge(finished.lanes, finished.childLanes))
	r.commitProcessedQueues()

	prev := r.executionContext
	r.executionContext |= commitContext
	if (finished.subtreeFlags|finished.flags)&(MutationMask|LayoutMask|PassiveMask) != 0 {
		r.commitMutationEffects(root, finished)
		root.current = finished
		r.commitLayoutEffects(root, finished)
	} else {
		root.current = finished
	}
	r.executionContext = prev

	if p := root.pendingPassive; p != nil && !p.empty() {
		r.schedulePassiveFlush(root)
	}
	took := r.sched.Now() - start
	r.metrics.Committed(took)
	r.log.WithFields(logrus.Fields{
		"root":  root.ID,
		"lanes": committed,
		"took":  took,
	}).Debug("commit")

	r.ensureRootIsScheduled(root)
}

func (r *Reconciler) schedulePassiveFlush(root *Root) {
	for _, pending := range r.passiveRoots {
		if pending == root {
			return
		}
	}
	r.passiveRoots = append(r.passiveRoots, root)
	if r.passiveTask != 0 {
		return
	}
	r.passiveTask = r.sched.ScheduleCallback(scheduler.NormalPriority, func(bool) (scheduler.Result, error) {
		r.passiveTask = 0
		r.flushPassiveEffects()
		return scheduler.Done(), nil
	}, 0)
}

// flushPassiveEffects runs the effect cleanups and then the effects queued
// by earlier commits. It reports whether there was anything to run.
func (r *Reconciler) flushPassiveEffects() bool {
	if len(r.passiveRoots) == 0 {
		return false
	}
	roots := r.passiveRoots
	r.passiveRoots = nil
	for _, root := range roots {
		p := root.pendingPassive
		root.pendingPassive = nil
		if p != nil {
			p.flush()
		}
	}
	return true
}

func (r *Reconciler) reportError(err error) {
	if r.onError != nil {
		r.onError(err)
		return
	}
	r.log.WithError(err).Error("unhandled reconciler error")
}
