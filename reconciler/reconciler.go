// Package reconciler keeps a host tree in sync with the output of components.
// Renders build a work-in-progress fiber tree that can be paused and thrown
// away; only a completed tree is committed to the host, in one pass.
package reconciler

import (
	"github.com/delaneyj/fiberparty/lanes"
	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/delaneyj/fiberparty/telemetry"
	"github.com/sirupsen/logrus"
)

// Reconciler owns the render state for every root created through it. It
// is not safe for concurrent use; drive it from the scheduler's host loop.
type Reconciler struct {
	host    HostConfig
	sched   *scheduler.Scheduler
	log     logrus.FieldLogger
	metrics *telemetry.Reconciler
	onError func(error)

	executionContext executionContext
	wipRoot          *Root
	wip              *Fiber
	wipRenderLanes   lanes.Lanes

	contexts         *contextStack
	suspenseStack    []*Fiber
	didReceiveUpdate bool
	processed        []processedQueue

	syncQueue    []func() error
	flushingSync bool

	passiveRoots []*Root
	passiveTask  scheduler.TaskID

	nextRootID uint64
}

type Option func(*Reconciler)

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reconciler) { r.log = l }
}

func WithMetrics(m *telemetry.Reconciler) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithErrorHandler receives errors from sync work flushed on a microtask,
// where there is no caller to return them to.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Reconciler) { r.onError = fn }
}

func New(host HostConfig, sched *scheduler.Scheduler, opts ...Option) *Reconciler {
	r := &Reconciler{
		host:     host,
		sched:    sched,
		log:      logrus.StandardLogger(),
		contexts: newContextStack(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField("component", "reconciler")
	return r
}

func (r *Reconciler) Scheduler() *scheduler.Scheduler { return r.sched }

// CreateContainer makes a new, empty root rendering into container.
func (r *Reconciler) CreateContainer(container Instance) *Root {
	r.nextRootID++
	root := &Root{ID: r.nextRootID, container: container}
	root.current = createHostRootFiber(root)
	return root
}

// UpdateContainer schedules node to become the root's content, at the lane
// of the ambient scheduler priority. A nil node unmounts everything.
func (r *Reconciler) UpdateContainer(root *Root, node Node) lanes.Lane {
	lane := r.requestUpdateLane()
	root.current.updateQueue.enqueue(replaceWith(node))
	r.scheduleUpdateOnFiber(root.current, lane)
	return lane
}

// FlushSync runs fn at immediate priority and renders and commits the sync
// work it produced before returning.
func (r *Reconciler) FlushSync(fn func()) error {
	if r.executionContext != 0 {
		return ErrReentrant
	}
	if err := r.sched.RunWithPriority(scheduler.ImmediatePriority, func() error {
		fn()
		return nil
	}); err != nil {
		return err
	}
	return r.flushSyncCallbacks()
}

// StartTransition runs fn with updates it makes landing on the transition
// lane, behind default and input work.
func (r *Reconciler) StartTransition(fn func()) error {
	return r.sched.RunWithPriority(scheduler.LowPriority, func() error {
		fn()
		return nil
	})
}

// FlushPassiveEffects runs pending effects now instead of waiting for their
// scheduled task.
func (r *Reconciler) FlushPassiveEffects() bool {
	return r.flushPassiveEffects()
}
