package reconciler

import (
	"errors"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/fiberparty/lanes"
	"github.com/sirupsen/logrus"
)

type ThenableStatus uint8

const (
	Pending ThenableStatus = iota
	Fulfilled
	Rejected
)

// Thenable is a value a component can wait on. Implementations must be
// comparable (usually a pointer) and must call Then listeners on the
// reconciler's loop.
type Thenable interface {
	Status() ThenableStatus
	Value() any
	Err() error
	// Then registers fn to run once the thenable settles. If it already has,
	// fn runs right away.
	Then(fn func())
}

// Promise is a Thenable settled by hand.
type Promise struct {
	status    ThenableStatus
	value     any
	err       error
	listeners []func()
}

func NewPromise() *Promise {
	return &Promise{}
}

func ResolvedPromise(v any) *Promise {
	return &Promise{status: Fulfilled, value: v}
}

func (p *Promise) Status() ThenableStatus { return p.status }
func (p *Promise) Value() any             { return p.value }
func (p *Promise) Err() error             { return p.err }

func (p *Promise) Then(fn func()) {
	if p.status != Pending {
		fn()
		return
	}
	p.listeners = append(p.listeners, fn)
}

func (p *Promise) Resolve(v any) {
	if p.status != Pending {
		return
	}
	p.status, p.value = Fulfilled, v
	p.settle()
}

func (p *Promise) Reject(err error) {
	if p.status != Pending {
		return
	}
	p.status, p.err = Rejected, err
	p.settle()
}

func (p *Promise) settle() {
	listeners := p.listeners
	p.listeners = nil
	for _, fn := range listeners {
		fn()
	}
}

var ErrSuspended = errors.New("render suspended on a pending thenable")

// SuspendedError is returned by Use while its thenable is pending. A
// component returns it unchanged so the nearest Suspense boundary can catch
// it.
type SuspendedError struct {
	Thenable Thenable
}

func (e *SuspendedError) Error() string { return ErrSuspended.Error() }

func (e *SuspendedError) Is(target error) bool { return target == ErrSuspended }

func (r *Reconciler) pushSuspenseHandler(f *Fiber) {
	r.suspenseStack = append(r.suspenseStack, f)
}

func (r *Reconciler) popSuspenseHandler(f *Fiber) {
	n := len(r.suspenseStack)
	if n == 0 || r.suspenseStack[n-1] != f {
		panic("reconciler: unbalanced suspense boundary pop")
	}
	r.suspenseStack = r.suspenseStack[:n-1]
}

// openBoundary is the innermost boundary that is not already showing its
// fallback in this render.
func (r *Reconciler) openBoundary() *Fiber {
	for i := len(r.suspenseStack) - 1; i >= 0; i-- {
		if b := r.suspenseStack[i]; b.flags&DidCapture == 0 {
			return b
		}
	}
	return nil
}

// throwException marks the boundary that will catch th and arranges for the
// root to be retried when th settles. It returns nil when nothing catches.
func (r *Reconciler) throwException(root *Root, th Thenable, renderLanes lanes.Lanes) *Fiber {
	boundary := r.openBoundary()
	if boundary != nil {
		boundary.flags |= ShouldCapture
	}
	r.attachPingListener(root, th, renderLanes, boundary)
	return boundary
}

func (r *Reconciler) attachPingListener(root *Root, th Thenable, renderLanes lanes.Lanes, boundary *Fiber) {
	if root.pingCache == nil {
		root.pingCache = map[Thenable]mapset.Set[lanes.Lane]{}
	}
	seen, ok := root.pingCache[th]
	if !ok {
		seen = mapset.NewThreadUnsafeSet[lanes.Lane]()
		root.pingCache[th] = seen
	}
	if !seen.Add(renderLanes) {
		return
	}
	th.Then(func() {
		r.pingSuspendedRoot(root, th, renderLanes, boundary)
	})
}

func (r *Reconciler) pingSuspendedRoot(root *Root, th Thenable, pinged lanes.Lanes, boundary *Fiber) {
	delete(root.pingCache, th)
	r.log.WithFields(logrus.Fields{"root": root.ID, "lanes": pinged}).Debug("ping")

	if boundary == nil {
		root.markPinged(pinged)
		r.ensureRootIsScheduled(root)
		return
	}

	lane := lanes.Highest(pinged)
	if target := markUpdateLaneFromFiberToRoot(boundary, lane); target != nil {
		target.markUpdated(lane)
		r.ensureRootIsScheduled(target)
	}
}
