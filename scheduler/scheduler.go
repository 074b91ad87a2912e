// Package scheduler is a cooperative, priority based task scheduler.
//
// Ready tasks sit in a min-heap ordered by expiration time, delayed tasks in a
// second min-heap ordered by start time. The scheduler never runs on its own:
// it asks a Host to call back into it as a macrotask, runs tasks until its
// frame budget is spent, and then asks again. Everything happens on the host's
// single logical thread, so a Scheduler is not safe for concurrent use.
package scheduler

import (
	"fmt"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/delaneyj/fiberparty/telemetry"
	"github.com/sirupsen/logrus"
)

// Host is the event loop a Scheduler runs on.
type Host interface {
	// PostTask queues fn to run as its own macrotask.
	PostTask(fn func() error)
	// SetTimeout runs fn as a macrotask once d has elapsed. The returned func
	// cancels it if it has not run yet.
	SetTimeout(d time.Duration, fn func() error) (cancel func())
}

type Scheduler struct {
	clock   clock.Clock
	origin  time.Time
	host    Host
	cfg     Config
	log     logrus.FieldLogger
	metrics *telemetry.Scheduler

	taskQueue  *taskHeap
	timerQueue *taskHeap
	live       map[TaskID]*Task
	nextID     TaskID

	currentTask     *Task
	currentPriority Priority

	isPerformingWork        bool
	isHostCallbackScheduled bool
	isHostTimeoutScheduled  bool
	isMessageLoopRunning    bool
	cancelHostTimeout       func()

	sliceStart time.Duration
}

type Option func(*Scheduler)

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithConfig(cfg Config) Option {
	return func(s *Scheduler) { s.cfg = cfg }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.log = l }
}

func WithMetrics(m *telemetry.Scheduler) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(host Host, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:           clock.NewClock(),
		host:            host,
		cfg:             DefaultConfig(),
		log:             logrus.StandardLogger(),
		taskQueue:       newTaskHeap(),
		timerQueue:      newTaskHeap(),
		live:            map[TaskID]*Task{},
		currentPriority: NormalPriority,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.origin = s.clock.Now()
	s.log = s.log.WithField("component", "scheduler")
	return s
}

// Now is the time elapsed since the scheduler was created.
func (s *Scheduler) Now() time.Duration {
	return s.clock.Since(s.origin)
}

// ScheduleCallback queues cb at priority p. A positive delay parks the task in
// the timer queue until it is due.
func (s *Scheduler) ScheduleCallback(p Priority, cb Callback, delay time.Duration) TaskID {
	if cb == nil {
		panic("scheduler: nil callback")
	}
	if p < ImmediatePriority || p > IdlePriority {
		p = NormalPriority
	}

	now := s.Now()
	start := now
	if delay > 0 {
		start += delay
	}

	s.nextID++
	t := &Task{
		ID:             s.nextID,
		Priority:       p,
		StartTime:      start,
		ExpirationTime: start + s.timeout(p),
		callback:       cb,
	}
	s.live[t.ID] = t
	s.metrics.Scheduled(p.String())

	if start > now {
		t.sortIndex = start
		s.timerQueue.push(t)
		if s.taskQueue.peek() == nil && s.timerQueue.peek() == t {
			s.requestHostTimeout(start - now)
		}
		s.log.WithFields(logrus.Fields{"task": t.ID, "priority": p, "delay": delay}).Debug("scheduled timer")
		return t.ID
	}

	t.sortIndex = t.ExpirationTime
	s.taskQueue.push(t)
	if !s.isHostCallbackScheduled && !s.isPerformingWork {
		s.isHostCallbackScheduled = true
		s.requestHostCallback()
	}
	s.log.WithFields(logrus.Fields{"task": t.ID, "priority": p}).Debug("scheduled task")
	return t.ID
}

// CancelCallback drops the task's callback. The entry stays in its heap and
// is skipped when it reaches the top.
func (s *Scheduler) CancelCallback(id TaskID) {
	t, ok := s.live[id]
	if !ok {
		return
	}
	t.callback = nil
	delete(s.live, id)
	s.metrics.Cancelled()
}

func (s *Scheduler) CurrentPriorityLevel() Priority {
	return s.currentPriority
}

// RunWithPriority runs fn with p as the ambient priority and restores the
// previous one however fn returns.
func (s *Scheduler) RunWithPriority(p Priority, fn func() error) error {
	if p < ImmediatePriority || p > IdlePriority {
		p = NormalPriority
	}
	prev := s.currentPriority
	s.currentPriority = p
	defer func() { s.currentPriority = prev }()
	return fn()
}

func (s *Scheduler) ShouldYield() bool {
	return s.Now()-s.sliceStart >= s.cfg.FrameBudget
}

// Pending counts tasks that still have a callback to run.
func (s *Scheduler) Pending() int {
	return len(s.live)
}

func (s *Scheduler) advanceTimers(now time.Duration) {
	for t := s.timerQueue.peek(); t != nil; t = s.timerQueue.peek() {
		switch {
		case t.callback == nil:
			s.timerQueue.pop()
		case t.StartTime <= now:
			s.timerQueue.pop()
			t.sortIndex = t.ExpirationTime
			s.taskQueue.push(t)
		default:
			return
		}
	}
}

func (s *Scheduler) handleTimeout() error {
	s.isHostTimeoutScheduled = false
	now := s.Now()
	s.advanceTimers(now)

	if s.isHostCallbackScheduled {
		return nil
	}
	if s.taskQueue.peek() != nil {
		s.isHostCallbackScheduled = true
		s.requestHostCallback()
	} else if first := s.timerQueue.peek(); first != nil {
		s.requestHostTimeout(first.StartTime - now)
	}
	return nil
}

func (s *Scheduler) requestHostCallback() {
	if s.isMessageLoopRunning {
		return
	}
	s.isMessageLoopRunning = true
	s.host.PostTask(s.performWorkUntilDeadline)
}

func (s *Scheduler) requestHostTimeout(d time.Duration) {
	if s.isHostTimeoutScheduled {
		s.cancelHostTimeout()
	}
	s.isHostTimeoutScheduled = true
	s.cancelHostTimeout = s.host.SetTimeout(d, s.handleTimeout)
}

func (s *Scheduler) performWorkUntilDeadline() error {
	if !s.isMessageLoopRunning {
		return nil
	}
	now := s.Now()
	s.sliceStart = now

	hasMore, err := s.flushWork(true, now)
	if hasMore {
		s.host.PostTask(s.performWorkUntilDeadline)
	} else {
		s.isMessageLoopRunning = false
	}
	return err
}

func (s *Scheduler) flushWork(hasTimeRemaining bool, initialTime time.Duration) (bool, error) {
	s.isHostCallbackScheduled = false
	if s.isHostTimeoutScheduled {
		s.isHostTimeoutScheduled = false
		s.cancelHostTimeout()
	}

	s.isPerformingWork = true
	prev := s.currentPriority
	defer func() {
		s.currentTask = nil
		s.currentPriority = prev
		s.isPerformingWork = false
	}()
	return s.workLoop(hasTimeRemaining, initialTime)
}

func (s *Scheduler) workLoop(hasTimeRemaining bool, initialTime time.Duration) (bool, error) {
	now := initialTime
	s.advanceTimers(now)

	for s.currentTask = s.taskQueue.peek(); s.currentTask != nil; s.currentTask = s.taskQueue.peek() {
		t := s.currentTask
		if t.ExpirationTime > now && (!hasTimeRemaining || s.ShouldYield()) {
			s.metrics.Yielded()
			return true, nil
		}

		cb := t.callback
		if cb == nil {
			s.taskQueue.pop()
			continue
		}

		t.callback = nil
		s.currentPriority = t.Priority
		didTimeout := t.ExpirationTime <= now
		s.metrics.Ran(didTimeout)

		res, err := cb(didTimeout)
		now = s.Now()
		if err != nil {
			if s.taskQueue.peek() == t {
				s.taskQueue.pop()
			}
			delete(s.live, t.ID)
			s.advanceTimers(now)
			return s.afterLoop(now), fmt.Errorf("task %d (%s): %w", t.ID, t.Priority, err)
		}

		_, live := s.live[t.ID]
		if next, ok := res.Continuation(); ok && live {
			t.callback = next
			s.metrics.Continued()
		} else {
			if s.taskQueue.peek() == t {
				s.taskQueue.pop()
			}
			delete(s.live, t.ID)
		}
		s.advanceTimers(now)
	}

	return s.afterLoop(now), nil
}

// afterLoop reports whether ready work remains, arming a wake up for the next
// timer when it does not.
func (s *Scheduler) afterLoop(now time.Duration) bool {
	if s.taskQueue.peek() != nil {
		return true
	}
	if first := s.timerQueue.peek(); first != nil {
		s.requestHostTimeout(first.StartTime - now)
	}
	return false
}
