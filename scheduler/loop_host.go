package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"
)

var ErrLoopRunning = errors.New("scheduler: loop already running")

// LoopHost runs posted work on a single goroutine, the one calling Run.
// PostTask and SetTimeout are safe to call from any goroutine; everything
// that touches a Scheduler or reconciler must itself be posted.
type LoopHost struct {
	clock clock.Clock

	mu         sync.Mutex
	tasks      []func() error
	microtasks []func()
	timers     int
	wake       chan struct{}
	running    atomic.Bool
}

func NewLoopHost(clk clock.Clock) *LoopHost {
	if clk == nil {
		clk = clock.NewClock()
	}
	return &LoopHost{
		clock: clk,
		wake:  make(chan struct{}, 1),
	}
}

func (h *LoopHost) PostTask(fn func() error) {
	h.mu.Lock()
	h.tasks = append(h.tasks, fn)
	h.mu.Unlock()
	h.signal()
}

func (h *LoopHost) QueueMicrotask(fn func()) {
	h.mu.Lock()
	h.microtasks = append(h.microtasks, fn)
	h.mu.Unlock()
	h.signal()
}

func (h *LoopHost) SetTimeout(d time.Duration, fn func() error) func() {
	var cancelled atomic.Bool
	stop := make(chan struct{})
	var once sync.Once
	timer := h.clock.NewTimer(d)
	h.mu.Lock()
	h.timers++
	h.mu.Unlock()

	go func() {
		select {
		case <-timer.C():
			h.mu.Lock()
			h.timers--
			h.tasks = append(h.tasks, func() error {
				if cancelled.Load() {
					return nil
				}
				return fn()
			})
			h.mu.Unlock()
		case <-stop:
			timer.Stop()
			h.mu.Lock()
			h.timers--
			h.mu.Unlock()
		}
		h.signal()
	}()

	return func() {
		cancelled.Store(true)
		once.Do(func() { close(stop) })
	}
}

func (h *LoopHost) signal() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// next pops the next microtask, else the next task. idle is true when there
// is neither and no timer is armed.
func (h *LoopHost) next() (micro func(), task func() error, idle bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.microtasks) > 0 {
		micro = h.microtasks[0]
		h.microtasks = h.microtasks[1:]
		return micro, nil, false
	}
	if len(h.tasks) > 0 {
		task = h.tasks[0]
		h.tasks = h.tasks[1:]
		return nil, task, false
	}
	return nil, nil, h.timers == 0
}

// Run processes work until ctx is done or a task fails.
func (h *LoopHost) Run(ctx context.Context) error {
	return h.run(ctx, false)
}

// RunUntilIdle is Run that also returns once no work is queued and no timer
// is armed.
func (h *LoopHost) RunUntilIdle(ctx context.Context) error {
	return h.run(ctx, true)
}

func (h *LoopHost) run(ctx context.Context, stopWhenIdle bool) error {
	if !h.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer h.running.Store(false)

	for {
		micro, task, idle := h.next()
		switch {
		case micro != nil:
			micro()
			continue
		case task != nil:
			if err := task(); err != nil {
				return err
			}
			continue
		}

		if stopWhenIdle && idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.wake:
		}
	}
}
