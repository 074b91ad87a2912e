package scheduler

import (
	"slices"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
)

// ManualHost is a Host that only runs when told to. Time comes from a fake
// clock, so tests and benchmarks decide exactly when timers fire and how long
// a unit of work takes.
type ManualHost struct {
	clock      *fakeclock.FakeClock
	tasks      []func() error
	microtasks []func()
	timers     []*manualTimer
	seq        uint64
}

type manualTimer struct {
	due       time.Time
	seq       uint64
	fn        func() error
	cancelled bool
}

func NewManualHost(clk *fakeclock.FakeClock) *ManualHost {
	return &ManualHost{clock: clk}
}

func (h *ManualHost) Clock() *fakeclock.FakeClock {
	return h.clock
}

func (h *ManualHost) PostTask(fn func() error) {
	h.tasks = append(h.tasks, fn)
}

func (h *ManualHost) SetTimeout(d time.Duration, fn func() error) func() {
	h.seq++
	t := &manualTimer{due: h.clock.Now().Add(d), seq: h.seq, fn: fn}
	h.timers = append(h.timers, t)
	return func() { t.cancelled = true }
}

func (h *ManualHost) QueueMicrotask(fn func()) {
	h.microtasks = append(h.microtasks, fn)
}

func (h *ManualHost) RunMicrotasks() {
	for len(h.microtasks) > 0 {
		fn := h.microtasks[0]
		h.microtasks = h.microtasks[1:]
		fn()
	}
}

// RunNext drains microtasks, runs one macrotask and drains microtasks again.
func (h *ManualHost) RunNext() (bool, error) {
	h.RunMicrotasks()
	if len(h.tasks) == 0 {
		return false, nil
	}
	fn := h.tasks[0]
	h.tasks = h.tasks[1:]
	err := fn()
	h.RunMicrotasks()
	return true, err
}

// RunAll runs macrotasks until none are queued. Timers are left alone.
func (h *ManualHost) RunAll() error {
	for {
		ran, err := h.RunNext()
		if err != nil {
			return err
		}
		if !ran {
			return nil
		}
	}
}

// Advance moves the clock forward, fires every timer that came due and runs
// until the host is quiet again.
func (h *ManualHost) Advance(d time.Duration) error {
	h.clock.Increment(d)
	for {
		if err := h.RunAll(); err != nil {
			return err
		}
		if !h.fireDue() {
			return nil
		}
	}
}

func (h *ManualHost) fireDue() bool {
	now := h.clock.Now()
	var due, rest []*manualTimer
	for _, t := range h.timers {
		switch {
		case t.cancelled:
		case !t.due.After(now):
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	h.timers = rest
	slices.SortFunc(due, func(a, b *manualTimer) int {
		if c := a.due.Compare(b.due); c != 0 {
			return c
		}
		return int(a.seq) - int(b.seq)
	})
	for _, t := range due {
		h.PostTask(func() error {
			if t.cancelled {
				return nil
			}
			return t.fn()
		})
	}
	return len(due) > 0
}

// Pending counts queued macrotasks, microtasks and armed timers.
func (h *ManualHost) Pending() int {
	n := len(h.tasks) + len(h.microtasks)
	for _, t := range h.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}
