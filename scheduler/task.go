package scheduler

import (
	"cmp"
	"time"
)

type TaskID uint64

// Callback is one unit of scheduled work. didTimeout reports whether the
// task was already past its expiration when invoked.
type Callback func(didTimeout bool) (Result, error)

// Result tells the work loop whether a task finished or wants to run again
// with another callback in a later unit.
type Result struct {
	next Callback
}

func Done() Result {
	return Result{}
}

func Continue(next Callback) Result {
	return Result{next: next}
}

func (r Result) Continuation() (Callback, bool) {
	return r.next, r.next != nil
}

type Task struct {
	ID             TaskID
	Priority       Priority
	StartTime      time.Duration
	ExpirationTime time.Duration

	callback  Callback
	sortIndex time.Duration
}

// Cancelled reports whether the task no longer has anything to run.
func (t *Task) Cancelled() bool {
	return t.callback == nil
}

func compareTasks(a, b *Task) int {
	if c := cmp.Compare(a.sortIndex, b.sortIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
