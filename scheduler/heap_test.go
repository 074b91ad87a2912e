package scheduler

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskHeapOrdersBySortIndexThenID(t *testing.T) {
	h := newTaskHeap()
	h.push(&Task{ID: 3, sortIndex: 5})
	h.push(&Task{ID: 1, sortIndex: 7})
	h.push(&Task{ID: 2, sortIndex: 5})
	h.push(&Task{ID: 4, sortIndex: 1})

	var got []TaskID
	for h.len() > 0 {
		got = append(got, h.pop().ID)
	}
	assert.Equal(t, []TaskID{4, 2, 3, 1}, got)
	assert.Nil(t, h.pop())
	assert.Nil(t, h.peek())
}

func TestTaskHeapMinAfterEveryOperation(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	h := newTaskHeap()
	var shadow []*Task

	smallest := func() *Task {
		var best *Task
		for _, task := range shadow {
			if best == nil || compareTasks(task, best) < 0 {
				best = task
			}
		}
		return best
	}
	remove := func(x *Task) {
		for i, task := range shadow {
			if task == x {
				shadow = append(shadow[:i], shadow[i+1:]...)
				return
			}
		}
	}

	for i := 0; i < 500; i++ {
		if len(shadow) == 0 || r.IntN(3) > 0 {
			task := &Task{ID: TaskID(i + 1), sortIndex: time.Duration(r.IntN(50))}
			h.push(task)
			shadow = append(shadow, task)
		} else {
			popped := h.pop()
			require.Same(t, smallest(), popped)
			remove(popped)
		}
		require.Equal(t, len(shadow), h.len())
		if len(shadow) > 0 {
			require.Same(t, smallest(), h.peek())
		}
	}
}
