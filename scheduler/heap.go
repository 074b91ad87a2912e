package scheduler

import (
	"github.com/emirpasic/gods/v2/trees/binaryheap"
)

// taskHeap orders tasks by (sortIndex, ID). The task queue keys sortIndex by
// expiration time, the timer queue by start time.
type taskHeap struct {
	heap *binaryheap.Heap[*Task]
}

func newTaskHeap() *taskHeap {
	return &taskHeap{heap: binaryheap.NewWith[*Task](compareTasks)}
}

func (h *taskHeap) push(t *Task) {
	h.heap.Push(t)
}

func (h *taskHeap) peek() *Task {
	t, ok := h.heap.Peek()
	if !ok {
		return nil
	}
	return t
}

func (h *taskHeap) pop() *Task {
	t, ok := h.heap.Pop()
	if !ok {
		return nil
	}
	return t
}

func (h *taskHeap) len() int {
	return h.heap.Size()
}
