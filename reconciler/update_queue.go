package reconciler

// UpdateQueue keeps every enqueued update until a render that applied it
// commits. A render that is thrown away leaves the queue as it was, so the
// next render applies the same updates again on top of the same base.
type UpdateQueue struct {
	baseState any
	updates   []*update
}

type update struct {
	reduce func(prev any) any
}

func replaceWith(next any) *update {
	return &update{reduce: func(any) any { return next }}
}

func transformWith(fn func(prev any) any) *update {
	return &update{reduce: fn}
}

func (q *UpdateQueue) enqueue(u *update) {
	q.updates = append(q.updates, u)
}

func (q *UpdateQueue) Len() int {
	return len(q.updates)
}

// process applies every pending update in order on top of the committed
// base state.
func (q *UpdateQueue) process() (state any, consumed int) {
	state = q.baseState
	for _, u := range q.updates {
		state = u.reduce(state)
	}
	return state, len(q.updates)
}

// rebase drops the first n updates once the state they produced is
// committed. Updates enqueued after processing stay pending.
func (q *UpdateQueue) rebase(state any, n int) {
	q.baseState = state
	q.updates = q.updates[min(n, len(q.updates)):]
	if len(q.updates) == 0 {
		q.updates = nil
	}
}

type processedQueue struct {
	fiber *Fiber
	queue *UpdateQueue
	state any
	n     int
}

func (r *Reconciler) processUpdateQueue(f *Fiber, q *UpdateQueue) any {
	state, n := q.process()
	if n > 0 {
		r.processed = append(r.processed, processedQueue{fiber: f, queue: q, state: state, n: n})
	}
	return state
}

func (r *Reconciler) commitProcessedQueues() {
	latest := make(map[*UpdateQueue]processedQueue, len(r.processed))
	for _, p := range r.processed {
		latest[p.queue] = p
	}
	for q, p := range latest {
		q.rebase(p.state, p.n)
	}
	r.processed = r.processed[:0]
}

// discardProcessedUnder forgets queues processed inside boundary's subtree
// when the boundary throws that subtree away to show its fallback.
func (r *Reconciler) discardProcessedUnder(boundary *Fiber) {
	kept := r.processed[:0]
	for _, p := range r.processed {
		if !isDescendant(p.fiber, boundary) {
			kept = append(kept, p)
		}
	}
	r.processed = kept
}

func isDescendant(f, ancestor *Fiber) bool {
	for p := f.parent; p != nil; p = p.parent {
		if p == ancestor || p == ancestor.alternate {
			return true
		}
	}
	return false
}
