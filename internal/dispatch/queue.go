package dispatch

import "sync"

// actionQueue is a thread-safe unbounded FIFO of pending actions.
//
// Unbounded so that subscribers may dispatch follow-on actions while an
// action is being applied without blocking.
type actionQueue struct {
	mu      sync.Mutex
	actions []Action
	closed  bool
}

func newActionQueue() *actionQueue {
	return &actionQueue{actions: make([]Action, 0, 16)}
}

// Enqueue appends a to the queue. Returns false once the queue is closed.
func (q *actionQueue) Enqueue(a Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.actions = append(q.actions, a)
	return true
}

// TryDequeue pops the front action without blocking.
func (q *actionQueue) TryDequeue() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}
	a := q.actions[0]
	// release the reference held by the backing array
	q.actions[0] = nil
	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// Len returns the number of pending actions.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Close rejects further actions. Pending actions may still be drained.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Closed reports whether Close was called.
func (q *actionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
