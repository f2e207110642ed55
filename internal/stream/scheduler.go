package stream

import "sync"

// flusher is a combining node waiting for the end of a batch.
type flusher interface {
	rank() int
	flush()
}

// Scheduler defers combining nodes until the end of the outermost Batch
// and flushes them lowest rank first.
//
// A nil *Scheduler is valid and never defers.
type Scheduler struct {
	mu      sync.Mutex
	depth   int
	pending []flusher
	queued  map[flusher]bool
}

// NewScheduler returns an idle Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{queued: make(map[flusher]bool)}
}

// Batch runs fn, deferring combining nodes triggered by it. When the
// outermost Batch returns every deferred node has emitted once.
func (s *Scheduler) Batch(fn func()) {
	if s == nil {
		fn()
		return
	}
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()
	defer s.exit()
	fn()
}

// InBatch reports whether a Batch is running.
func (s *Scheduler) InBatch() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth > 0
}

// schedule queues n for the current batch. Reports false outside a batch,
// in which case the caller emits immediately.
func (s *Scheduler) schedule(n flusher) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth == 0 {
		return false
	}
	if !s.queued[n] {
		s.queued[n] = true
		s.pending = append(s.pending, n)
	}
	return true
}

// exit leaves one batch level. The outermost level drains pending nodes
// while still counted as in-batch so flushes cascade in rank order.
func (s *Scheduler) exit() {
	for {
		s.mu.Lock()
		if s.depth > 1 || len(s.pending) == 0 {
			s.depth--
			s.mu.Unlock()
			return
		}
		n := s.popLowest()
		s.mu.Unlock()
		n.flush()
	}
}

// popLowest removes the lowest-rank pending node, first queued first on ties.
func (s *Scheduler) popLowest() flusher {
	best := 0
	for i, n := range s.pending {
		if n.rank() < s.pending[best].rank() {
			best = i
		}
	}
	n := s.pending[best]
	s.pending = append(s.pending[:best], s.pending[best+1:]...)
	delete(s.queued, n)
	return n
}
