package stream

import (
	"slices"
	"sync"
)

// CombineLatest emits the latest value of every source once each source has
// emitted at least once, and again whenever any source emits afterwards.
// Inside a Scheduler batch it emits at most once, after every lower-rank
// node has settled.
func CombineLatest[T any](sched *Scheduler, sources ...Observable[T]) Observable[[]T] {
	rank := 0
	for _, src := range sources {
		rank = max(rank, src.Rank()+1)
	}
	return observable[[]T]{
		rank: rank,
		subscribe: func(next func([]T)) Subscription {
			n := &combineNode[T]{
				sched:  sched,
				r:      rank,
				values: make([]T, len(sources)),
				has:    make([]bool, len(sources)),
				next:   next,
			}
			subs := make(composite, 0, len(sources))
			for i, src := range sources {
				subs = append(subs, src.Subscribe(func(v T) { n.set(i, v) }))
			}
			return onUnsubscribe(func() {
				n.stop()
				subs.Unsubscribe()
			})
		},
	}
}

type combineNode[T any] struct {
	sched *Scheduler
	r     int
	next  func([]T)

	mu      sync.Mutex
	values  []T
	has     []bool
	count   int
	stopped bool
}

func (n *combineNode[T]) rank() int { return n.r }

func (n *combineNode[T]) set(i int, v T) {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	if !n.has[i] {
		n.has[i] = true
		n.count++
	}
	n.values[i] = v
	ready := n.count == len(n.values)
	n.mu.Unlock()

	if !ready {
		return
	}
	if n.sched.schedule(n) {
		return
	}
	n.flush()
}

func (n *combineNode[T]) flush() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	out := slices.Clone(n.values)
	n.mu.Unlock()
	n.next(out)
}

func (n *combineNode[T]) stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
}
