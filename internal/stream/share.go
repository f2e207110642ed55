package stream

import (
	"slices"
	"sync"
)

// Share multicasts src to every subscriber through a single upstream
// subscription, replaying the latest value to late subscribers.
//
// The upstream subscription is opened by the first subscriber and closed
// when the last one leaves. The latest value survives disconnection. When
// eq is non-nil, values equal to the latest are not re-emitted, which also
// suppresses the replay a reconnecting upstream would otherwise repeat.
func Share[T any](src Observable[T], eq func(a, b T) bool) *Shared[T] {
	return &Shared[T]{src: src, eq: eq}
}

// Shared is the multicast node returned by Share.
type Shared[T any] struct {
	src Observable[T]
	eq  func(a, b T) bool

	mu       sync.Mutex
	subs     []*subscriber[T]
	upstream Subscription
	value    T
	has      bool
}

// Subscribe registers fn, replays the latest value and connects upstream if
// fn is the first subscriber.
func (s *Shared[T]) Subscribe(fn func(T)) Subscription {
	sub := newSubscriber(fn)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	first := len(s.subs) == 1
	v, has := s.value, s.has
	s.mu.Unlock()

	if has {
		sub.deliver(v)
	}
	if first {
		s.connect()
	}
	return onUnsubscribe(func() { s.remove(sub) })
}

// Rank is the rank of the source.
func (s *Shared[T]) Rank() int { return s.src.Rank() }

// Value returns the latest value seen from upstream.
func (s *Shared[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

// Connected reports whether the upstream subscription is open.
func (s *Shared[T]) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upstream != nil
}

func (s *Shared[T]) connect() {
	up := s.src.Subscribe(s.emit)

	s.mu.Lock()
	if len(s.subs) == 0 {
		// every subscriber left during the synchronous replay
		s.mu.Unlock()
		up.Unsubscribe()
		return
	}
	s.upstream = up
	s.mu.Unlock()
}

func (s *Shared[T]) emit(v T) {
	s.mu.Lock()
	if s.has && s.eq != nil && s.eq(s.value, v) {
		s.mu.Unlock()
		return
	}
	s.value, s.has = v, true
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(v)
	}
}

func (s *Shared[T]) remove(sub *subscriber[T]) {
	sub.active.Store(false)

	s.mu.Lock()
	s.subs = slices.DeleteFunc(s.subs, func(x *subscriber[T]) bool { return x == sub })
	var up Subscription
	if len(s.subs) == 0 {
		up, s.upstream = s.upstream, nil
	}
	s.mu.Unlock()

	if up != nil {
		up.Unsubscribe()
	}
}
