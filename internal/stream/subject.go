package stream

import (
	"slices"
	"sync"
)

// Subject is a multicast source that replays its latest value to new
// subscribers.
type Subject[T any] struct {
	mu    sync.Mutex
	subs  []*subscriber[T]
	value T
	has   bool
}

// NewSubject returns a Subject holding no value.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// NewBehavior returns a Subject seeded with initial.
func NewBehavior[T any](initial T) *Subject[T] {
	return &Subject[T]{value: initial, has: true}
}

// Next stores v as the latest value and delivers it to every subscriber.
func (s *Subject[T]) Next(v T) {
	s.mu.Lock()
	s.value, s.has = v, true
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(v)
	}
}

// Value returns the latest value.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

// Observers returns the number of live subscribers.
func (s *Subject[T]) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Subscribe registers fn and replays the latest value to it.
func (s *Subject[T]) Subscribe(fn func(T)) Subscription {
	sub := newSubscriber(fn)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	v, has := s.value, s.has
	s.mu.Unlock()

	if has {
		sub.deliver(v)
	}
	return onUnsubscribe(func() {
		sub.active.Store(false)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(x *subscriber[T]) bool { return x == sub })
	})
}

// Rank is always 0.
func (s *Subject[T]) Rank() int { return 0 }
