package stream

import (
	"sync"
	"sync/atomic"
)

// Subscription cancels delivery to one subscriber.
type Subscription interface {
	Unsubscribe()
}

// Observable is a source of values delivered synchronously to subscribers.
type Observable[T any] interface {
	// Subscribe registers fn. Sources holding a latest value deliver it to
	// fn before Subscribe returns.
	Subscribe(fn func(T)) Subscription
	// Rank orders combining nodes within a Scheduler flush.
	Rank() int
}

type subscriptionFunc struct {
	once sync.Once
	fn   func()
}

func (s *subscriptionFunc) Unsubscribe() {
	s.once.Do(s.fn)
}

// onUnsubscribe wraps fn in an idempotent Subscription.
func onUnsubscribe(fn func()) Subscription {
	return &subscriptionFunc{fn: fn}
}

// composite unsubscribes every child.
type composite []Subscription

func (c composite) Unsubscribe() {
	for _, s := range c {
		if s != nil {
			s.Unsubscribe()
		}
	}
}

// observable adapts a subscribe function to Observable.
type observable[T any] struct {
	rank      int
	subscribe func(fn func(T)) Subscription
}

func (o observable[T]) Subscribe(fn func(T)) Subscription { return o.subscribe(fn) }
func (o observable[T]) Rank() int                         { return o.rank }

// subscriber is a registered callback that can be deactivated mid-emission.
type subscriber[T any] struct {
	fn     func(T)
	active atomic.Bool
}

func newSubscriber[T any](fn func(T)) *subscriber[T] {
	s := &subscriber[T]{fn: fn}
	s.active.Store(true)
	return s
}

func (s *subscriber[T]) deliver(v T) {
	if s.active.Load() {
		s.fn(v)
	}
}

// Current subscribes to o, captures the last value delivered during
// subscription and unsubscribes. A shared stream replaying a cached value
// before recomputing yields the recomputed one. Reports false when o holds
// no value yet.
func Current[T any](o Observable[T]) (T, bool) {
	var (
		out T
		ok  bool
	)
	sub := o.Subscribe(func(v T) {
		out, ok = v, true
	})
	sub.Unsubscribe()
	return out, ok
}
