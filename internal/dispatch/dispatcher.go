package dispatch

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/stream"
)

// Action is anything a Dispatcher can deliver to reducers.
type Action interface {
	ActionType() string
}

// Reducer folds an action into a collection. A reducer that does not handle
// an action must return the state it was given.
type Reducer func(state *collection.Collection, action Action) *collection.Collection

// Entry is one logged action.
type Entry struct {
	Seq    int64
	Action Action
}

// reduction is a registered reducer with its current state.
type reduction struct {
	reducer Reducer
	state   *collection.Collection
	subject *stream.Subject[*collection.Collection]
}

// Dispatcher delivers actions to reductions and records them in a log.
//
// Thread-safety model:
//   - Dispatch: safe from any goroutine; actions are applied one at a time
//     in FIFO order by whichever caller holds the drain lock.
//   - Reduce, Detach: safe from any goroutine, including from subscribers.
type Dispatcher struct {
	id     string
	clock  *Clock
	sched  *stream.Scheduler
	logger *slog.Logger
	queue  *actionQueue

	mu         sync.Mutex // guards log and reductions
	log        []Entry
	reductions []*reduction

	draining sync.Mutex
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithID fixes the dispatcher identifier.
func WithID(id string) Option {
	return func(d *Dispatcher) {
		d.id = id
	}
}

// WithIDGenerator draws the dispatcher identifier from gen.
func WithIDGenerator(gen IDGenerator) Option {
	return func(d *Dispatcher) {
		d.id = gen.Generate()
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithScheduler shares a stream scheduler with other dispatchers.
func WithScheduler(sched *stream.Scheduler) Option {
	return func(d *Dispatcher) {
		d.sched = sched
	}
}

// New creates a Dispatcher with a UUIDv7 identifier and its own scheduler.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		clock:  NewClock(),
		sched:  stream.NewScheduler(),
		logger: slog.Default(),
		queue:  newActionQueue(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.id == "" {
		d.id = UUIDv7Generator{}.Generate()
	}
	return d
}

// ID returns the dispatcher identifier.
func (d *Dispatcher) ID() string { return d.id }

// Scheduler returns the scheduler every emission of this dispatcher runs in.
func (d *Dispatcher) Scheduler() *stream.Scheduler { return d.sched }

// Dispatch applies a to every registered reduction.
//
// When called from inside a subscriber of this dispatcher, or while another
// goroutine is applying actions, a is queued and applied by that caller
// before it returns.
func (d *Dispatcher) Dispatch(a Action) error {
	if a == nil {
		return &DispatchError{DispatcherID: d.id, Err: ErrNilAction}
	}
	if !d.queue.Enqueue(a) {
		return &DispatchError{DispatcherID: d.id, ActionType: a.ActionType(), Err: ErrClosed}
	}
	for {
		if !d.draining.TryLock() {
			return nil
		}
		d.drain()
		d.draining.Unlock()
		// an action enqueued between the last dequeue and Unlock
		if d.queue.Len() == 0 {
			return nil
		}
	}
}

// drain applies queued actions until the queue is empty.
func (d *Dispatcher) drain() {
	for {
		a, ok := d.queue.TryDequeue()
		if !ok {
			return
		}
		d.apply(a)
	}
}

func (d *Dispatcher) apply(a Action) {
	seq := d.clock.Next()

	d.mu.Lock()
	d.log = append(d.log, Entry{Seq: seq, Action: a})
	reductions := slices.Clone(d.reductions)
	d.mu.Unlock()

	d.logger.Debug("action dispatched",
		"dispatcher", d.id,
		"type", a.ActionType(),
		"seq", seq,
	)

	changed := 0
	d.sched.Batch(func() {
		for _, r := range reductions {
			next := r.reducer(r.state, a)
			if next == nil || next == r.state {
				continue
			}
			r.state = next
			changed++
			r.subject.Next(next)
		}
	})

	d.logger.Debug("action applied",
		"dispatcher", d.id,
		"seq", seq,
		"changed", changed,
	)
}

// Reduce registers reducer starting from initial and returns its state
// stream. The whole action log is replayed first; the stream replays the
// current state to every subscriber and emits only when the reducer
// returns a different collection.
//
// A nil initial state starts from collection.Empty(). Panics if reducer is
// nil.
func (d *Dispatcher) Reduce(reducer Reducer, initial *collection.Collection) stream.Observable[*collection.Collection] {
	if reducer == nil {
		panic("dispatch: Reduce requires a reducer")
	}
	if initial == nil {
		initial = collection.Empty()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	state := initial
	for _, e := range d.log {
		if next := reducer(state, e.Action); next != nil {
			state = next
		}
	}
	r := &reduction{
		reducer: reducer,
		state:   state,
		subject: stream.NewBehavior(state),
	}
	d.reductions = append(d.reductions, r)
	return r.subject
}

// Detach unregisters the reduction behind state, a stream returned by
// Reduce. The stream keeps its last value and emits nothing further.
// Reports whether a reduction was removed.
func (d *Dispatcher) Detach(state stream.Observable[*collection.Collection]) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.reductions)
	d.reductions = slices.DeleteFunc(d.reductions, func(r *reduction) bool {
		return stream.Observable[*collection.Collection](r.subject) == state
	})
	return len(d.reductions) < n
}

// Reductions returns the number of registered reductions.
func (d *Dispatcher) Reductions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reductions)
}

// Log returns a copy of the action log.
func (d *Dispatcher) Log() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.log)
}

// Close rejects further actions. Registered streams keep their last state.
func (d *Dispatcher) Close() {
	d.queue.Close()
	d.logger.Debug("dispatcher closed", "dispatcher", d.id)
}

// Closed reports whether Close was called.
func (d *Dispatcher) Closed() bool {
	return d.queue.Closed()
}
