package orchestra

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/dispatch"
	"github.com/roach88/orchestra/internal/store"
	"github.com/roach88/orchestra/internal/stream"
)

// Dispatcher is the action source an Orchestra reduces over.
// *dispatch.Dispatcher implements it.
type Dispatcher interface {
	// ID is the stable identity graphs are memoized under.
	ID() string
	// Scheduler batches emissions of one applied action.
	Scheduler() *stream.Scheduler
	// Reduce returns the live, replay-latest state stream of reducer.
	Reduce(reducer dispatch.Reducer, initial *collection.Collection) stream.Observable[*collection.Collection]
	// Detach stops the reducer behind a stream returned by Reduce.
	Detach(state stream.Observable[*collection.Collection]) bool
}

// Orchestra owns a set of stores and external reducers and resolves them
// into a Graph per dispatcher.
type Orchestra struct {
	stores []*store.Store // declaration order
	byID   map[string]*store.Store
	logger *slog.Logger

	mu            sync.Mutex
	externals     map[string]dispatch.Reducer
	externalOrder []string
	cache         map[string]*Graph
}

// Option configures an Orchestra.
type Option func(*Orchestra)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestra) {
		o.logger = logger
	}
}

// New builds an Orchestra from stores, in declaration order. It fails when
// no store is given, when a store carries a configuration error and when
// two stores share an identifier. The stores are sealed on success.
func New(stores ...*store.Store) (*Orchestra, error) {
	return NewWithOptions(stores)
}

// NewWithOptions is New with options.
func NewWithOptions(stores []*store.Store, opts ...Option) (*Orchestra, error) {
	if len(stores) == 0 {
		return nil, &Error{Code: ErrCodeNoStores, Message: "orchestra expects at least one store"}
	}

	o := &Orchestra{
		stores:    slices.Clone(stores),
		byID:      make(map[string]*store.Store, len(stores)),
		logger:    slog.Default(),
		externals: make(map[string]dispatch.Reducer),
		cache:     make(map[string]*Graph),
	}
	for _, opt := range opts {
		opt(o)
	}

	for i, s := range stores {
		if s == nil {
			return nil, &Error{Code: ErrCodeInvalidStore, Message: fmt.Sprintf("argument %d is not a store", i)}
		}
		id := s.Identifier()
		if err := s.Err(); err != nil {
			return nil, &Error{
				Code:       ErrCodeInvalidStore,
				Message:    fmt.Sprintf("store %q is misconfigured", id),
				Identifier: id,
				Err:        err,
			}
		}
		if _, dup := o.byID[id]; dup {
			return nil, &Error{
				Code:       ErrCodeDuplicateIdentifier,
				Message:    fmt.Sprintf("the identifier %q is not unique", id),
				Identifier: id,
			}
		}
		o.byID[id] = s
	}

	for _, s := range stores {
		s.Seal()
	}
	return o, nil
}

// AddReducer registers an external reducer under identifier. Externals are
// opaque leaves stores may depend on; they never take part in a cycle.
// Registration closes once a graph is cached: release every dispatcher
// (or Close) before adding more externals.
func (o *Orchestra) AddReducer(identifier string, reducer dispatch.Reducer) error {
	if identifier == "" {
		return &Error{Code: ErrCodeInvalidIdentifier, Message: "identifier must be a non-empty string"}
	}
	if reducer == nil {
		return &Error{Code: ErrCodeInvalidReducer, Message: "reducer must not be nil", Identifier: identifier}
	}
	if _, taken := o.byID[identifier]; taken {
		return &Error{
			Code:       ErrCodeIdentifierTaken,
			Message:    fmt.Sprintf("the identifier %q is already taken by a store", identifier),
			Identifier: identifier,
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.cache) > 0 {
		return &Error{
			Code:       ErrCodeGraphResolved,
			Message:    fmt.Sprintf("cannot add reducer %q after a graph has been resolved", identifier),
			Identifier: identifier,
		}
	}
	if _, dup := o.externals[identifier]; dup {
		return &Error{
			Code:       ErrCodeDuplicateIdentifier,
			Message:    fmt.Sprintf("the identifier %q is not unique", identifier),
			Identifier: identifier,
		}
	}
	o.externals[identifier] = reducer
	o.externalOrder = append(o.externalOrder, identifier)
	return nil
}

// Stores returns the stores in declaration order.
func (o *Orchestra) Stores() []*store.Store {
	return slices.Clone(o.stores)
}

// Store returns the store registered under identifier.
func (o *Orchestra) Store(identifier string) (*store.Store, bool) {
	s, ok := o.byID[identifier]
	return s, ok
}

// Externals returns the external reducer identifiers in registration order.
func (o *Orchestra) Externals() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.externalOrder)
}

// Reduce resolves the store graph against d and returns the live views.
// The first call for a dispatcher builds the graph; later calls with the
// same dispatcher id return the identical *Graph.
func (o *Orchestra) Reduce(d Dispatcher) (*Graph, error) {
	if d == nil {
		return nil, &Error{Code: ErrCodeInvalidDispatcher, Message: "dispatcher must not be nil"}
	}
	key := d.ID()
	if key == "" {
		return nil, &Error{Code: ErrCodeInvalidDispatcher, Message: "dispatcher has no identity"}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if g, ok := o.cache[key]; ok {
		return g, nil
	}

	order, err := o.plan()
	if err != nil {
		return nil, err
	}
	g := o.build(d, order)
	o.cache[key] = g

	o.logger.Debug("graph resolved",
		"dispatcher", key,
		"stores", len(order),
		"externals", len(o.externalOrder),
	)
	return g, nil
}

// Release drops the graph cached for d and detaches its reducers from d.
// Views of the released graph keep their last value.
func (o *Orchestra) Release(d Dispatcher) {
	if d == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	key := d.ID()
	if g, ok := o.cache[key]; ok {
		g.detach()
		delete(o.cache, key)
	}
}

// Close releases every cached graph.
func (o *Orchestra) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, g := range o.cache {
		g.detach()
	}
	clear(o.cache)
}

// Validate checks the store graph without a dispatcher, reporting the
// error the first Reduce would return.
func (o *Orchestra) Validate() error {
	_, err := o.Order()
	return err
}

// Order returns the store identifiers in resolution order: every store
// follows the stores it depends on.
func (o *Orchestra) Order() ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.plan()
}
