package store

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/ir"
	"github.com/roach88/orchestra/internal/stream"
)

// Hook transforms an entity. A nil result drops the entity where the
// caller allows dropping (pre on insert) and keeps the input otherwise.
type Hook func(ir.IRObject) ir.IRObject

// Store describes one keyed entity collection and its dependency edges.
type Store struct {
	identifier string
	logger     *slog.Logger

	mu      sync.Mutex
	deps    []Dependency // declaration order
	pre     Hook
	post    Hook
	expects []string
	err     error
	sealed  bool

	missing *missingTracker
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store. An empty identifier is recorded as a configuration
// error.
func New(identifier string, opts ...Option) *Store {
	s := &Store{
		identifier: identifier,
		logger:     slog.Default(),
		missing:    newMissingTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if identifier == "" {
		s.err = &Error{Code: ErrCodeInvalidIdentifier, Message: "identifier must be a non-empty string"}
	}
	return s
}

// Identifier returns the store identifier.
func (s *Store) Identifier() string { return s.identifier }

// Err returns the first configuration error recorded by the builder.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pre sets the hook applied to every inserted or updated entity.
// Last call wins.
func (s *Store) Pre(fn Hook) *Store {
	return s.configure(func() *Error {
		if fn == nil {
			return &Error{Code: ErrCodeInvalidHook, Message: "pre hook must not be nil"}
		}
		s.pre = fn
		return nil
	})
}

// Post sets the hook applied to every resolved entity. Last call wins.
func (s *Store) Post(fn Hook) *Store {
	return s.configure(func() *Error {
		if fn == nil {
			return &Error{Code: ErrCodeInvalidHook, Message: "post hook must not be nil"}
		}
		s.post = fn
		return nil
	})
}

// DependsOn registers the dependency edge to identifier. Each target may be
// registered once. A nil getter hands the setter the whole dependency
// collection; the setter is required.
func (s *Store) DependsOn(identifier string, getter Getter, setter Setter) *Store {
	return s.configure(func() *Error {
		if identifier == "" {
			return &Error{Code: ErrCodeInvalidDependency, Message: "dependency identifier must be a non-empty string"}
		}
		if setter == nil {
			return &Error{Code: ErrCodeInvalidDependency, Message: "setter must not be nil", Dependency: identifier}
		}
		if slices.ContainsFunc(s.deps, func(d Dependency) bool { return d.Identifier == identifier }) {
			return &Error{Code: ErrCodeDuplicateDependency, Message: "dependency registered twice", Dependency: identifier}
		}
		s.deps = append(s.deps, Dependency{Identifier: identifier, Getter: getter, Setter: setter})
		return nil
	})
}

// Expects declares the keys an entity must hold to count as complete.
// Keys accumulate across calls.
func (s *Store) Expects(keys ...string) *Store {
	return s.configure(func() *Error {
		s.expects = append(s.expects, keys...)
		return nil
	})
}

// configure runs one builder step, keeping the first error.
func (s *Store) configure(step func() *Error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err *Error
	if s.sealed {
		err = &Error{Code: ErrCodeSealed, Message: "store is in use by an orchestra and can no longer be configured"}
	} else {
		err = step()
	}
	if err == nil {
		return s
	}
	err.Store = s.identifier
	s.logger.Warn("store configuration rejected", "store", s.identifier, "code", err.Code, "error", err.Message)
	if s.err == nil {
		s.err = err
	}
	return s
}

// Seal freezes the configuration. Called when an Orchestra takes the store.
func (s *Store) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Sealed reports whether Seal was called.
func (s *Store) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

// Dependencies returns the dependency edges in declaration order.
func (s *Store) Dependencies() []Dependency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deps)
}

// DependencyIdentifiers returns the dependency targets in declaration order.
func (s *Store) DependencyIdentifiers() []string {
	deps := s.Dependencies()
	ids := make([]string, len(deps))
	for i, d := range deps {
		ids[i] = d.Identifier
	}
	return ids
}

// Expected returns the completion keys.
func (s *Store) Expected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.expects)
}

// ApplyPre runs the pre hook. Without a hook the entity is returned as is.
func (s *Store) ApplyPre(e ir.IRObject) ir.IRObject {
	s.mu.Lock()
	pre := s.pre
	s.mu.Unlock()
	if pre == nil || e == nil {
		return e
	}
	return pre(e)
}

// ApplyPost runs the post hook over every entity of c. Entities for which
// the hook returns nil are kept unchanged.
func (s *Store) ApplyPost(c *collection.Collection) *collection.Collection {
	s.mu.Lock()
	post := s.post
	s.mu.Unlock()
	if post == nil {
		return c
	}
	return c.Map(func(e ir.IRObject) ir.IRObject {
		if out := post(e); out != nil {
			return out
		}
		return e
	})
}

// CreateCollection returns an empty collection carrying the completion keys.
func (s *Store) CreateCollection() *collection.Collection {
	return collection.New(s.Expected()...)
}

// ObserveMissing returns the stream of ids other stores asked this store for
// but could not find. Each value is the sorted union across askers; the
// latest value is replayed to new subscribers.
func (s *Store) ObserveMissing() stream.Observable[[]string] {
	return s.missing.subject
}

// Missing returns the current sorted union of missing ids.
func (s *Store) Missing() []string {
	v, _ := s.missing.subject.Value()
	return slices.Clone(v)
}

// ReportMissing records the ids asker could not resolve against this store.
// Resolvers call it after every join, including with an empty set.
func (s *Store) ReportMissing(asker string, ids []string) {
	if union, changed := s.missing.report(asker, ids); changed {
		s.logger.Debug("missing ids changed", "store", s.identifier, "asker", asker, "missing", len(union))
	}
}
