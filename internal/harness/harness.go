package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/dispatch"
	"github.com/roach88/orchestra/internal/ir"
	"github.com/roach88/orchestra/internal/orchestra"
	"github.com/roach88/orchestra/internal/schema"
	"github.com/roach88/orchestra/internal/store"
	"github.com/roach88/orchestra/internal/testutil"
)

// Harness runs one scenario against a fresh Orchestra and dispatcher.
type Harness struct {
	logger    *slog.Logger
	orch      *orchestra.Orchestra
	externals map[string]bool
	selectors selectorErrors
}

// Option configures a harness run.
type Option func(*Harness)

// WithLogger sets the logger passed to stores, the orchestra and the
// dispatcher. Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the CUE schema and build the stores
//  2. Register externals and resolve the graph against a dispatcher with a
//     fixed identity
//  3. Dispatch every step, recording which views emitted
//  4. Capture the final views and missing ids and evaluate assertions
//
// An error is returned when the scenario cannot run at all (bad schema,
// unresolvable graph, invalid step payload). Assertion failures are
// reported on the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		externals: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}

	stores, err := LoadStores(scenario.Schema, h.logger)
	if err != nil {
		return nil, err
	}

	h.orch, err = orchestra.NewWithOptions(stores, orchestra.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build orchestra: %w", err)
	}
	for _, ext := range scenario.Externals {
		if err := h.orch.AddReducer(ext, externalReducer(ext)); err != nil {
			return nil, fmt.Errorf("failed to register external %q: %w", ext, err)
		}
		h.externals[ext] = true
	}

	d := dispatch.New(
		dispatch.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.DispatcherID)),
		dispatch.WithLogger(h.logger),
	)
	defer d.Close()

	g, err := h.orch.Reduce(d)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stores: %w", err)
	}
	defer h.orch.Release(d)

	var latest map[string]*collection.Collection
	sub := g.Combine().Subscribe(func(views map[string]*collection.Collection) {
		latest = views
	})
	defer sub.Unsubscribe()

	result := NewResult()
	result.DispatcherID = d.ID()
	for i, step := range scenario.Steps {
		a, err := h.action(step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s %s): %w", i, step.Action, step.Store, err)
		}

		before := latest
		if err := d.Dispatch(a); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if err := h.selectors.take(); err != nil {
			result.AddError(fmt.Sprintf("step %d: %v", i, err))
		}

		entries := d.Log()
		result.AddTrace(TraceEvent{
			Seq:     entries[len(entries)-1].Seq,
			Step:    i,
			Action:  a.ActionType(),
			Store:   step.Store,
			Changed: changedViews(g.Identifiers(), before, latest),
		})

		h.logger.Debug("step applied",
			"step", i,
			"action", step.Action,
			"store", step.Store,
		)
	}

	for _, id := range g.Identifiers() {
		c := latest[id]
		result.Views[id] = c.Snapshot()
		result.Complete[id] = orEmpty(c.FilterComplete().Keys())
		s, _ := h.orch.Store(id)
		result.Missing[id] = orEmpty(s.Missing())

		digest, err := c.Digest()
		if err != nil {
			return nil, fmt.Errorf("view %s: %w", id, err)
		}
		result.Digests[id] = digest
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// LoadStores builds stores from a CUE file or directory.
func LoadStores(path string, logger *slog.Logger) ([]*store.Store, error) {
	loaded, errs := schema.Load(path, schema.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load schema: %w", errors.Join(errs...))
	}

	stores, err := schema.BuildAll(loaded.Stores, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build stores: %w", err)
	}
	return stores, nil
}

// action converts a step to a dispatchable action.
func (h *Harness) action(step Step) (dispatch.Action, error) {
	if h.externals[step.Store] {
		return externalStep(step)
	}

	s, ok := h.orch.Store(step.Store)
	if !ok {
		return nil, fmt.Errorf("unknown store %q", step.Store)
	}

	switch step.Action {
	case StepInsert:
		e, err := ir.EntityFromGo(step.Entity)
		if err != nil {
			return nil, err
		}
		return s.Insert(e)

	case StepInsertBatch:
		entities := make([]ir.IRObject, len(step.Entities))
		for i, raw := range step.Entities {
			e, err := ir.EntityFromGo(raw)
			if err != nil {
				return nil, fmt.Errorf("entities[%d]: %w", i, err)
			}
			entities[i] = e
		}
		if step.Group != "" {
			return s.InsertBatch(entities, step.Group)
		}
		return s.InsertBatch(entities)

	case StepRemove:
		if step.ID != "" {
			return s.Remove(step.ID)
		}
		e, err := ir.EntityFromGo(step.Entity)
		if err != nil {
			return nil, err
		}
		return s.RemoveEntity(e)

	case StepFilter:
		pred, err := wherePredicate(step.Where, &h.selectors)
		if err != nil {
			return nil, err
		}
		return s.Filter(pred)

	case StepUpdate:
		where, err := wherePredicate(step.Where, &h.selectors)
		if err != nil {
			return nil, err
		}
		transform, err := setTransform(step.Set, where, &h.selectors)
		if err != nil {
			return nil, err
		}
		return s.Update(transform)

	default:
		return nil, fmt.Errorf("action %q does not apply to stores", step.Action)
	}
}

// changedViews lists the views whose collection changed between two
// combined emissions.
func changedViews(identifiers []string, before, after map[string]*collection.Collection) []string {
	changed := []string{}
	for _, id := range identifiers {
		if before[id] != after[id] {
			changed = append(changed, id)
		}
	}
	return changed
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// External reducer action types.
const (
	ExternalPut    = "EXTERNAL_PUT"
	ExternalDelete = "EXTERNAL_DELETE"
)

type externalAction struct {
	kind       string
	identifier string
	id         string
	entity     ir.IRObject
}

func (a externalAction) ActionType() string { return a.kind }

func externalStep(step Step) (dispatch.Action, error) {
	switch step.Action {
	case StepPut:
		e, err := ir.EntityFromGo(step.Entity)
		if err != nil {
			return nil, err
		}
		id, _ := e.ID()
		return externalAction{kind: ExternalPut, identifier: step.Store, id: id, entity: e}, nil
	case StepDelete:
		return externalAction{kind: ExternalDelete, identifier: step.Store, id: step.ID}, nil
	default:
		return nil, fmt.Errorf("action %q does not apply to externals, use put or delete", step.Action)
	}
}

// externalReducer keeps a keyed collection written by put and delete.
func externalReducer(identifier string) dispatch.Reducer {
	return func(state *collection.Collection, a dispatch.Action) *collection.Collection {
		ea, ok := a.(externalAction)
		if !ok || ea.identifier != identifier {
			return state
		}
		if ea.kind == ExternalDelete {
			return state.Delete(ea.id)
		}
		return state.Set(ea.id, ea.entity)
	}
}
