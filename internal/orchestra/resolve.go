package orchestra

import (
	"slices"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/dispatch"
	"github.com/roach88/orchestra/internal/ir"
	"github.com/roach88/orchestra/internal/store"
	"github.com/roach88/orchestra/internal/stream"
)

// plan resolves the store graph depth first and returns store identifiers
// in an order where every store follows the stores it depends on.
//
// Each dependency must name, in order of preference, an external reducer, an
// already resolved store or a sibling store resolved on the spot. Revisiting
// an identifier on the current path is a cycle. Callers hold o.mu.
func (o *Orchestra) plan() ([]string, error) {
	done := make(map[string]bool, len(o.stores))
	order := make([]string, 0, len(o.stores))

	var resolve func(s *store.Store, path []string) error
	resolve = func(s *store.Store, path []string) error {
		id := s.Identifier()
		if slices.Contains(path, id) {
			return circularError(id, append(slices.Clone(path), id))
		}
		if done[id] {
			return nil
		}
		path = append(slices.Clone(path), id)

		for _, dep := range s.DependencyIdentifiers() {
			if _, ok := o.externals[dep]; ok {
				continue
			}
			if done[dep] {
				continue
			}
			sibling, ok := o.byID[dep]
			if !ok {
				return unresolvedError(dep, append(slices.Clone(path), dep))
			}
			if err := resolve(sibling, path); err != nil {
				return err
			}
		}

		done[id] = true
		order = append(order, id)
		return nil
	}

	for _, s := range o.stores {
		if err := resolve(s, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// build wires the views for a planned order. Callers hold o.mu.
func (o *Orchestra) build(d Dispatcher, order []string) *Graph {
	sched := d.Scheduler()

	var reduced []stream.Observable[*collection.Collection]
	reduce := func(r dispatch.Reducer, initial *collection.Collection) stream.Observable[*collection.Collection] {
		state := d.Reduce(r, initial)
		reduced = append(reduced, state)
		return state
	}

	externals := make(map[string]stream.Observable[*collection.Collection], len(o.externalOrder))
	for _, id := range o.externalOrder {
		externals[id] = reduce(o.externals[id], collection.Empty())
	}

	views := make(map[string]*stream.Shared[*collection.Collection], len(order))
	for _, id := range order {
		s := o.byID[id]
		deps := s.Dependencies()

		inputs := make([]stream.Observable[*collection.Collection], 0, len(deps)+1)
		inputs = append(inputs, reduce(s.Reducer(), s.CreateCollection()))
		for _, dep := range deps {
			if ext, ok := externals[dep.Identifier]; ok {
				inputs = append(inputs, ext)
				continue
			}
			inputs = append(inputs, views[dep.Identifier])
		}

		joined := stream.Map(stream.CombineLatest(sched, inputs...), func(latest []*collection.Collection) *collection.Collection {
			return o.join(s, deps, latest)
		})
		views[id] = stream.Share(stream.Distinct(joined, sameCollection), sameCollection)
	}

	identifiers := make([]string, len(o.stores))
	for i, s := range o.stores {
		identifiers[i] = s.Identifier()
	}
	return &Graph{
		dispatcher:   d,
		reduced:      reduced,
		dispatcherID: d.ID(),
		identifiers:  identifiers,
		views:        views,
		sched:        sched,
	}
}

func sameCollection(a, b *collection.Collection) bool {
	return a == b || a.Equals(b)
}

// join folds every dependency edge of s over its own collection, in
// declaration order, then applies the post hook. latest holds the store's
// own collection followed by one collection per dependency.
func (o *Orchestra) join(s *store.Store, deps []store.Dependency, latest []*collection.Collection) *collection.Collection {
	state := latest[0]
	for i, dep := range deps {
		target := latest[i+1]
		if dep.Getter == nil {
			state = state.Map(func(e ir.IRObject) ir.IRObject {
				return orKeep(dep.Setter(e, store.Resolved{Many: target}), e)
			})
			continue
		}

		var missing []string
		state = o.fold(s, dep, state, target, &missing)
		if ts, ok := o.byID[dep.Identifier]; ok {
			ts.ReportMissing(s.Identifier(), missing)
		}
	}
	return s.ApplyPost(state)
}

// fold resolves one edge for every entity of state, collecting ids that are
// absent from target.
func (o *Orchestra) fold(s *store.Store, dep store.Dependency, state, target *collection.Collection, missing *[]string) *collection.Collection {
	blank := collection.Empty()
	if ts, ok := o.byID[dep.Identifier]; ok {
		blank = ts.CreateCollection()
	}

	return state.Map(func(e ir.IRObject) ir.IRObject {
		ids, many, err := store.Refs(dep.Getter(e))
		if err != nil {
			id, _ := e.ID()
			o.logger.Warn("ignoring malformed reference",
				"store", s.Identifier(),
				"dependency", dep.Identifier,
				"entity", id,
				"error", err,
			)
			return e
		}

		if !many {
			if len(ids) == 0 {
				return e
			}
			found, ok := target.Get(ids[0])
			if !ok {
				*missing = append(*missing, ids[0])
				return e
			}
			return orKeep(dep.Setter(e, store.Resolved{Entity: found}), e)
		}

		resolved := blank.Batch(func(b *collection.Builder) {
			for _, id := range ids {
				if found, ok := target.Get(id); ok {
					b.Set(id, found)
					continue
				}
				*missing = append(*missing, id)
			}
		})
		return orKeep(dep.Setter(e, store.Resolved{Many: resolved}), e)
	})
}

func orKeep(next, prev ir.IRObject) ir.IRObject {
	if next == nil {
		return prev
	}
	return next
}
