package orchestra

import (
	"slices"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/stream"
)

// Graph is the resolved set of views for one dispatcher.
type Graph struct {
	dispatcher   Dispatcher
	reduced      []stream.Observable[*collection.Collection] // detached on release
	dispatcherID string
	identifiers  []string // store declaration order
	views        map[string]*stream.Shared[*collection.Collection]
	sched        *stream.Scheduler
}

// DispatcherID returns the id of the dispatcher the graph was built for.
func (g *Graph) DispatcherID() string { return g.dispatcherID }

// Identifiers returns the store identifiers in declaration order.
func (g *Graph) Identifiers() []string { return slices.Clone(g.identifiers) }

// View returns the shared denormalized stream of a store.
//
// The view computes while it has subscribers and replays its latest value
// to new ones, including after a period without subscribers. A subscriber
// arriving after such a period first receives the value cached when the
// last subscriber left, then the recomputed value if actions changed it
// in between. Use Current for a single up-to-date read.
func (g *Graph) View(identifier string) (stream.Observable[*collection.Collection], bool) {
	v, ok := g.views[identifier]
	if !ok {
		return nil, false
	}
	return v, true
}

// Current returns the latest value of a view, computing it if the view has
// never been subscribed.
func (g *Graph) Current(identifier string) (*collection.Collection, bool) {
	v, ok := g.views[identifier]
	if !ok {
		return nil, false
	}
	return stream.Current[*collection.Collection](v)
}

// Snapshot returns the latest value of every view keyed by identifier.
func (g *Graph) Snapshot() map[string]*collection.Collection {
	out := make(map[string]*collection.Collection, len(g.identifiers))
	for _, id := range g.identifiers {
		if c, ok := g.Current(id); ok {
			out[id] = c
		}
	}
	return out
}

// Combine returns a stream emitting every view's latest value, keyed by
// identifier, once all views have a value and whenever any of them changes.
func (g *Graph) Combine() stream.Observable[map[string]*collection.Collection] {
	inputs := make([]stream.Observable[*collection.Collection], len(g.identifiers))
	for i, id := range g.identifiers {
		inputs[i] = g.views[id]
	}
	return stream.Map(stream.CombineLatest(g.sched, inputs...), func(latest []*collection.Collection) map[string]*collection.Collection {
		out := make(map[string]*collection.Collection, len(latest))
		for i, c := range latest {
			out[g.identifiers[i]] = c
		}
		return out
	})
}

// detach unregisters every reducer the graph added to its dispatcher.
func (g *Graph) detach() {
	for _, state := range g.reduced {
		g.dispatcher.Detach(state)
	}
	g.reduced = nil
}
