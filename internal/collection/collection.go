// Package collection implements the persistent ordered id→entity mapping
// every store reduces into.
//
// A Collection is an immutable value: every writer returns a new
// Collection and leaves the receiver untouched, sharing structure with it.
// Writers that change nothing return the receiver itself so callers can
// short-circuit on reference equality before falling back to Equals.
//
// The structure composes two persistent maps from
// github.com/benbjohnson/immutable: a hash array mapped trie from id to
// (sequence, entity) and a sorted map from sequence to id that preserves
// insertion order. Upserting an existing id keeps its original position.
package collection

import (
	"fmt"
	"iter"
	"slices"

	"github.com/benbjohnson/immutable"

	"github.com/roach88/orchestra/internal/ir"
)

// entry is an indexed entity plus its insertion sequence.
type entry struct {
	seq    uint64
	entity ir.IRObject
}

// Collection is a persistent ordered mapping from id to entity.
//
// The zero value is not usable; construct collections with New, Empty or
// FromEntities.
type Collection struct {
	index  *immutable.Map[string, entry]
	order  *immutable.SortedMap[uint64, string]
	next   uint64
	deps   []string // sorted, never mutated after construction
	groups *immutable.Map[string, *immutable.Map[string, struct{}]]
}

// empty is the canonical empty Collection without dependency keys.
var empty = &Collection{
	index:  immutable.NewMap[string, entry](nil),
	order:  immutable.NewSortedMap[uint64, string](nil),
	groups: immutable.NewMap[string, *immutable.Map[string, struct{}]](nil),
}

// Empty returns the shared canonical empty Collection.
func Empty() *Collection {
	return empty
}

// New returns an empty Collection carrying the given dependency keys.
// Without keys it returns the canonical empty instance.
func New(dependencies ...string) *Collection {
	deps := normalizeKeys(dependencies)
	if len(deps) == 0 {
		return empty
	}
	return &Collection{
		index:  empty.index,
		order:  empty.order,
		deps:   deps,
		groups: empty.groups,
	}
}

// FromEntities builds a Collection from entities in order. Every entity must
// carry a string id; a later duplicate replaces the earlier value in place.
func FromEntities(entities []ir.IRObject, dependencies ...string) (*Collection, error) {
	c := New(dependencies...)
	var err error
	c = c.Batch(func(b *Builder) {
		for i, e := range entities {
			id, ok := e.ID()
			if !ok {
				err = fmt.Errorf("collection: entity %d: %w", i, ir.ErrMissingID)
				return
			}
			b.Set(id, e)
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// normalizeKeys returns a sorted, de-duplicated copy of keys.
func normalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// Len returns the number of entities.
func (c *Collection) Len() int {
	return c.index.Len()
}

// IsEmpty reports whether the collection holds no entities.
func (c *Collection) IsEmpty() bool {
	return c.index.Len() == 0
}

// Get returns the entity stored under id.
func (c *Collection) Get(id string) (ir.IRObject, bool) {
	e, ok := c.index.Get(id)
	if !ok {
		return nil, false
	}
	return e.entity, true
}

// Has reports whether id is present.
func (c *Collection) Has(id string) bool {
	_, ok := c.index.Get(id)
	return ok
}

// All iterates over (id, entity) pairs in insertion order.
func (c *Collection) All() iter.Seq2[string, ir.IRObject] {
	return func(yield func(string, ir.IRObject) bool) {
		itr := c.order.Iterator()
		for !itr.Done() {
			_, id, ok := itr.Next()
			if !ok {
				return
			}
			e, _ := c.index.Get(id)
			if !yield(id, e.entity) {
				return
			}
		}
	}
}

// Keys returns ids in insertion order.
func (c *Collection) Keys() []string {
	keys := make([]string, 0, c.Len())
	for id := range c.All() {
		keys = append(keys, id)
	}
	return keys
}

// Values returns entities in insertion order.
func (c *Collection) Values() []ir.IRObject {
	values := make([]ir.IRObject, 0, c.Len())
	for _, e := range c.All() {
		values = append(values, e)
	}
	return values
}

// Dependencies returns the dependency keys used by completeness checks.
func (c *Collection) Dependencies() []string {
	return slices.Clone(c.deps)
}

// WithDependencies returns a Collection holding the same entities with a
// new set of dependency keys.
func (c *Collection) WithDependencies(keys ...string) *Collection {
	deps := normalizeKeys(keys)
	if slices.Equal(deps, c.deps) {
		return c
	}
	if c.IsEmpty() && len(deps) == 0 {
		return empty
	}
	out := c.clone()
	out.deps = deps
	return out
}

// Set upserts entity under id. An existing id keeps its position.
// Returns the receiver when the stored entity is structurally unchanged.
//
// Panics when id is empty or entity is nil: every stored value must be a
// keyed record.
func (c *Collection) Set(id string, entity ir.IRObject) *Collection {
	mustEntity(id, entity)
	if prev, ok := c.index.Get(id); ok && ir.EqualObjects(prev.entity, entity) {
		return c
	}
	out := c.clone()
	out.set(id, entity)
	return out
}

// Delete removes id. Returns the receiver when id is absent.
func (c *Collection) Delete(id string) *Collection {
	if !c.Has(id) {
		return c
	}
	if c.Len() == 1 {
		return c.emptied()
	}
	out := c.clone()
	out.delete(id)
	return out
}

// Update replaces the entity under id with fn(entity). A nil result deletes
// the entity. Returns the receiver when id is absent.
func (c *Collection) Update(id string, fn func(ir.IRObject) ir.IRObject) *Collection {
	prev, ok := c.Get(id)
	if !ok {
		return c
	}
	next := fn(prev)
	if next == nil {
		return c.Delete(id)
	}
	return c.Set(id, next)
}

// Filter keeps entities satisfying pred, preserving order.
// Returns the receiver when every entity is kept.
func (c *Collection) Filter(pred func(ir.IRObject) bool) *Collection {
	var drop []string
	for id, e := range c.All() {
		if !pred(e) {
			drop = append(drop, id)
		}
	}
	if len(drop) == 0 {
		return c
	}
	if len(drop) == c.Len() {
		return c.emptied()
	}
	return c.Batch(func(b *Builder) {
		for _, id := range drop {
			b.Delete(id)
		}
	})
}

// Map replaces every entity with fn(entity), keeping ids and order.
// Returns the receiver when no entity changes structurally.
//
// Panics when fn returns nil; use Filter to drop entities.
func (c *Collection) Map(fn func(ir.IRObject) ir.IRObject) *Collection {
	return c.Batch(func(b *Builder) {
		for id, e := range c.All() {
			next := fn(e)
			if next == nil {
				panic(fmt.Sprintf("collection: Map returned nil for id %q; use Filter to drop entities", id))
			}
			b.Set(id, next)
		}
	})
}

// Merge upserts every entity of other, in other's order.
func (c *Collection) Merge(other OrderedMapping) *Collection {
	return c.Batch(func(b *Builder) {
		for id, e := range other.All() {
			b.Set(id, e)
		}
	})
}

// Slice keeps the entities at positions [start, end) in insertion order.
// Bounds are clamped to the collection length.
func (c *Collection) Slice(start, end int) *Collection {
	n := c.Len()
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	if start == 0 && end == n {
		return c
	}
	pos := 0
	return c.Batch(func(b *Builder) {
		for id := range c.All() {
			if pos < start || pos >= end {
				b.Delete(id)
			}
			pos++
		}
	})
}

// Batch applies a group of writes through a Builder and returns the
// resulting Collection. Returns the receiver when nothing changed.
func (c *Collection) Batch(fn func(b *Builder)) *Collection {
	b := &Builder{c: c.clone(), base: c}
	fn(b)
	return b.Collection()
}

// FilterComplete returns the entities holding a defined value for every
// dependency key.
func (c *Collection) FilterComplete() *Collection {
	return c.Filter(c.isComplete)
}

// FilterIncomplete returns the exact complement of FilterComplete: entities
// missing at least one dependency key or holding an undefined value for it.
func (c *Collection) FilterIncomplete() *Collection {
	return c.Filter(func(e ir.IRObject) bool { return !c.isComplete(e) })
}

func (c *Collection) isComplete(e ir.IRObject) bool {
	for _, key := range c.deps {
		if _, ok := e.Get(key); !ok {
			return false
		}
	}
	return true
}

// String renders the collection for debugging.
func (c *Collection) String() string {
	return fmt.Sprintf("Collection %v", c.Keys())
}

// clone returns a shallow copy sharing the persistent maps.
func (c *Collection) clone() *Collection {
	out := *c
	return &out
}

// emptied returns an empty Collection with the receiver's dependency keys.
func (c *Collection) emptied() *Collection {
	if len(c.deps) == 0 {
		return empty
	}
	return &Collection{
		index:  empty.index,
		order:  empty.order,
		deps:   c.deps,
		groups: empty.groups,
	}
}

// set writes in place; only valid on a fresh clone.
func (c *Collection) set(id string, entity ir.IRObject) {
	if prev, ok := c.index.Get(id); ok {
		c.index = c.index.Set(id, entry{seq: prev.seq, entity: entity})
		return
	}
	c.next++
	c.index = c.index.Set(id, entry{seq: c.next, entity: entity})
	c.order = c.order.Set(c.next, id)
}

// delete removes in place; only valid on a fresh clone.
func (c *Collection) delete(id string) {
	prev, ok := c.index.Get(id)
	if !ok {
		return
	}
	c.index = c.index.Delete(id)
	c.order = c.order.Delete(prev.seq)
	c.untag(id)
}

func mustEntity(id string, entity ir.IRObject) {
	if id == "" {
		panic("collection: Set requires a non-empty id")
	}
	if entity == nil {
		panic(fmt.Sprintf("collection: Set(%q) requires a keyed record, got nil", id))
	}
}
