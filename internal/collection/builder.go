package collection

import "github.com/roach88/orchestra/internal/ir"

// Builder accumulates writes for Collection.Batch.
//
// A Builder is only valid inside the Batch callback that received it.
type Builder struct {
	c       *Collection
	base    *Collection
	changed bool
}

// Set upserts entity under id. Same panics as Collection.Set.
func (b *Builder) Set(id string, entity ir.IRObject) {
	mustEntity(id, entity)
	if prev, ok := b.c.index.Get(id); ok && ir.EqualObjects(prev.entity, entity) {
		return
	}
	b.c.set(id, entity)
	b.changed = true
}

// Delete removes id if present.
func (b *Builder) Delete(id string) {
	if _, ok := b.c.index.Get(id); !ok {
		return
	}
	b.c.delete(id)
	b.changed = true
}

// Get returns the entity currently stored under id.
func (b *Builder) Get(id string) (ir.IRObject, bool) {
	return b.c.Get(id)
}

// Len returns the current number of entities.
func (b *Builder) Len() int {
	return b.c.Len()
}

// Collection returns the built Collection. Returns the original receiver of
// Batch when no write changed anything.
func (b *Builder) Collection() *Collection {
	if !b.changed {
		return b.base
	}
	if b.c.IsEmpty() {
		return b.base.emptied()
	}
	return b.c.clone()
}
