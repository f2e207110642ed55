package collection

import (
	"iter"

	"github.com/roach88/orchestra/internal/ir"
)

// OrderedMapping is any ordered id→entity sequence a Collection can be
// compared with or merged from.
type OrderedMapping interface {
	Len() int
	All() iter.Seq2[string, ir.IRObject]
}

// Pair is one (id, entity) entry of a Pairs mapping.
type Pair struct {
	ID     string
	Entity ir.IRObject
}

// Pairs is a plain ordered mapping, mostly useful for expectations in tests
// and for merging literal data.
type Pairs []Pair

// Len returns the number of pairs.
func (p Pairs) Len() int { return len(p) }

// All iterates over the pairs in order.
func (p Pairs) All() iter.Seq2[string, ir.IRObject] {
	return func(yield func(string, ir.IRObject) bool) {
		for _, pair := range p {
			if !yield(pair.ID, pair.Entity) {
				return
			}
		}
	}
}

// Entities builds Pairs from entities keyed by their id field.
// Entities without an id are skipped.
func Entities(entities ...ir.IRObject) Pairs {
	out := make(Pairs, 0, len(entities))
	for _, e := range entities {
		if id, ok := e.ID(); ok {
			out = append(out, Pair{ID: id, Entity: e})
		}
	}
	return out
}

// Equals reports whether other holds the same ids, in the same order, with
// structurally equal entities. Dependency keys and groups are not compared.
func (c *Collection) Equals(other OrderedMapping) bool {
	if other == nil {
		return false
	}
	if oc, ok := other.(*Collection); ok && oc == c {
		return true
	}
	if c.Len() != other.Len() {
		return false
	}
	next, stop := iter.Pull2(other.All())
	defer stop()
	for id, e := range c.All() {
		oid, oe, ok := next()
		if !ok || oid != id || !ir.EqualObjects(e, oe) {
			return false
		}
	}
	_, _, more := next()
	return !more
}
