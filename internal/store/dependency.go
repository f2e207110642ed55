package store

import (
	"fmt"
	"strings"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/ir"
)

// Getter extracts the referenced id(s) from an entity.
//
// An IRString is a single reference, an IRArray of IRString a multi
// reference, and nil or IRNull no reference.
type Getter func(ir.IRObject) ir.IRValue

// Setter attaches resolved data to an entity and returns the new entity.
type Setter func(entity ir.IRObject, resolved Resolved) ir.IRObject

// Dependency is one edge from a store to the store or external it reads.
type Dependency struct {
	Identifier string
	Getter     Getter
	Setter     Setter
}

// Resolved is the data a setter attaches: one entity for a single
// reference, a collection for a multi reference or a getter-less edge.
type Resolved struct {
	Entity ir.IRObject
	Many   *collection.Collection
}

// IsMany reports whether r holds a collection.
func (r Resolved) IsMany() bool { return r.Many != nil }

// Value converts r to an IR value: the entity itself, or an object keyed by
// id for collections.
func (r Resolved) Value() ir.IRValue {
	if r.Many == nil {
		if r.Entity == nil {
			return ir.IRNull{}
		}
		return r.Entity
	}
	obj := make(ir.IRObject, r.Many.Len())
	for id, e := range r.Many.All() {
		obj[id] = e
	}
	return obj
}

// Attach returns the setter that stores the resolved value under field.
func Attach(field string) Setter {
	return func(entity ir.IRObject, resolved Resolved) ir.IRObject {
		return entity.With(field, resolved.Value())
	}
}

// Field returns a getter reading a dotted field path, such as "userId" or
// "meta.authorId". Missing segments yield no reference.
func Field(path string) Getter {
	segments := strings.Split(path, ".")
	return func(entity ir.IRObject) ir.IRValue {
		var cur ir.IRValue = entity
		for _, seg := range segments {
			obj, ok := cur.(ir.IRObject)
			if !ok {
				return nil
			}
			if cur, ok = obj.Get(seg); !ok {
				return nil
			}
		}
		return cur
	}
}

// Refs interprets a getter result. A malformed result yields an error,
// which callers treat as no reference.
func Refs(v ir.IRValue) (ids []string, many bool, err error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil, false, nil
	case ir.IRString:
		if val == "" {
			return nil, false, nil
		}
		return []string{string(val)}, false, nil
	case ir.IRArray:
		ids = make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(ir.IRString)
			if !ok {
				return nil, true, fmt.Errorf("reference %d is %T, expected a string id", i, item)
			}
			ids = append(ids, string(s))
		}
		return ids, true, nil
	default:
		return nil, false, fmt.Errorf("getter returned %T, expected an id or a list of ids", v)
	}
}
