package store

import (
	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/dispatch"
	"github.com/roach88/orchestra/internal/ir"
)

// Reducer returns the pure state machine folding this store's actions into
// a collection. Actions of other stores, foreign action types and unknown
// store action types return the state unchanged, by reference.
func (s *Store) Reducer() dispatch.Reducer {
	return func(state *collection.Collection, action dispatch.Action) *collection.Collection {
		if state == nil {
			state = s.CreateCollection()
		}
		var a Action
		switch v := action.(type) {
		case Action:
			a = v
		case *Action:
			if v == nil {
				return state
			}
			a = *v
		default:
			return state
		}
		if a.Identifier != s.identifier {
			return state
		}

		switch a.Type {
		case TypeInsert:
			if a.Batch != nil {
				return s.insertBatch(state, a)
			}
			return s.insertOne(state, a)
		case TypeRemove:
			id := a.ID
			if a.Entity != nil {
				id, _ = a.Entity.ID()
			}
			if id == "" {
				return state
			}
			return state.Delete(id)
		case TypeFilter:
			if a.Predicate == nil {
				return state
			}
			return state.Filter(a.Predicate)
		case TypeUpdate:
			if a.Transform == nil {
				return state
			}
			return state.Map(func(e ir.IRObject) ir.IRObject {
				next := a.Transform(e)
				if next == nil {
					return e
				}
				if next = s.ApplyPre(next); next == nil {
					return e
				}
				return next
			})
		default:
			return state
		}
	}
}

func (s *Store) insertOne(state *collection.Collection, a Action) *collection.Collection {
	item := s.ApplyPre(a.Entity)
	if item == nil {
		return state
	}
	id, ok := item.ID()
	if !ok {
		s.logger.Debug("insert dropped: pre hook removed the id", "store", s.identifier)
		return state
	}
	next := state.Set(id, item)
	if a.GroupID != "" {
		next = next.AddToGroup(a.GroupID, id)
	}
	return next
}

// insertBatch applies pre to each entity and upserts the survivors in one
// bulk update. Within the batch the last occurrence of an id wins.
func (s *Store) insertBatch(state *collection.Collection, a Action) *collection.Collection {
	var ids []string
	next := state.Batch(func(b *collection.Builder) {
		for _, e := range a.Batch {
			item := s.ApplyPre(e)
			if item == nil {
				continue
			}
			id, ok := item.ID()
			if !ok {
				continue
			}
			b.Set(id, item)
			ids = append(ids, id)
		}
	})
	if a.GroupID != "" && len(ids) > 0 {
		next = next.AddToGroup(a.GroupID, ids...)
	}
	return next
}
