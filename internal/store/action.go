package store

import (
	"fmt"

	"github.com/roach88/orchestra/internal/ir"
)

// ActionType identifies what a store Action does.
type ActionType string

// Store action types.
const (
	TypeInsert ActionType = "FO_STORE_INSERT"
	TypeRemove ActionType = "FO_STORE_REMOVE"
	TypeFilter ActionType = "FO_STORE_FILTER"
	TypeUpdate ActionType = "FO_STORE_UPDATE"
)

// Action is the only shape a store reducer accepts. Build actions with the
// Store constructors; reducers ignore actions tagged with another
// identifier.
type Action struct {
	Type       ActionType
	Identifier string

	// Entity is the single insert payload or the entity to remove.
	Entity ir.IRObject
	// Batch is the multi-entity insert payload.
	Batch []ir.IRObject
	// ID is the id to remove.
	ID string
	// GroupID tags inserted ids with a collection group.
	GroupID string

	Predicate func(ir.IRObject) bool
	Transform func(ir.IRObject) ir.IRObject
}

// ActionType implements dispatch.Action.
func (a Action) ActionType() string { return string(a.Type) }

func (s *Store) action(a Action) Action {
	a.Identifier = s.identifier
	return a
}

func (s *Store) invalid(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Store: s.identifier}
}

func (s *Store) validEntity(e ir.IRObject, what string) error {
	if e == nil {
		return s.invalid(ErrCodeInvalidPayload, "%s must be a keyed record", what)
	}
	if _, ok := e.ID(); !ok {
		return s.invalid(ErrCodeMissingID, "%s is missing a string id", what)
	}
	return nil
}

// Insert builds an action upserting entity.
func (s *Store) Insert(entity ir.IRObject) (Action, error) {
	if err := s.validEntity(entity, "payload"); err != nil {
		return Action{}, err
	}
	return s.action(Action{Type: TypeInsert, Entity: entity}), nil
}

// InsertInto builds an action upserting entity and tagging it with group.
func (s *Store) InsertInto(group string, entity ir.IRObject) (Action, error) {
	if group == "" {
		return Action{}, s.invalid(ErrCodeInvalidPayload, "group id must be a non-empty string")
	}
	a, err := s.Insert(entity)
	if err != nil {
		return Action{}, err
	}
	a.GroupID = group
	return a, nil
}

// InsertBatch builds an action upserting entities in one bulk update,
// optionally tagging every inserted id with a group.
func (s *Store) InsertBatch(entities []ir.IRObject, groupID ...string) (Action, error) {
	if len(groupID) > 1 {
		return Action{}, s.invalid(ErrCodeInvalidPayload, "at most one group id, got %d", len(groupID))
	}
	for i, e := range entities {
		if err := s.validEntity(e, fmt.Sprintf("payload[%d]", i)); err != nil {
			return Action{}, err
		}
	}
	a := Action{Type: TypeInsert, Batch: entities}
	if len(groupID) == 1 {
		if groupID[0] == "" {
			return Action{}, s.invalid(ErrCodeInvalidPayload, "group id must be a non-empty string")
		}
		a.GroupID = groupID[0]
	}
	return s.action(a), nil
}

// Remove builds an action deleting id.
func (s *Store) Remove(id string) (Action, error) {
	if id == "" {
		return Action{}, s.invalid(ErrCodeMissingID, "remove requires a non-empty id")
	}
	return s.action(Action{Type: TypeRemove, ID: id}), nil
}

// RemoveEntity builds an action deleting the entity's id.
func (s *Store) RemoveEntity(entity ir.IRObject) (Action, error) {
	if err := s.validEntity(entity, "payload"); err != nil {
		return Action{}, err
	}
	return s.action(Action{Type: TypeRemove, Entity: entity}), nil
}

// Filter builds an action keeping only entities satisfying pred.
func (s *Store) Filter(pred func(ir.IRObject) bool) (Action, error) {
	if pred == nil {
		return Action{}, s.invalid(ErrCodeInvalidSelector, "filter requires a predicate")
	}
	return s.action(Action{Type: TypeFilter, Predicate: pred}), nil
}

// Update builds an action replacing every entity with transform(entity).
func (s *Store) Update(transform func(ir.IRObject) ir.IRObject) (Action, error) {
	if transform == nil {
		return Action{}, s.invalid(ErrCodeInvalidSelector, "update requires a transform")
	}
	return s.action(Action{Type: TypeUpdate, Transform: transform}), nil
}

// Must returns a or panics with err. Use only in tests or when inputs are
// known to be valid.
func Must(a Action, err error) Action {
	if err != nil {
		panic(err)
	}
	return a
}
