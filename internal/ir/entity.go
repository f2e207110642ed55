package ir

import (
	"errors"
	"fmt"
)

// FieldID is the key every entity must carry.
const FieldID = "id"

// Entity validation errors.
var (
	ErrNotEntity = errors.New("value is not a keyed record")
	ErrMissingID = errors.New("entity is missing a string id")
)

// ID returns the entity id and whether it is a non-empty IRString.
func (obj IRObject) ID() (string, bool) {
	if obj == nil {
		return "", false
	}
	s, ok := obj[FieldID].(IRString)
	if !ok || s == "" {
		return "", false
	}
	return string(s), true
}

// Get returns the value stored under key. A key holding a Go nil is
// reported as absent.
func (obj IRObject) Get(key string) (IRValue, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// With returns a shallow copy of obj with key set to value.
// The receiver is never modified.
func (obj IRObject) With(key string, value IRValue) IRObject {
	out := make(IRObject, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	out[key] = value
	return out
}

// Without returns a shallow copy of obj with key removed.
func (obj IRObject) Without(key string) IRObject {
	out := make(IRObject, len(obj))
	for k, v := range obj {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// Entity validates that v is a keyed record with a string id and returns it
// as an IRObject.
func Entity(v IRValue) (IRObject, error) {
	obj, ok := v.(IRObject)
	if !ok || obj == nil {
		return nil, fmt.Errorf("%w: got %T", ErrNotEntity, v)
	}
	if _, ok := obj.ID(); !ok {
		return nil, ErrMissingID
	}
	return obj, nil
}

// EntityFromGo converts a decoded Go map into an entity, validating the id.
func EntityFromGo(v any) (IRObject, error) {
	val, err := FromGo(v)
	if err != nil {
		return nil, err
	}
	return Entity(val)
}
