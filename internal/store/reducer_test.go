package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/ir"
)

type foreignAction struct{}

func (foreignAction) ActionType() string { return "SOMETHING_ELSE" }

func seeded(t *testing.T, s *Store, entities ...ir.IRObject) *collection.Collection {
	t.Helper()
	state := s.CreateCollection()
	if len(entities) == 0 {
		return state
	}
	return s.Reducer()(state, Must(s.InsertBatch(entities)))
}

// TestReducer_IgnoresOtherActions verifies mismatched identifiers, unknown
// types and foreign actions return the same reference.
func TestReducer_IgnoresOtherActions(t *testing.T) {
	users := New("users")
	posts := New("posts")
	reduce := users.Reducer()
	state := seeded(t, users, entity("u1"))

	assert.Same(t, state, reduce(state, Must(posts.Insert(entity("p1")))))
	assert.Same(t, state, reduce(state, Action{Type: "FO_STORE_UNKNOWN", Identifier: "users"}))
	assert.Same(t, state, reduce(state, foreignAction{}))
	assert.Same(t, state, reduce(state, (*Action)(nil)))
}

func TestReducer_NilStateStartsFromCreateCollection(t *testing.T) {
	s := New("posts").Expects("user")
	out := s.Reducer()(nil, Must(s.Insert(entity("p1"))))

	assert.Equal(t, []string{"p1"}, out.Keys())
	assert.Equal(t, []string{"user"}, out.Dependencies())
}

func TestReducer_AcceptsActionPointer(t *testing.T) {
	s := New("users")
	a := Must(s.Insert(entity("u1")))
	out := s.Reducer()(s.CreateCollection(), &a)
	assert.True(t, out.Has("u1"))
}

func TestReducer_InsertUpserts(t *testing.T) {
	s := New("users")
	reduce := s.Reducer()
	state := seeded(t, s, entity("u1", ir.O("name", ir.IRString("A"))), entity("u2"))

	next := reduce(state, Must(s.Insert(entity("u1", ir.O("name", ir.IRString("B"))))))

	assert.Equal(t, []string{"u1", "u2"}, next.Keys())
	got, _ := next.Get("u1")
	assert.Equal(t, ir.IRString("B"), got["name"])
	old, _ := state.Get("u1")
	assert.Equal(t, ir.IRString("A"), old["name"], "previous state must be untouched")
}

func TestReducer_PreHookTransformsAndDrops(t *testing.T) {
	s := New("users").Pre(func(e ir.IRObject) ir.IRObject {
		if e["banned"] == ir.IRBool(true) {
			return nil
		}
		return e.With("normalized", ir.IRBool(true))
	})
	reduce := s.Reducer()
	state := s.CreateCollection()

	state = reduce(state, Must(s.Insert(entity("u1"))))
	dropped := reduce(state, Must(s.Insert(entity("u2", ir.O("banned", ir.IRBool(true))))))

	got, _ := state.Get("u1")
	assert.Equal(t, ir.IRBool(true), got["normalized"])
	assert.Same(t, state, dropped)
}

// TestReducer_BatchLastOccurrenceWins verifies duplicate ids within one batch
// keep the last value.
func TestReducer_BatchLastOccurrenceWins(t *testing.T) {
	s := New("users")
	batch := []ir.IRObject{
		entity("u1", ir.O("v", ir.IRInt(1))),
		entity("u2", ir.O("v", ir.IRInt(1))),
		entity("u1", ir.O("v", ir.IRInt(2))),
	}
	out := s.Reducer()(s.CreateCollection(), Must(s.InsertBatch(batch)))

	assert.Equal(t, 2, out.Len())
	got, _ := out.Get("u1")
	assert.Equal(t, ir.IRInt(2), got["v"])
}

func TestReducer_BatchAppliesPreToEach(t *testing.T) {
	s := New("users").Pre(func(e ir.IRObject) ir.IRObject {
		if e["skip"] == ir.IRBool(true) {
			return nil
		}
		return e
	})
	batch := []ir.IRObject{entity("u1"), entity("u2", ir.O("skip", ir.IRBool(true))), entity("u3")}
	out := s.Reducer()(s.CreateCollection(), Must(s.InsertBatch(batch)))

	assert.Equal(t, []string{"u1", "u3"}, out.Keys())
}

func TestReducer_GroupTagging(t *testing.T) {
	s := New("users")
	reduce := s.Reducer()

	state := reduce(s.CreateCollection(), Must(s.InsertBatch([]ir.IRObject{entity("u1"), entity("u2")}, "page-1")))
	state = reduce(state, Must(s.InsertInto("page-2", entity("u3"))))

	assert.Equal(t, []string{"u1", "u2"}, state.Group("page-1"))
	assert.Equal(t, []string{"u3"}, state.Group("page-2"))
}

// TestReducer_RemoveByIDMatchesRemoveByEntity verifies both remove payload
// forms produce equal results.
func TestReducer_RemoveByIDMatchesRemoveByEntity(t *testing.T) {
	s := New("users")
	reduce := s.Reducer()
	e := entity("u1", ir.O("name", ir.IRString("Tester")))

	for _, start := range []*collection.Collection{s.CreateCollection(), seeded(t, s, entity("u0"), entity("u2"))} {
		inserted := reduce(start, Must(s.Insert(e)))
		byID := reduce(inserted, Must(s.Remove("u1")))
		byEntity := reduce(inserted, Must(s.RemoveEntity(e)))

		assert.True(t, byID.Equals(byEntity))
		assert.False(t, byID.Has("u1"))
	}
}

func TestReducer_RemoveAbsentIsNoop(t *testing.T) {
	s := New("users")
	state := seeded(t, s, entity("u1"))
	assert.Same(t, state, s.Reducer()(state, Must(s.Remove("missing"))))
}

// TestReducer_InsertThenRemoveIsEmpty verifies the collection returns to the
// canonical empty value.
func TestReducer_InsertThenRemoveIsEmpty(t *testing.T) {
	s := New("users")
	reduce := s.Reducer()

	state := reduce(s.CreateCollection(), Must(s.Insert(entity("u1"))))
	state = reduce(state, Must(s.Remove("u1")))

	assert.True(t, state.IsEmpty())
	assert.True(t, state.Equals(collection.Empty()))
	assert.Same(t, collection.Empty(), state)
}

func TestReducer_Filter(t *testing.T) {
	s := New("users")
	reduce := s.Reducer()
	state := seeded(t, s, entity("u1", ir.O("active", ir.IRBool(true))), entity("u2"))

	out := reduce(state, Must(s.Filter(func(e ir.IRObject) bool { return e["active"] == ir.IRBool(true) })))
	assert.Equal(t, []string{"u1"}, out.Keys())

	nilPredicate := Action{Type: TypeFilter, Identifier: "users"}
	assert.Same(t, state, reduce(state, nilPredicate))
}

func TestReducer_UpdateAppliesTransformThenPre(t *testing.T) {
	s := New("users").Pre(func(e ir.IRObject) ir.IRObject { return e.With("pre", ir.IRBool(true)) })
	reduce := s.Reducer()
	state := seeded(t, s, entity("u1"), entity("u2"))

	out := reduce(state, Must(s.Update(func(e ir.IRObject) ir.IRObject {
		return e.With("touched", ir.IRBool(true))
	})))

	for _, e := range out.All() {
		assert.Equal(t, ir.IRBool(true), e["touched"])
		assert.Equal(t, ir.IRBool(true), e["pre"])
	}
}

// TestReducer_UpdateNeverDeletes verifies a nil transform result keeps the
// original entity.
func TestReducer_UpdateNeverDeletes(t *testing.T) {
	s := New("users")
	reduce := s.Reducer()
	state := seeded(t, s, entity("u1"), entity("u2"))

	out := reduce(state, Must(s.Update(func(e ir.IRObject) ir.IRObject {
		if e["id"] == ir.IRString("u1") {
			return nil
		}
		return e.With("touched", ir.IRBool(true))
	})))

	require.Equal(t, []string{"u1", "u2"}, out.Keys())
	u1, _ := out.Get("u1")
	assert.Equal(t, entity("u1"), u1)

	same := reduce(state, Must(s.Update(func(ir.IRObject) ir.IRObject { return nil })))
	assert.Same(t, state, same)
}
