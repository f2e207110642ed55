package collection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orchestra/internal/ir"
)

func user(id, name string) ir.IRObject {
	return ir.IRObject{"id": ir.IRString(id), "name": ir.IRString(name)}
}

func TestEmpty_IsCanonical(t *testing.T) {
	assert.Same(t, Empty(), New())
	assert.True(t, Empty().IsEmpty())
	assert.Equal(t, 0, Empty().Len())
	assert.Empty(t, Empty().Keys())
}

func TestNew_NormalizesDependencies(t *testing.T) {
	c := New("user", "author", "user")
	assert.Equal(t, []string{"author", "user"}, c.Dependencies())
	assert.True(t, c.IsEmpty())
}

func TestSet_PreservesInsertionOrder(t *testing.T) {
	c := Empty().
		Set("b", user("b", "Bea")).
		Set("a", user("a", "Al")).
		Set("c", user("c", "Cy"))

	assert.Equal(t, []string{"b", "a", "c"}, c.Keys())
}

// TestSet_UpsertKeepsPosition verifies an existing id is replaced in place.
func TestSet_UpsertKeepsPosition(t *testing.T) {
	c := Empty().
		Set("a", user("a", "Al")).
		Set("b", user("b", "Bea")).
		Set("a", user("a", "Alan"))

	assert.Equal(t, []string{"a", "b"}, c.Keys())
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, ir.IRString("Alan"), got["name"])
}

func TestSet_DoesNotMutateReceiver(t *testing.T) {
	before := Empty().Set("a", user("a", "Al"))
	after := before.Set("b", user("b", "Bea"))

	assert.Equal(t, 1, before.Len())
	assert.Equal(t, 2, after.Len())
	assert.False(t, before.Has("b"))
}

func TestSet_StructurallyEqualReturnsReceiver(t *testing.T) {
	c := Empty().Set("a", user("a", "Al"))
	assert.Same(t, c, c.Set("a", user("a", "Al")))
}

func TestSet_PanicsOnInvalidEntry(t *testing.T) {
	assert.Panics(t, func() { Empty().Set("", user("a", "Al")) })
	assert.Panics(t, func() { Empty().Set("a", nil) })
}

func TestDelete(t *testing.T) {
	c := Empty().Set("a", user("a", "Al")).Set("b", user("b", "Bea"))

	removed := c.Delete("a")
	assert.Equal(t, []string{"b"}, removed.Keys())
	assert.Same(t, c, c.Delete("missing"))
}

// TestDelete_LastEntityYieldsCanonicalEmpty verifies a collection emptied by
// removal is the shared empty instance.
func TestDelete_LastEntityYieldsCanonicalEmpty(t *testing.T) {
	c := Empty().Set("a", user("a", "Al")).Delete("a")
	assert.Same(t, Empty(), c)

	withDeps := New("user").Set("a", user("a", "Al")).Delete("a")
	assert.True(t, withDeps.IsEmpty())
	assert.Equal(t, []string{"user"}, withDeps.Dependencies())
	assert.True(t, withDeps.Equals(Empty()))
}

func TestDelete_ThenReinsertAppends(t *testing.T) {
	c := Empty().
		Set("a", user("a", "Al")).
		Set("b", user("b", "Bea")).
		Delete("a").
		Set("a", user("a", "Al"))

	assert.Equal(t, []string{"b", "a"}, c.Keys())
}

func TestUpdate(t *testing.T) {
	c := Empty().Set("a", user("a", "Al"))

	renamed := c.Update("a", func(e ir.IRObject) ir.IRObject {
		return e.With("name", ir.IRString("Alan"))
	})
	got, _ := renamed.Get("a")
	assert.Equal(t, ir.IRString("Alan"), got["name"])

	assert.Same(t, c, c.Update("missing", func(e ir.IRObject) ir.IRObject { return e }))
	assert.Same(t, Empty(), c.Update("a", func(ir.IRObject) ir.IRObject { return nil }))
}

func TestFilter(t *testing.T) {
	c := Empty().
		Set("a", user("a", "Al")).
		Set("b", user("b", "Bea")).
		Set("c", user("c", "Cy"))

	kept := c.Filter(func(e ir.IRObject) bool { return e["name"] != ir.IRString("Bea") })
	assert.Equal(t, []string{"a", "c"}, kept.Keys())

	assert.Same(t, c, c.Filter(func(ir.IRObject) bool { return true }))
	assert.Same(t, Empty(), c.Filter(func(ir.IRObject) bool { return false }))
}

func TestMap(t *testing.T) {
	c := Empty().Set("a", user("a", "Al")).Set("b", user("b", "Bea"))

	tagged := c.Map(func(e ir.IRObject) ir.IRObject { return e.With("seen", ir.IRBool(true)) })
	assert.Equal(t, []string{"a", "b"}, tagged.Keys())
	for _, e := range tagged.All() {
		assert.Equal(t, ir.IRBool(true), e["seen"])
	}

	assert.Same(t, c, c.Map(func(e ir.IRObject) ir.IRObject { return e.With("name", e["name"]) }))
	assert.Panics(t, func() { c.Map(func(ir.IRObject) ir.IRObject { return nil }) })
}

func TestMerge(t *testing.T) {
	c := Empty().Set("a", user("a", "Al")).Set("b", user("b", "Bea"))

	merged := c.Merge(Entities(user("c", "Cy"), user("a", "Alan")))
	assert.Equal(t, []string{"a", "b", "c"}, merged.Keys())
	got, _ := merged.Get("a")
	assert.Equal(t, ir.IRString("Alan"), got["name"])
}

func TestSlice(t *testing.T) {
	c := Empty().
		Set("a", user("a", "Al")).
		Set("b", user("b", "Bea")).
		Set("c", user("c", "Cy"))

	assert.Equal(t, []string{"b", "c"}, c.Slice(1, 3).Keys())
	assert.Equal(t, []string{"a"}, c.Slice(-5, 1).Keys())
	assert.Same(t, c, c.Slice(0, 10))
	assert.True(t, c.Slice(2, 1).IsEmpty())
}

func TestBatch_NoWritesReturnsReceiver(t *testing.T) {
	c := Empty().Set("a", user("a", "Al"))
	assert.Same(t, c, c.Batch(func(b *Builder) {
		b.Set("a", user("a", "Al"))
		b.Delete("missing")
	}))
}

func TestBatch_AppliesWritesInOrder(t *testing.T) {
	c := Empty().Batch(func(b *Builder) {
		b.Set("a", user("a", "Al"))
		b.Set("b", user("b", "Bea"))
		b.Set("a", user("a", "Alan"))
		b.Delete("b")
		b.Set("c", user("c", "Cy"))
		assert.Equal(t, 2, b.Len())
	})

	assert.Equal(t, []string{"a", "c"}, c.Keys())
}

func TestFromEntities(t *testing.T) {
	c, err := FromEntities([]ir.IRObject{user("a", "Al"), user("b", "Bea")}, "author")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Equal(t, []string{"author"}, c.Dependencies())

	_, err = FromEntities([]ir.IRObject{{"name": ir.IRString("anon")}})
	assert.ErrorIs(t, err, ir.ErrMissingID)
}

// TestFilterComplete_PartitionsByDependencies verifies complete and incomplete
// views are exact complements.
func TestFilterComplete_PartitionsByDependencies(t *testing.T) {
	c := New("user").
		Set("1", ir.IRObject{"id": ir.IRString("1"), "user": ir.IRObject{"id": ir.IRString("u1")}}).
		Set("2", ir.IRObject{"id": ir.IRString("2")}).
		Set("3", ir.IRObject{"id": ir.IRString("3"), "user": nil}).
		Set("4", ir.IRObject{"id": ir.IRString("4"), "user": ir.IRNull{}})

	assert.Equal(t, []string{"1", "4"}, c.FilterComplete().Keys())
	assert.Equal(t, []string{"2", "3"}, c.FilterIncomplete().Keys())
	assert.Equal(t, c.Len(), c.FilterComplete().Len()+c.FilterIncomplete().Len())
}

func TestFilterComplete_NoDependenciesKeepsAll(t *testing.T) {
	c := Empty().Set("a", user("a", "Al"))
	assert.Same(t, c, c.FilterComplete())
	assert.True(t, c.FilterIncomplete().IsEmpty())
}

func TestWithDependencies(t *testing.T) {
	c := Empty().Set("a", user("a", "Al"))
	withDeps := c.WithDependencies("author")

	assert.Equal(t, []string{"author"}, withDeps.Dependencies())
	assert.Empty(t, c.Dependencies())
	assert.Same(t, withDeps, withDeps.WithDependencies("author"))
	assert.True(t, withDeps.FilterComplete().IsEmpty())
}

func TestEquals(t *testing.T) {
	a := Empty().Set("a", user("a", "Al")).Set("b", user("b", "Bea"))
	b := Empty().Set("a", user("a", "Al")).Set("b", user("b", "Bea"))
	reordered := Empty().Set("b", user("b", "Bea")).Set("a", user("a", "Al"))

	assert.True(t, a.Equals(a))
	assert.True(t, a.Equals(b))
	assert.True(t, a.Equals(Entities(user("a", "Al"), user("b", "Bea"))))
	assert.False(t, a.Equals(reordered))
	assert.False(t, a.Equals(b.Set("b", user("b", "Bee"))))
	assert.False(t, a.Equals(nil))
	assert.True(t, Empty().Equals(Pairs{}))
}

func TestGroups(t *testing.T) {
	c := Empty().
		Set("a", user("a", "Al")).
		Set("b", user("b", "Bea")).
		Set("c", user("c", "Cy"))

	tagged := c.AddToGroup("page-1", "c", "a", "missing")
	assert.Equal(t, []string{"a", "c"}, tagged.Group("page-1"))
	assert.Equal(t, []string{"page-1"}, tagged.Groups())
	assert.Empty(t, c.Groups())
	assert.Same(t, tagged, tagged.AddToGroup("page-1", "a"))

	// groups do not take part in equality
	assert.True(t, tagged.Equals(c))

	removed := tagged.Delete("a")
	assert.Equal(t, []string{"c"}, removed.Group("page-1"))
}

func TestMarshalJSON_InsertionOrder(t *testing.T) {
	c := Empty().Set("b", user("b", "Bea")).Set("a", user("a", "Al"))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"b":{"id":"b","name":"Bea"},"a":{"id":"a","name":"Al"}}`, string(data))
}

func TestDigest(t *testing.T) {
	a := Empty().Set("a", user("a", "Al"))
	b := Empty().Set("a", user("a", "Al"))
	c := Empty().Set("a", user("a", "Alan"))

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	dc, err := c.Digest()
	require.NoError(t, err)

	assert.Equal(t, da, db)
	assert.NotEqual(t, da, dc)
	assert.Len(t, da, 64)
}
