package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orchestra/internal/ir"
)

func TestWherePredicate(t *testing.T) {
	var errs selectorErrors

	all, err := wherePredicate("", &errs)
	require.NoError(t, err)
	assert.True(t, all(ir.IRObject{"id": ir.IRString("a")}))

	adult, err := wherePredicate("entity.age >= 18", &errs)
	require.NoError(t, err)
	assert.True(t, adult(ir.IRObject{"id": ir.IRString("a"), "age": ir.IRInt(30)}))
	assert.False(t, adult(ir.IRObject{"id": ir.IRString("b"), "age": ir.IRInt(17)}))
	assert.NoError(t, errs.take())

	tagged, err := wherePredicate(`"x" in entity.tags`, &errs)
	require.NoError(t, err)
	assert.True(t, tagged(ir.IRObject{"id": ir.IRString("a"), "tags": ir.Strings("x", "y")}))

	_, err = wherePredicate("entity.age >=", &errs)
	assert.Error(t, err)
}

func TestWherePredicate_RuntimeError(t *testing.T) {
	var errs selectorErrors
	pred, err := wherePredicate(`entity.name + 1 == 2`, &errs)
	require.NoError(t, err)

	assert.False(t, pred(ir.IRObject{"id": ir.IRString("a"), "name": ir.IRString("Ada")}))
	require.Error(t, errs.take())
	assert.NoError(t, errs.take(), "take resets")
}

func TestSetTransform(t *testing.T) {
	var errs selectorErrors
	where, err := wherePredicate(`entity.id == "a"`, &errs)
	require.NoError(t, err)

	transform, err := setTransform(map[string]string{
		"age":   "entity.age + 1",
		"label": `entity.name + "!"`,
	}, where, &errs)
	require.NoError(t, err)

	a := ir.IRObject{"id": ir.IRString("a"), "name": ir.IRString("Ada"), "age": ir.IRInt(36)}
	got := transform(a)
	assert.Equal(t, ir.IRInt(37), got["age"])
	assert.Equal(t, ir.IRString("Ada!"), got["label"])
	assert.Equal(t, ir.IRInt(36), a["age"], "input is not mutated")

	b := ir.IRObject{"id": ir.IRString("b"), "age": ir.IRInt(1)}
	assert.Equal(t, b, transform(b))
	assert.NoError(t, errs.take())
}

func TestSetTransform_Errors(t *testing.T) {
	var errs selectorErrors
	all, _ := wherePredicate("", &errs)

	_, err := setTransform(map[string]string{"id": `"x"`}, all, &errs)
	assert.ErrorContains(t, err, "id cannot be updated")

	_, err = setTransform(map[string]string{"age": "entity.age +"}, all, &errs)
	assert.ErrorContains(t, err, "set.age")

	fractional, err := setTransform(map[string]string{"ratio": "entity.age / 2"}, all, &errs)
	require.NoError(t, err)
	e := ir.IRObject{"id": ir.IRString("a"), "age": ir.IRInt(3)}
	assert.Equal(t, e, fractional(e))
	assert.ErrorContains(t, errs.take(), "floats are forbidden")
}
