package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/ir"
)

func TestRefs(t *testing.T) {
	tests := []struct {
		name    string
		in      ir.IRValue
		ids     []string
		many    bool
		wantErr bool
	}{
		{"nil", nil, nil, false, false},
		{"null", ir.IRNull{}, nil, false, false},
		{"empty string", ir.IRString(""), nil, false, false},
		{"single", ir.IRString("u1"), []string{"u1"}, false, false},
		{"many", ir.Strings("c1", "c2"), []string{"c1", "c2"}, true, false},
		{"empty list", ir.IRArray{}, []string{}, true, false},
		{"list with int", ir.IRArray{ir.IRString("c1"), ir.IRInt(2)}, nil, true, true},
		{"int", ir.IRInt(7), nil, false, true},
		{"object", ir.IRObject{}, nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, many, err := Refs(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.many, many)
		})
	}
}

func TestField(t *testing.T) {
	e := ir.IRObject{
		"id":     ir.IRString("p1"),
		"userId": ir.IRString("u1"),
		"meta":   ir.IRObject{"authorId": ir.IRString("u2")},
		"gone":   nil,
	}

	assert.Equal(t, ir.IRString("u1"), Field("userId")(e))
	assert.Equal(t, ir.IRString("u2"), Field("meta.authorId")(e))
	assert.Nil(t, Field("meta.missing")(e))
	assert.Nil(t, Field("userId.deeper")(e))
	assert.Nil(t, Field("gone")(e))
}

func TestAttach(t *testing.T) {
	post := ir.IRObject{"id": ir.IRString("p1")}
	user := ir.IRObject{"id": ir.IRString("u1")}

	single := Attach("user")(post, Resolved{Entity: user})
	assert.Equal(t, user, single["user"])
	assert.NotContains(t, post, "user", "setter must not mutate its input")

	comments := collection.Empty().
		Set("c1", ir.IRObject{"id": ir.IRString("c1")}).
		Set("c2", ir.IRObject{"id": ir.IRString("c2")})
	many := Attach("comments")(post, Resolved{Many: comments})
	assert.Equal(t, ir.IRObject{
		"c1": ir.IRObject{"id": ir.IRString("c1")},
		"c2": ir.IRObject{"id": ir.IRString("c2")},
	}, many["comments"])
}

func TestResolved_Value(t *testing.T) {
	assert.Equal(t, ir.IRNull{}, Resolved{}.Value())
	assert.False(t, Resolved{}.IsMany())
	assert.True(t, Resolved{Many: collection.Empty()}.IsMany())
	assert.Equal(t, ir.IRObject{}, Resolved{Many: collection.Empty()}.Value())
}
