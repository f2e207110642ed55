package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func observe(s *Store) *[][]string {
	var got [][]string
	s.ObserveMissing().Subscribe(func(ids []string) { got = append(got, ids) })
	return &got
}

func TestObserveMissing_UnionAcrossAskers(t *testing.T) {
	users := New("users")
	got := observe(users)

	users.ReportMissing("posts", []string{"u2", "u1", "u2"})
	users.ReportMissing("comments", []string{"u3", "u1"})

	assert.Equal(t, [][]string{
		{"u1", "u2"},
		{"u1", "u2", "u3"},
	}, *got)
	assert.Equal(t, []string{"u1", "u2", "u3"}, users.Missing())
}

// TestObserveMissing_EmitsOnlyOnChange verifies repeated identical reports
// from one asker are not re-emitted, while a transition to empty is.
func TestObserveMissing_EmitsOnlyOnChange(t *testing.T) {
	users := New("users")
	got := observe(users)

	users.ReportMissing("posts", []string{"u1"})
	users.ReportMissing("posts", []string{"u1"})
	users.ReportMissing("posts", nil)
	users.ReportMissing("posts", []string{})

	assert.Equal(t, [][]string{{"u1"}, {}}, *got)
}

func TestObserveMissing_FirstEmptyReportEmits(t *testing.T) {
	users := New("users")
	got := observe(users)

	users.ReportMissing("posts", nil)
	assert.Equal(t, [][]string{{}}, *got)
}

func TestObserveMissing_ReplaysLatest(t *testing.T) {
	users := New("users")
	users.ReportMissing("posts", []string{"u9"})

	got := observe(users)
	assert.Equal(t, [][]string{{"u9"}}, *got)
}

func TestMissing_NoReports(t *testing.T) {
	assert.Empty(t, New("users").Missing())
}
