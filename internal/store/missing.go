package store

import (
	"slices"
	"sync"

	"github.com/roach88/orchestra/internal/stream"
)

// missingTracker keeps each asker's latest missing-id set and publishes the
// union whenever one of them changes.
type missingTracker struct {
	mu      sync.Mutex
	byAsker map[string][]string // sorted, distinct
	subject *stream.Subject[[]string]
}

func newMissingTracker() *missingTracker {
	return &missingTracker{
		byAsker: make(map[string][]string),
		subject: stream.NewSubject[[]string](),
	}
}

// report stores ids for asker. The first report of an asker always counts as
// a change so observers learn about empty sets too.
func (m *missingTracker) report(asker string, ids []string) ([]string, bool) {
	set := slices.Clone(ids)
	slices.Sort(set)
	set = slices.Compact(set)

	m.mu.Lock()
	prev, known := m.byAsker[asker]
	if known && slices.Equal(prev, set) {
		m.mu.Unlock()
		return nil, false
	}
	m.byAsker[asker] = set
	union := m.unionLocked()
	m.mu.Unlock()

	m.subject.Next(union)
	return union, true
}

func (m *missingTracker) unionLocked() []string {
	union := []string{}
	for _, ids := range m.byAsker {
		union = append(union, ids...)
	}
	slices.Sort(union)
	return slices.Compact(union)
}
