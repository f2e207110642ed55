// Package testutil holds helpers that make scenario runs deterministic.
package testutil

// DefaultDispatcherID is returned by a FixedIDGenerator built without an id.
const DefaultDispatcherID = "test-dispatcher-default"

// FixedIDGenerator hands out the same dispatcher id on every call.
//
// Scenario runs stamp their snapshots with the dispatcher id, so two runs of
// one scenario only produce byte-identical golden output when the id is
// fixed. It satisfies dispatch.IDGenerator.
//
// Stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id. An empty id yields
// DefaultDispatcherID.
//
//	d := dispatch.New(dispatch.WithIDGenerator(testutil.NewFixedIDGenerator("profiles-dispatcher")))
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = DefaultDispatcherID
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
