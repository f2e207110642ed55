package harness

import (
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/orchestra/internal/ir"
)

// Snapshot captures everything a scenario run produced that must stay
// stable across runs. All fields use canonical JSON serialization for
// deterministic comparison.
type Snapshot struct {
	ScenarioName string                `json:"scenario_name"`
	DispatcherID string                `json:"dispatcher_id"`
	Trace        []TraceEvent          `json:"trace"`
	Views        map[string]ir.IRArray `json:"views"`
	Complete     map[string][]string   `json:"complete"`
	Missing      map[string][]string   `json:"missing"`
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(scenario *Scenario, result *Result) *Snapshot {
	return &Snapshot{
		ScenarioName: scenario.Name,
		DispatcherID: result.DispatcherID,
		Trace:        result.Trace,
		Views:        result.Views,
		Complete:     result.Complete,
		Missing:      result.Missing,
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, which only handles IR types and plain Go shapes.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		changed := event.Changed
		if changed == nil {
			changed = []string{}
		}
		trace[i] = map[string]any{
			"seq":     event.Seq,
			"step":    event.Step,
			"action":  event.Action,
			"store":   event.Store,
			"changed": changed,
		}
	}

	views := make(map[string]any, len(s.Views))
	for id, view := range s.Views {
		views[id] = view
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"dispatcher_id": s.DispatcherID,
		"trace":         trace,
		"views":         views,
		"complete":      stringLists(s.Complete),
		"missing":       stringLists(s.Missing),
	}
}

func stringLists(m map[string][]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			v = []string{}
		}
		out[k] = v
	}
	return out
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// SnapshotJSON renders a result as the canonical JSON stored in golden
// files.
func SnapshotJSON(scenario *Scenario, result *Result) ([]byte, error) {
	return NewSnapshot(scenario, result).MarshalCanonical()
}

// ChangedStores lists every store that emitted at least once during the run,
// sorted.
func (s *Snapshot) ChangedStores() []string {
	seen := make(map[string]bool)
	for _, event := range s.Trace {
		for _, id := range event.Changed {
			seen[id] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario, result)
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
