package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/orchestra/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %v\n", event.Step, event.Action, event.Store, event.Changed)
		}
	}

	return buf.String()
}

// assertView checks a final view: exact key order, count, entity fields
// (subset match) and the complete ids.
func assertView(result *Result, assertion Assertion) error {
	view, ok := result.Views[assertion.Store]
	if !ok {
		return &AssertionError{
			Type:     AssertView,
			Expected: fmt.Sprintf("view %q", assertion.Store),
			Actual:   "no such store",
		}
	}

	keys := viewKeys(view)
	if assertion.Keys != nil && !slices.Equal(keys, assertion.Keys) {
		return &AssertionError{
			Type:     AssertView,
			Expected: fmt.Sprintf("%s keys %v", assertion.Store, assertion.Keys),
			Actual:   fmt.Sprintf("%v", keys),
			Trace:    result.Trace,
		}
	}

	if assertion.Count != nil && len(view) != *assertion.Count {
		return &AssertionError{
			Type:     AssertView,
			Expected: fmt.Sprintf("%s count %d", assertion.Store, *assertion.Count),
			Actual:   fmt.Sprintf("%d", len(view)),
			Trace:    result.Trace,
		}
	}

	ids := make([]string, 0, len(assertion.Entities))
	for id := range assertion.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := matchEntity(view, id, assertion.Entities[id]); err != nil {
			return &AssertionError{
				Type:     AssertView,
				Expected: fmt.Sprintf("%s entity %s with %v", assertion.Store, id, assertion.Entities[id]),
				Actual:   err.Error(),
				Trace:    result.Trace,
			}
		}
	}

	if assertion.Complete != nil {
		got := result.Complete[assertion.Store]
		if !slices.Equal(got, assertion.Complete) {
			return &AssertionError{
				Type:     AssertView,
				Expected: fmt.Sprintf("%s complete %v", assertion.Store, assertion.Complete),
				Actual:   fmt.Sprintf("%v", got),
				Trace:    result.Trace,
			}
		}
	}

	return nil
}

// assertMissing checks the final missing ids reported to a store.
func assertMissing(result *Result, assertion Assertion) error {
	got, ok := result.Missing[assertion.Store]
	if !ok {
		return &AssertionError{
			Type:     AssertMissing,
			Expected: fmt.Sprintf("store %q", assertion.Store),
			Actual:   "no such store",
		}
	}
	if !slices.Equal(got, assertion.IDs) {
		return &AssertionError{
			Type:     AssertMissing,
			Expected: fmt.Sprintf("%s missing %v", assertion.Store, assertion.IDs),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertChanged checks which views emitted for one step.
func assertChanged(result *Result, assertion Assertion) error {
	if assertion.Step >= len(result.Trace) {
		return &AssertionError{
			Type:     AssertChanged,
			Expected: fmt.Sprintf("step %d in trace", assertion.Step),
			Actual:   fmt.Sprintf("%d steps ran", len(result.Trace)),
		}
	}
	got := result.Trace[assertion.Step].Changed
	if !slices.Equal(got, assertion.Views) {
		return &AssertionError{
			Type:     AssertChanged,
			Expected: fmt.Sprintf("step %d changed %v", assertion.Step, assertion.Views),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// matchEntity checks that the entity id in view holds every expected field.
// Extra fields are ignored; nested values compare exactly.
func matchEntity(view ir.IRArray, id string, expected map[string]any) error {
	entity, ok := findEntity(view, id)
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}

	fields := make([]string, 0, len(expected))
	for field := range expected {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		want, err := ir.FromGo(expected[field])
		if err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}
		got, ok := entity[field]
		if !ok {
			return fmt.Errorf("field %s missing", field)
		}
		if !ir.Equal(got, want) {
			return fmt.Errorf("field %s is %v", field, ir.ToGo(got))
		}
	}
	return nil
}

func findEntity(view ir.IRArray, id string) (ir.IRObject, bool) {
	for _, v := range view {
		e, ok := v.(ir.IRObject)
		if !ok {
			continue
		}
		if eid, _ := e.ID(); eid == id {
			return e, true
		}
	}
	return nil, false
}

func viewKeys(view ir.IRArray) []string {
	keys := make([]string, 0, len(view))
	for _, v := range view {
		if e, ok := v.(ir.IRObject); ok {
			id, _ := e.ID()
			keys = append(keys, id)
		}
	}
	return keys
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertView:
			err = assertView(result, assertion)
		case AssertMissing:
			err = assertMissing(result, assertion)
		case AssertChanged:
			err = assertChanged(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
