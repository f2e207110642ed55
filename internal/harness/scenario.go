package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/orchestra/internal/testutil"
)

// Scenario defines a store scenario: a schema, a sequence of actions and
// assertions on the resolved views.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a CUE file or directory declaring the stores.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema"`

	// Externals lists identifiers registered as external reducers. Each
	// holds entities written with the put and delete actions.
	Externals []string `yaml:"externals,omitempty"`

	// DispatcherID is a fixed dispatcher identity for deterministic output.
	// Defaults to "test-dispatcher-default".
	DispatcherID string `yaml:"dispatcher_id,omitempty"`

	// Steps are dispatched in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final views, missing ids and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one dispatched action.
type Step struct {
	// Action is one of insert, insert_batch, remove, filter, update, put
	// and delete.
	Action string `yaml:"action"`

	// Store is the target store, or external for put and delete.
	Store string `yaml:"store"`

	// Entity is the payload of insert and put, or the entity removed by
	// remove when ID is empty.
	Entity map[string]any `yaml:"entity,omitempty"`

	// Entities is the payload of insert_batch.
	Entities []map[string]any `yaml:"entities,omitempty"`

	// Group tags inserted entities (insert_batch only).
	Group string `yaml:"group,omitempty"`

	// ID targets remove and delete.
	ID string `yaml:"id,omitempty"`

	// Where is an expr predicate over `entity`. filter keeps matching
	// entities; update only rewrites matching entities.
	Where string `yaml:"where,omitempty"`

	// Set maps field names to expr expressions over `entity` (update only).
	Set map[string]string `yaml:"set,omitempty"`
}

// Step action names.
const (
	StepInsert      = "insert"
	StepInsertBatch = "insert_batch"
	StepRemove      = "remove"
	StepFilter      = "filter"
	StepUpdate      = "update"
	StepPut         = "put"
	StepDelete      = "delete"
)

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of view, missing and changed.
	Type string `yaml:"type"`

	// Store names the view (view) or the store asked for ids (missing).
	Store string `yaml:"store,omitempty"`

	// Keys is the exact id order of the view (view).
	Keys []string `yaml:"keys,omitempty"`

	// Count is the expected number of entities (view).
	Count *int `yaml:"count,omitempty"`

	// Entities maps ids to expected fields, matched as a subset (view).
	Entities map[string]map[string]any `yaml:"entities,omitempty"`

	// Complete lists the ids holding every completion key (view).
	Complete []string `yaml:"complete,omitempty"`

	// IDs is the exact sorted missing-id set (missing).
	IDs []string `yaml:"ids,omitempty"`

	// Step is the step index whose changed views are checked (changed).
	Step int `yaml:"step,omitempty"`

	// Views is the exact list of views that emitted for Step (changed).
	Views []string `yaml:"views,omitempty"`
}

// Assertion type constants.
const (
	AssertView    = "view"
	AssertMissing = "missing"
	AssertChanged = "changed"
)

// DefaultDispatcherID is used when a scenario sets no dispatcher_id.
const DefaultDispatcherID = testutil.DefaultDispatcherID

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if _, err := os.Stat(scenario.Schema); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: schema not found: %s", scenario.Schema)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field validation and
// checks required fields. The schema path is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.DispatcherID == "" {
		scenario.DispatcherID = DefaultDispatcherID
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	if s.Store == "" {
		return fmt.Errorf("steps[%d]: store is required", index)
	}

	switch s.Action {
	case StepInsert, StepPut:
		if s.Entity == nil {
			return fmt.Errorf("steps[%d]: entity is required for %s", index, s.Action)
		}
	case StepInsertBatch:
		if len(s.Entities) == 0 {
			return fmt.Errorf("steps[%d]: entities list is required for insert_batch", index)
		}
	case StepRemove:
		if s.ID == "" && s.Entity == nil {
			return fmt.Errorf("steps[%d]: id or entity is required for remove", index)
		}
	case StepDelete:
		if s.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for delete", index)
		}
	case StepFilter:
		if s.Where == "" {
			return fmt.Errorf("steps[%d]: where is required for filter", index)
		}
	case StepUpdate:
		if len(s.Set) == 0 {
			return fmt.Errorf("steps[%d]: set is required for update", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, s.Action)
	}

	if s.Group != "" && s.Action != StepInsertBatch {
		return fmt.Errorf("steps[%d]: group is only valid for insert_batch", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	switch a.Type {
	case AssertView:
		if a.Store == "" {
			return fmt.Errorf("assertions[%d]: store is required for view", index)
		}
		if a.Keys == nil && a.Count == nil && a.Entities == nil && a.Complete == nil {
			return fmt.Errorf("assertions[%d]: view needs keys, count, entities or complete", index)
		}
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertMissing:
		if a.Store == "" {
			return fmt.Errorf("assertions[%d]: store is required for missing", index)
		}
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for missing (use [] for none)", index)
		}
	case AssertChanged:
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
		if a.Views == nil {
			return fmt.Errorf("assertions[%d]: views is required for changed (use [] for none)", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
