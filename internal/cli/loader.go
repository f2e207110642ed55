package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/dispatch"
	"github.com/roach88/orchestra/internal/orchestra"
	"github.com/roach88/orchestra/internal/schema"
	"github.com/roach88/orchestra/internal/store"
)

// Graph error codes. Load codes (E0xx, E1xx) come from the schema package.
const (
	ErrCodeCircular    = "E201" // Stores depend on each other
	ErrCodeUnresolved  = "E202" // Dependency names no store or external
	ErrCodeStoreConfig = "E203" // Store configuration rejected
)

// ValidationError is one problem found in a schema.
type ValidationError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Store   string   `json:"store,omitempty"`
	Path    []string `json:"path,omitempty"`
	Line    int      `json:"line,omitempty"`
}

// loadedSchema is a schema compiled into an Orchestra.
type loadedSchema struct {
	Result    *schema.LoadResult
	Orchestra *orchestra.Orchestra // nil when stores failed to compile or build
	Issues    []ValidationError
}

// loadSchema compiles every store of path and builds the Orchestra with the
// named externals registered as pass-through reducers. A non-nil error means
// the schema could not be read at all.
func loadSchema(path string, externals []string, logger *slog.Logger) (*loadedSchema, error) {
	result, loadErrs := schema.Load(path, schema.LoadModeCollectAll)
	if result == nil {
		if len(loadErrs) == 0 {
			return nil, &schema.LoadError{Code: schema.ErrCodeGeneric, Message: fmt.Sprintf("failed to load %s", path)}
		}
		return nil, loadErrs[0]
	}

	ls := &loadedSchema{Result: result}
	for _, err := range loadErrs {
		ls.Issues = append(ls.Issues, loadIssue(err))
	}
	if len(ls.Issues) > 0 {
		return ls, nil
	}

	stores, err := schema.BuildAll(result.Stores, logger)
	if err != nil {
		ls.Issues = append(ls.Issues, storeIssue(err))
		return ls, nil
	}
	o, err := orchestra.NewWithOptions(stores, orchestra.WithLogger(logger))
	if err != nil {
		ls.Issues = append(ls.Issues, storeIssue(err))
		return ls, nil
	}
	for _, ext := range externals {
		if err := o.AddReducer(ext, passThrough); err != nil {
			ls.Issues = append(ls.Issues, storeIssue(err))
		}
	}
	ls.Orchestra = o
	return ls, nil
}

// graphIssues reports every cycle, or the first unresolved dependency of an
// acyclic graph.
func graphIssues(o *orchestra.Orchestra) []ValidationError {
	var issues []ValidationError
	for _, report := range o.Analyze() {
		issues = append(issues, ValidationError{
			Code:    ErrCodeCircular,
			Message: report.Message,
			Store:   report.Stores[0],
			Path:    report.Path,
		})
	}
	if len(issues) > 0 {
		return issues
	}

	if err := o.Validate(); err != nil {
		var oe *orchestra.Error
		if errors.As(err, &oe) {
			issue := ValidationError{
				Code:    ErrCodeUnresolved,
				Message: fmt.Sprintf("failed to resolve dependency for identifier %q", oe.Identifier),
				Path:    oe.Path,
			}
			if n := len(oe.Path); n >= 2 {
				issue.Store = oe.Path[n-2]
			}
			return []ValidationError{issue}
		}
		return []ValidationError{{Code: ErrCodeUnresolved, Message: err.Error()}}
	}
	return nil
}

func loadIssue(err error) ValidationError {
	var le *schema.LoadError
	if errors.As(err, &le) {
		issue := ValidationError{Code: le.Code, Message: le.Message}
		if le.Pos.IsValid() {
			issue.Line = le.Pos.Line()
		}
		return issue
	}
	return ValidationError{Code: schema.ErrCodeGeneric, Message: err.Error()}
}

func storeIssue(err error) ValidationError {
	var se *store.Error
	if errors.As(err, &se) {
		return ValidationError{Code: ErrCodeStoreConfig, Message: err.Error(), Store: se.Store}
	}
	var oe *orchestra.Error
	if errors.As(err, &oe) {
		return ValidationError{Code: ErrCodeStoreConfig, Message: oe.Message, Store: oe.Identifier}
	}
	return ValidationError{Code: ErrCodeStoreConfig, Message: err.Error()}
}

// passThrough stands in for an external reducer during static checks.
func passThrough(state *collection.Collection, _ dispatch.Action) *collection.Collection {
	return state
}

// schemaArg picks the schema path from the arguments or the config file.
func schemaArg(opts *RootOptions, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if opts.SchemaDir != "" {
		return opts.SchemaDir, nil
	}
	return "", NewExitError(ExitCommandError, "no schema given: pass a path or set schema_dir in orchestra.yaml")
}
