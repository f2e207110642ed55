package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/orchestra/internal/harness"
	"github.com/roach88/orchestra/internal/ir"
)

// RunResult is the outcome of one scenario run.
type RunResult struct {
	Name    string                `json:"name"`
	Pass    bool                  `json:"pass"`
	Errors  []string              `json:"errors,omitempty"`
	Trace   []harness.TraceEvent  `json:"trace"`
	Views   map[string]ir.IRArray `json:"views"`
	Missing map[string][]string   `json:"missing"`
	Digests map[string]string     `json:"digests"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print the resolved views",
		Long: `Load a scenario file, dispatch its steps against the stores of its
schema and print which views changed per step and the final views.

Assertions are evaluated; a failing assertion exits with code 1.

Examples:
  orchestra run ./scenarios/blog.yaml
  orchestra run ./scenarios/blog.yaml --format json --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runScenarioFile(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger()

	logger.Info("loading scenario", "path", path)
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := harness.Run(scenario, harness.WithLogger(logger))
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}
	logger.Info("scenario finished", "name", scenario.Name, "steps", len(result.Trace), "pass", result.Pass)

	out := RunResult{
		Name:    scenario.Name,
		Pass:    result.Pass,
		Errors:  result.Errors,
		Trace:   result.Trace,
		Views:   result.Views,
		Missing: result.Missing,
		Digests: result.Digests,
	}

	var failure error
	if !result.Pass {
		failure = NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: out}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTestFailed, Message: failure.Error()}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
		return failure
	}

	if err := writeRunText(formatter, out); err != nil {
		return err
	}
	return failure
}

func writeRunText(formatter *OutputFormatter, out RunResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Scenario: %s\n\n", out.Name)
	for _, event := range out.Trace {
		changed := "none"
		if len(event.Changed) > 0 {
			changed = strings.Join(event.Changed, ", ")
		}
		fmt.Fprintf(w, "  [%d] %s %s → %s\n", event.Seq, event.Action, event.Store, changed)
	}

	ids := make([]string, 0, len(out.Views))
	for id := range out.Views {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fmt.Fprintln(w)
	for _, id := range ids {
		data, err := json.Marshal(out.Views[id])
		if err != nil {
			return fmt.Errorf("render view %s: %w", id, err)
		}
		fmt.Fprintf(w, "%s (%d): %s\n", id, len(out.Views[id]), data)
		fmt.Fprintf(w, "  digest: %.12s\n", out.Digests[id])
		if missing := out.Missing[id]; len(missing) > 0 {
			fmt.Fprintf(w, "  missing: %s\n", strings.Join(missing, ", "))
		}
	}

	fmt.Fprintln(w)
	if out.Pass {
		fmt.Fprintln(w, "✓ Scenario passed")
		return nil
	}
	fmt.Fprintln(w, "✗ Scenario failed")
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}
