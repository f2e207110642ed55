package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/orchestra/internal/orchestra"
	"github.com/roach88/orchestra/internal/schema"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Externals []string
}

// GraphEdge is one dependency edge.
type GraphEdge struct {
	Target   string `json:"target"`
	Key      string `json:"key,omitempty"` // empty: whole collection
	Attach   string `json:"attach"`
	External bool   `json:"external,omitempty"`
}

// GraphNode is one store and its outgoing edges, in declaration order.
type GraphNode struct {
	Store        string      `json:"store"`
	Expects      []string    `json:"expects,omitempty"`
	Dependencies []GraphEdge `json:"dependencies"`
}

// GraphResult describes a store graph.
type GraphResult struct {
	Stores    []GraphNode             `json:"stores"`
	Externals []string                `json:"externals,omitempty"`
	Order     []string                `json:"order,omitempty"` // resolution order; empty when unresolvable
	Cycles    []orchestra.CycleReport `json:"cycles,omitempty"`
	Errors    []ValidationError       `json:"errors,omitempty"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph [schema]",
		Short: "Show the store dependency graph",
		Long: `Print every store with its dependency edges, the order in which the
stores resolve, and every dependency cycle.

Exit codes:
  0 - Graph resolves
  1 - Cycles or unresolved dependencies
  2 - Command error (schema not found, etc.)

Examples:
  orchestra graph ./stores
  orchestra graph ./stores --external settings --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := schemaArg(rootOpts, args)
			if err != nil {
				return err
			}
			return runGraph(opts, path, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Externals, "external", nil, "identifiers provided by external reducers")

	return cmd
}

func runGraph(opts *GraphOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := loadSchema(path, opts.Externals, opts.Logger())
	if err != nil {
		var le *schema.LoadError
		if errors.As(err, &le) {
			return outputValidateError(formatter, le.Code, le.Error())
		}
		return outputValidateError(formatter, schema.ErrCodeGeneric, err.Error())
	}
	if len(loaded.Issues) > 0 {
		return outputValidationErrors(formatter, len(loaded.Result.Stores), loaded.Issues)
	}

	result := describeGraph(loaded.Result.Stores, opts.Externals)
	result.Cycles = loaded.Orchestra.Analyze()
	if len(result.Cycles) == 0 {
		order, err := loaded.Orchestra.Order()
		if err == nil {
			result.Order = order
		} else {
			result.Errors = graphIssues(loaded.Orchestra)
		}
	}

	var failure error
	if len(result.Cycles) > 0 || len(result.Errors) > 0 {
		failure = NewExitError(ExitFailure, "store graph does not resolve")
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: graphErrorCode(result), Message: failure.Error()}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
		return failure
	}

	writeGraphText(formatter, result)
	return failure
}

// describeGraph lists stores and edges from the compiled specs.
func describeGraph(specs []schema.StoreSpec, externals []string) GraphResult {
	isExternal := make(map[string]bool, len(externals))
	for _, ext := range externals {
		isExternal[ext] = true
	}

	result := GraphResult{Stores: make([]GraphNode, 0, len(specs)), Externals: externals}
	for _, spec := range specs {
		node := GraphNode{
			Store:        spec.Identifier,
			Expects:      spec.Expects,
			Dependencies: make([]GraphEdge, 0, len(spec.Dependencies)),
		}
		for _, dep := range spec.Dependencies {
			node.Dependencies = append(node.Dependencies, GraphEdge{
				Target:   dep.Target,
				Key:      dep.Key,
				Attach:   dep.Attach,
				External: isExternal[dep.Target],
			})
		}
		result.Stores = append(result.Stores, node)
	}
	return result
}

func graphErrorCode(result GraphResult) string {
	if len(result.Cycles) > 0 {
		return ErrCodeCircular
	}
	return ErrCodeUnresolved
}

func writeGraphText(formatter *OutputFormatter, result GraphResult) {
	w := formatter.Writer

	fmt.Fprintf(w, "Stores (%d):\n", len(result.Stores))
	for _, node := range result.Stores {
		line := "  " + node.Store
		if len(node.Expects) > 0 {
			line += fmt.Sprintf("  expects [%s]", strings.Join(node.Expects, ", "))
		}
		fmt.Fprintln(w, line)
		for _, edge := range node.Dependencies {
			key := edge.Key
			if key == "" {
				key = "*"
			}
			suffix := ""
			if edge.External {
				suffix = "  (external)"
			}
			fmt.Fprintf(w, "    → %s  %s as %s%s\n", edge.Target, key, edge.Attach, suffix)
		}
	}

	if len(result.Order) > 0 {
		fmt.Fprintf(w, "\nResolution order: %s\n", strings.Join(result.Order, ", "))
	}
	if len(result.Cycles) > 0 {
		fmt.Fprintln(w)
		for _, c := range result.Cycles {
			fmt.Fprintf(w, "✗ %s\n", c.Message)
		}
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "\n✗ %s: %s\n", e.Code, e.Message)
	}
}
