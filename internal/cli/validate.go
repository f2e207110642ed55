package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/orchestra/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Externals []string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Stores int               `json:"stores"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [schema]",
		Short: "Validate a store schema",
		Long: `Validate CUE store declarations and the dependency graph they form.

Reports malformed declarations, misconfigured stores, every dependency cycle
and dependencies that name neither a store nor an external reducer. The
schema is a .cue file or a directory; it defaults to schema_dir from
orchestra.yaml.

Examples:
  orchestra validate ./stores
  orchestra validate ./stores/blog.cue --external settings`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := schemaArg(rootOpts, args)
			if err != nil {
				return err
			}
			return runValidate(opts, path, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Externals, "external", nil, "identifiers provided by external reducers")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := loadSchema(path, opts.Externals, opts.Logger())
	if err != nil {
		var le *schema.LoadError
		if errors.As(err, &le) {
			return outputValidateError(formatter, le.Code, le.Error())
		}
		return outputValidateError(formatter, schema.ErrCodeGeneric, err.Error())
	}

	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.Result.FileCount, path)
	for _, spec := range loaded.Result.Stores {
		formatter.VerboseLog("Store %s: %d dependency edge(s)", spec.Identifier, len(spec.Dependencies))
	}

	issues := loaded.Issues
	if loaded.Orchestra != nil && len(issues) == 0 {
		issues = graphIssues(loaded.Orchestra)
	}
	if len(issues) > 0 {
		return outputValidationErrors(formatter, len(loaded.Result.Stores), issues)
	}

	return outputValidateSuccess(formatter, len(loaded.Result.Stores))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, stores int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Stores: stores})
	}

	fmt.Fprintf(formatter.Writer, "✓ Schema valid: %d store(s)\n", stores)
	return nil
}

// outputValidateError outputs an error that prevented validation.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, message)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, stores int, errs []ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		if err := formatter.Response(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Stores: stores, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return failure
}
