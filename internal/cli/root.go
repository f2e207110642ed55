package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	SchemaDir  string // from config; default schema argument
	GoldenDir  string // from config; golden file directory for test

	logWriter io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the orchestra CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "orchestra",
		Short: "Orchestra - reactive denormalizing entity stores",
		Long: `Declare entity stores and their dependencies in CUE, then validate the
store graph, inspect its resolution order and run action scenarios against
the resolved views.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.applyConfig(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", defaultFormat, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: ./orchestra.yaml)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyConfig merges orchestra.yaml into opts. Flags set on the command line
// win over the file.
func (opts *RootOptions) applyConfig(cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	flags := cmd.Flags()
	if !flags.Changed("format") {
		opts.Format = cfg.Format
	}
	if !flags.Changed("verbose") {
		opts.Verbose = cfg.Verbose
	}
	opts.SchemaDir = cfg.SchemaDir
	opts.GoldenDir = cfg.GoldenDir
	opts.logWriter = cmd.ErrOrStderr()

	if !isValidFormat(opts.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
	}
	return nil
}

// Logger returns the logger commands pass to stores, orchestras and
// dispatchers: Debug on stderr when verbose, warnings only otherwise.
func (opts *RootOptions) Logger() *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	w := opts.logWriter
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
