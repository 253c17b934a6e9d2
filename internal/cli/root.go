package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // SQLite path used by run --record, trace, and replay
}

// EnvConfig carries environment defaults for the global flags. A flag set
// explicitly on the command line always wins over the environment.
type EnvConfig struct {
	Database string `env:"STAMPEDE_DB"`
	Format   string `env:"STAMPEDE_FORMAT"`
	Verbose  bool   `env:"STAMPEDE_VERBOSE"`
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the stampede CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stampede",
		Short: "Stampede - resumable dispatch over record collections",
		Long: "Runs registered kinds frame by frame with bucketed dispatch, records\n" +
			"canonical traces to SQLite, and verifies recorded runs replay digest\n" +
			"for digest.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := EnvConfig{}
			if err := env.Parse(&cfg); err != nil {
				return fmt.Errorf("failed to parse environment: %w", err)
			}
			applyEnvDefaults(cmd, opts, cfg)

			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite run database")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewKindsCommand(opts))

	return cmd
}

// applyEnvDefaults fills global options from the environment for any flag
// the user did not set explicitly.
func applyEnvDefaults(cmd *cobra.Command, opts *RootOptions, cfg EnvConfig) {
	flags := cmd.Root().PersistentFlags()
	if cfg.Database != "" && !flags.Changed("db") {
		opts.Database = cfg.Database
	}
	if cfg.Format != "" && !flags.Changed("format") {
		opts.Format = cfg.Format
	}
	if cfg.Verbose && !flags.Changed("verbose") {
		opts.Verbose = true
	}
}

// requireDatabase checks that a database path is configured, either via the
// --db flag or the STAMPEDE_DB environment variable.
func requireDatabase(opts *RootOptions) error {
	if opts.Database == "" {
		return NewExitError(ExitCommandError, "database path required: set --db or STAMPEDE_DB")
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
