package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Set by PersistentPreRunE.
	Config *viper.Viper
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sfbtools CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sfbtools",
		Short: "Skype for Business SDN log tools",
		Long: `Tools for IRLYNC diagnostic logs produced by the Skype for Business
SDN (Session Diagnostic Notification) subsystem.

  clean    repair framing artifacts and split lines in a raw log
  extract  pull LyncDiagnostics records out of a log, optionally by id
  replay   deliver a scenario's records to an SDN receiver or SQL database
  receive  run a mock SDN receiver that records what it is sent
  journal  inspect the delivery journal written by replay --journal`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML config file")

	// Add subcommands
	cmd.AddCommand(NewCleanCommand(opts))
	cmd.AddCommand(NewExtractCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewReceiveCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// setup validates global flags, loads configuration and installs the
// logger. Subcommands run directly in tests call it from their RunE.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.Config != nil && o.Logger != nil {
		return nil
	}
	if !isValidFormat(o.Format) {
		return WrapExitError(ExitCommandError, "invalid flag",
			fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	v, err := loadConfig(o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level, err := logLevel(v, o.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	o.Config = v
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.Logger)
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
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

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
