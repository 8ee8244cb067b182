package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sfbtools/internal/cleaner"
	"github.com/roach88/sfbtools/internal/input"
)

// CleanOptions holds flags for the clean command.
type CleanOptions struct {
	*RootOptions
	TrimPeriod bool
}

// CleanResult is the output of the clean command.
type CleanResult struct {
	Input        string `json:"input"`
	Output       string `json:"output"`
	Lines        int    `json:"lines"`
	BlocksOpened int    `json:"blocks_opened"`
	BlocksClosed int    `json:"blocks_closed"`
	SplitsJoined int    `json:"splits_joined"`
}

func (r CleanResult) String() string {
	return fmt.Sprintf("Cleaned %d lines from %s into %s (%d blocks, %d split lines joined)",
		r.Lines, r.Input, r.Output, r.BlocksOpened, r.SplitsJoined)
}

// NewCleanCommand creates the clean command.
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CleanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clean <infile> <outfile>",
		Short: "Repair a raw IRLYNC log",
		Long: `Repair a raw IRLYNC log so the embedded XML blocks can be extracted.

Lines between the Start_Prognosis_datadump and Stop_Prognosis_datadump markers
are kept with the logger framing removed, and continuation lines split by the
httpserv prefix are joined back. Lines outside a block are dropped.

Input files ending in .gz, .zst or .lz4 are decompressed transparently.

Examples:
  sfbtools clean raw.log clean.log
  sfbtools clean raw.log.gz clean.log --trim-period=false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.TrimPeriod, "trim-period", defaultTrimPeriod,
		"remove one trailing period from each line before matching")

	return cmd
}

func runClean(opts *CleanOptions, inPath, outPath string, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	if !cmd.Flags().Changed("trim-period") {
		opts.TrimPeriod = opts.Config.GetBool(keyTrimPeriod)
	}

	in, err := input.Open(inPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output", err)
	}
	defer out.Close()

	c := cleaner.New(cleaner.DefaultRules(), cleaner.Options{TrimPeriod: opts.TrimPeriod}, opts.Logger)

	opts.Logger.Info("cleaning", "input", inPath, "output", outPath, "trim_period", opts.TrimPeriod)
	stats, err := c.Clean(commandContext(cmd), in, out)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to clean log", err)
	}
	if err := out.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	return opts.formatter(cmd).Success(CleanResult{
		Input:        inPath,
		Output:       outPath,
		Lines:        stats.Lines,
		BlocksOpened: stats.BlocksOpened,
		BlocksClosed: stats.BlocksClosed,
		SplitsJoined: stats.SplitsJoined,
	})
}
