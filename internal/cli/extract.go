package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sfbtools/internal/extract"
	"github.com/roach88/sfbtools/internal/filter"
	"github.com/roach88/sfbtools/internal/input"
	"github.com/roach88/sfbtools/internal/message"
)

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	*RootOptions
	CallIDs       []string
	ConferenceIDs []string
	Kind          string
	Strict        bool
}

// ExtractResult is the output of the extract command.
type ExtractResult struct {
	Input     string `json:"input"`
	Output    string `json:"output"`
	Kind      string `json:"kind"`
	Extracted int    `json:"extracted"`
	Filtered  int    `json:"filtered"`
	Skipped   int    `json:"skipped"`
}

func (r ExtractResult) String() string {
	return fmt.Sprintf("Extracted %d %s records from %s into %s (%d filtered out, %d malformed skipped)",
		r.Extracted, r.Kind, r.Input, r.Output, r.Filtered, r.Skipped)
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExtractOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "extract <infile> <outfile>",
		Short: "Extract XML records from a cleaned log",
		Long: `Extract every LyncDiagnostics (or SqlQueryMessage) record from a log.

Each record is written to the output preceded by a blank line. With
--call-ids or --conf-ids only records whose CallId or ConferenceId is in the
list are kept (case-insensitive); when both are given a record must match
both. Give several identifiers comma-separated (--call-ids A,B) or by
repeating the flag (--call-ids A --call-ids B).

Malformed records are skipped and counted unless --strict is set, in which
case the first one stops the extraction.

Exit codes:
  0 - Extraction completed
  2 - Command error (unreadable input, malformed record with --strict)

Examples:
  sfbtools extract clean.log records.xml
  sfbtools extract clean.log records.xml --call-ids 2d6a1d62,7bb2f3b0
  sfbtools extract clean.log records.xml --conf-ids abc --conf-ids def
  sfbtools extract clean.log.zst queries.xml --kind SqlQueryMessage --strict`,
		Args: extractArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.CallIDs, "call-ids", nil, "keep records with these CallIds")
	cmd.Flags().StringSliceVar(&opts.ConferenceIDs, "conf-ids", nil, "keep records with these ConferenceIds")
	cmd.Flags().StringVar(&opts.Kind, "kind", message.TagSDN, "record root element (LyncDiagnostics|SqlQueryMessage)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "stop at the first malformed record")

	return cmd
}

// extractArgs requires exactly the two paths. Extra words usually come from
// space-separated identifiers, which pflag leaves as positional arguments.
func extractArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 2 && (cmd.Flags().Changed("call-ids") || cmd.Flags().Changed("conf-ids")) {
		return fmt.Errorf("accepts 2 arg(s), received %d; separate identifiers with commas (--call-ids A,B) or repeat the flag",
			len(args))
	}
	return cobra.ExactArgs(2)(cmd, args)
}

func runExtract(opts *ExtractOptions, inPath, outPath string, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}

	kind, err := message.ParseKind(opts.Kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flag", err)
	}
	criteria := opts.criteria(cmd)

	src, err := input.ReadAll(inPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	mode := extract.ModeStream
	if opts.Strict {
		mode = extract.ModeFailFast
	}
	cur := extract.New(src.Data, kind, mode, extract.WithCloser(src), extract.WithLogger(opts.Logger))
	defer cur.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output", err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	var keep func(message.Message) bool
	if criteria.Active() {
		keep = criteria.Keep
	}

	opts.Logger.Info("extracting", "input", inPath, "kind", kind.RootTag(), "mode", mode.String(),
		"compression", src.Compression.String(), "mapped", src.Mapped)
	counts, err := extract.WriteAll(cur, w, keep)
	if flushErr := w.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	result := ExtractResult{
		Input:     inPath,
		Output:    outPath,
		Kind:      kind.RootTag(),
		Extracted: counts.Extracted,
		Filtered:  counts.Filtered,
		Skipped:   counts.Skipped,
	}
	if err != nil {
		if ferr := opts.formatter(cmd).Error(errorCode(err), err.Error(), result); ferr != nil {
			opts.Logger.Error("write output", "error", ferr)
		}
		return WrapExitError(ExitCommandError, "extraction stopped", err)
	}
	return opts.formatter(cmd).Success(result)
}

// criteria builds the identifier filter. A flag given with an empty value
// still constrains, so it rejects every record.
func (o *ExtractOptions) criteria(cmd *cobra.Command) filter.Criteria {
	var c filter.Criteria
	if cmd.Flags().Changed("call-ids") {
		set := filter.NewSet(o.CallIDs...)
		c.CallIDs = &set
	}
	if cmd.Flags().Changed("conf-ids") {
		set := filter.NewSet(o.ConferenceIDs...)
		c.ConferenceIDs = &set
	}
	return c
}
