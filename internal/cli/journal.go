package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sfbtools/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// JournalRun is one run in journal output.
type JournalRun struct {
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`
	State      string `json:"state"`
	Total      int    `json:"total"`
	Sent       int    `json:"sent"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JournalDelivery is one delivery in journal output.
type JournalDelivery struct {
	Seq          int    `json:"seq"`
	Kind         string `json:"kind"`
	Timestamp    string `json:"timestamp"`
	DelaySeconds int    `json:"delay_seconds"`
	Status       string `json:"status"`
	Digest       string `json:"digest"`
	Error        string `json:"error,omitempty"`
}

// JournalResult is the output of the journal command. Deliveries is only
// set when a single run was requested.
type JournalResult struct {
	Runs       []JournalRun      `json:"runs"`
	Deliveries []JournalDelivery `json:"deliveries,omitempty"`
}

func (r JournalResult) String() string {
	if len(r.Runs) == 0 {
		return "No runs found in journal."
	}

	var b strings.Builder
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "%s  %-8s  %d/%d  %s  %s\n", run.ID, run.State, run.Sent, run.Total, run.StartedAt, run.Scenario)
		if run.Error != "" {
			fmt.Fprintf(&b, "    error: %s\n", run.Error)
		}
	}
	for _, d := range r.Deliveries {
		fmt.Fprintf(&b, "  #%d %s %s wait %ds %s %s\n", d.Seq, d.Kind, d.Timestamp, d.DelaySeconds, d.Status, shortDigest(d.Digest))
		if d.Error != "" {
			fmt.Fprintf(&b, "    error: %s\n", d.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show replay runs recorded in a delivery journal",
		Long: `List the replay runs recorded by replay --journal, oldest first.

With --run, show that run and each of its delivery attempts in order,
including the SHA-256 digest of every payload sent. An aborted run lists
the deliveries that completed before the failure.

Examples:
  sfbtools journal --db runs.db
  sfbtools journal --db runs.db --run 01928c3e-5f6a-7b2c-9d1e-4f5a6b7c8d9e --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the deliveries of this run")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	var result JournalResult
	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		result.Runs = make([]JournalRun, 0, len(runs))
		for _, run := range runs {
			result.Runs = append(result.Runs, journalRun(run))
		}
		return opts.formatter(cmd).Success(result)
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	deliveries, err := st.ReadDeliveries(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read deliveries", err)
	}

	result.Runs = []JournalRun{journalRun(run)}
	result.Deliveries = make([]JournalDelivery, 0, len(deliveries))
	for _, d := range deliveries {
		result.Deliveries = append(result.Deliveries, JournalDelivery{
			Seq:          d.Seq,
			Kind:         d.Kind,
			Timestamp:    d.MessageTime,
			DelaySeconds: d.DelaySeconds,
			Status:       d.Status,
			Digest:       d.PayloadDigest,
			Error:        d.Error,
		})
	}
	return opts.formatter(cmd).Success(result)
}

func journalRun(run store.Run) JournalRun {
	jr := JournalRun{
		ID:        run.ID,
		Scenario:  run.Scenario,
		State:     run.State,
		Total:     run.Total,
		Sent:      run.Sent,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Error:     run.Error,
	}
	if run.FinishedAt != nil {
		jr.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return jr
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
