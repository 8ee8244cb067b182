package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sfbtools/internal/clock"
	"github.com/roach88/sfbtools/internal/message"
	"github.com/roach88/sfbtools/internal/replay"
	"github.com/roach88/sfbtools/internal/store"
	"github.com/roach88/sfbtools/internal/timestamp"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	SDNConfig  string
	ODBCConfig string
	Journal    string
	DryRun     bool

	// Clock allows overriding the wall clock (for testing).
	// If nil, defaults to clock.Real().
	Clock clock.Clock
}

// ScheduleEntry is one planned delivery.
type ScheduleEntry struct {
	Seq          int    `json:"seq"`
	Kind         string `json:"kind"`
	Timestamp    string `json:"timestamp"`
	DelaySeconds int    `json:"delay_seconds"`
}

// ReplayResult is the output of the replay command.
type ReplayResult struct {
	Scenario string          `json:"scenario"`
	DryRun   bool            `json:"dry_run"`
	RunID    string          `json:"run_id,omitempty"`
	State    string          `json:"state"`
	Total    int             `json:"total"`
	Sent     int             `json:"sent"`
	Senders  []string        `json:"senders,omitempty"`
	Schedule []ScheduleEntry `json:"schedule,omitempty"`
}

func (r ReplayResult) String() string {
	var b strings.Builder
	if r.DryRun {
		fmt.Fprintf(&b, "Schedule for %s (%d messages):\n", r.Scenario, r.Total)
		for _, e := range r.Schedule {
			fmt.Fprintf(&b, "  #%d %s %s wait %ds\n", e.Seq, e.Kind, e.Timestamp, e.DelaySeconds)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "Replay of %s %s: sent %d of %d", r.Scenario, r.State, r.Sent, r.Total)
	if r.RunID != "" {
		fmt.Fprintf(&b, " (journal run %s)", r.RunID)
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario>",
		Short: "Deliver a scenario's records with their recorded timing",
		Long: `Replay the LyncDiagnostics and SqlQueryMessage records of a scenario file.

LyncDiagnostics records are POSTed to the SDN receiver, SqlQueryMessage
queries are executed against the SQL database. Each message waits the delay
computed from the scenario's ReplayConfiguration (MaxDelay, RealTime,
CurrentTime) before it is sent. Sender settings are YAML flow mappings and
can also come from the sdn and odbc keys of the config file.

Exit codes:
  0 - Every message was delivered
  1 - Replay aborted (delivery failed or interrupted)
  2 - Command error (invalid scenario or sender configuration)

Examples:
  sfbtools replay calls.xml --sdn-config "{receiver: 'http://localhost:8080/', version: '2.2'}"
  sfbtools replay calls.xml --odbc-config "{driver: sqlite3, database: ./cdr.db}" --journal runs.db
  sfbtools replay calls.xml --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SDNConfig, "sdn-config", "", "SDN sender settings (YAML mapping)")
	cmd.Flags().StringVar(&opts.ODBCConfig, "odbc-config", "", "SQL sender settings (YAML mapping)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the schedule without sending")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	logger := opts.Logger

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	scenario, err := replay.LoadScenarioFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	if err := scenario.Prepare(clk.Now()); err != nil {
		return WrapExitError(ExitCommandError, "failed to prepare scenario", err)
	}
	logger.Info("scenario loaded", "path", path, "messages", len(scenario.Messages),
		"real_time", scenario.Config.RealTime, "rebase_to_now", scenario.Config.RebaseToNow)

	schedOpts := []replay.Option{replay.WithClock(clk), replay.WithLogger(logger)}
	result := ReplayResult{Scenario: path, DryRun: opts.DryRun, Total: len(scenario.Messages)}

	if opts.DryRun {
		steps, err := replay.NewScheduler(scenario.Config, schedOpts...).Plan(scenario.Messages)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to plan replay", err)
		}
		result.State = replay.NotStarted.String()
		result.Schedule = scheduleOf(steps)
		return opts.formatter(cmd).Success(result)
	}

	senders, err := opts.buildSenders()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid sender configuration", err)
	}
	for _, kind := range scenario.Kinds() {
		if snd, ok := senders[kind]; ok {
			result.Senders = append(result.Senders, snd.String())
			logger.Info("sender", "kind", kind.String(), "description", snd.String())
		}
	}
	schedOpts = append(schedOpts, replay.SenderOptions(senders)...)

	journalPath := opts.Journal
	if journalPath == "" {
		journalPath = opts.Config.GetString(keyJournal)
	}
	var journal *store.Store
	if journalPath != "" {
		journal, err = store.Open(journalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := journal.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		result.RunID, err = journal.BeginRun(commandContext(cmd), store.RunInfo{
			Scenario: path,
			RealTime: scenario.Config.RealTime,
			MaxDelay: scenario.Config.MaxDelay,
			Total:    len(scenario.Messages),
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start journal run", err)
		}
		schedOpts = append(schedOpts, replay.WithRecorder(journal.Recorder(result.RunID)))
		logger.Info("journal run started", "run_id", result.RunID, "journal", journalPath)
	}

	ctx, stop := signalContext(commandContext(cmd))
	defer stop()

	res, runErr := replay.NewScheduler(scenario.Config, schedOpts...).Run(ctx, scenario.Messages)
	result.State = res.State.String()
	result.Sent = res.Sent

	if journal != nil {
		if err := journal.FinishRun(context.WithoutCancel(ctx), result.RunID, res, runErr); err != nil {
			logger.Error("failed to finish journal run", "run_id", result.RunID, "error", err)
		}
	}

	if runErr != nil {
		code := replayExitCode(runErr)
		if code == ExitFailure {
			if ferr := opts.formatter(cmd).Error(errorCode(runErr), runErr.Error(), result); ferr != nil {
				logger.Error("write output", "error", ferr)
			}
			return WrapExitError(code, "replay aborted", runErr)
		}
		return WrapExitError(code, "replay not started", runErr)
	}
	return opts.formatter(cmd).Success(result)
}

func (o *ReplayOptions) buildSenders() (map[message.Kind]replay.Sender, error) {
	sdn, err := senderMap(o.Config, keySDN, o.SDNConfig)
	if err != nil {
		return nil, err
	}
	odbc, err := senderMap(o.Config, keyODBC, o.ODBCConfig)
	if err != nil {
		return nil, err
	}
	return replay.BuildSenders(sdn, odbc)
}

func scheduleOf(steps []replay.Step) []ScheduleEntry {
	out := make([]ScheduleEntry, len(steps))
	for i, st := range steps {
		ts, err := timestamp.Format(st.Timestamp)
		if err != nil {
			ts = st.Timestamp.String()
		}
		out[i] = ScheduleEntry{Seq: st.Seq, Kind: st.Kind.String(), Timestamp: ts, DelaySeconds: st.Delay}
	}
	return out
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
