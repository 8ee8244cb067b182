package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/sfbtools/internal/replay"
	"github.com/roach88/sfbtools/internal/timestamp"
)

// Run states as written to the runs table.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunAborted  = "aborted"
)

// RunInfo describes a replay run at the moment it starts.
type RunInfo struct {
	Scenario string
	RealTime bool
	MaxDelay *int
	Total    int
}

// BeginRun inserts a new run in the running state and returns its ID.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (string, error) {
	id := s.ids.Generate()

	var maxDelay sql.NullInt64
	if info.MaxDelay != nil {
		maxDelay = sql.NullInt64{Int64: int64(*info.MaxDelay), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, real_time, max_delay, total, started_at, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, info.Scenario, boolToInt(info.RealTime), maxDelay, info.Total, s.stamp(), RunRunning)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordDelivery appends one delivery attempt to runID.
// Recording the same seq twice within a run is an error.
func (s *Store) RecordDelivery(ctx context.Context, runID string, d replay.Delivery) error {
	msgTime, err := timestamp.Format(d.Timestamp)
	if err != nil {
		return fmt.Errorf("delivery %d: %w", d.Seq, err)
	}

	var errText sql.NullString
	if d.Err != nil {
		errText = sql.NullString{String: d.Err.Error(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deliveries (run_id, seq, kind, message_time, delay_seconds,
			status, payload_digest, payload_size, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, d.Seq, d.Kind.String(), msgTime, d.Delay, string(d.Status),
		PayloadDigest(d.Payload), len(d.Payload), errText, s.stamp())
	if err != nil {
		return fmt.Errorf("insert delivery %d: %w", d.Seq, err)
	}
	return nil
}

// FinishRun stores the final state of runID. runErr may be nil.
func (s *Store) FinishRun(ctx context.Context, runID string, res replay.Result, runErr error) error {
	state := RunFinished
	if res.State != replay.Finished {
		state = RunAborted
	}

	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, state = ?, sent = ?, error = ?
		WHERE id = ?
	`, s.stamp(), state, res.Sent, errText, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
