package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the runs table.
type Run struct {
	ID         string
	Scenario   string
	RealTime   bool
	MaxDelay   *int
	Total      int
	Sent       int
	State      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

// DeliveryRecord is one row of the deliveries table.
type DeliveryRecord struct {
	RunID         string
	Seq           int
	Kind          string
	MessageTime   string
	DelaySeconds  int
	Status        string
	PayloadDigest string
	PayloadSize   int
	Error         string
	RecordedAt    time.Time
}

const runColumns = `id, scenario, real_time, max_delay, total, sent, state, started_at, finished_at, error`

// GetRun returns a single run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadDeliveries returns the deliveries of runID in seq order.
func (s *Store) ReadDeliveries(ctx context.Context, runID string) ([]DeliveryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, message_time, delay_seconds, status,
			payload_digest, payload_size, error, recorded_at
		FROM deliveries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []DeliveryRecord
	for rows.Next() {
		var (
			d          DeliveryRecord
			errText    sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&d.RunID, &d.Seq, &d.Kind, &d.MessageTime, &d.DelaySeconds, &d.Status,
			&d.PayloadDigest, &d.PayloadSize, &errText, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Error = errText.String
		if d.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("delivery %d recorded_at: %w", d.Seq, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		realTime   int
		maxDelay   sql.NullInt64
		startedAt  string
		finishedAt sql.NullString
		errText    sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Scenario, &realTime, &maxDelay, &run.Total, &run.Sent,
		&run.State, &startedAt, &finishedAt, &errText); err != nil {
		return Run{}, err
	}

	run.RealTime = realTime != 0
	if maxDelay.Valid {
		v := int(maxDelay.Int64)
		run.MaxDelay = &v
	}
	run.Error = errText.String

	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Run{}, fmt.Errorf("started_at: %w", err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return run, nil
}
