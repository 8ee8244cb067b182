package store

import (
	"context"

	"github.com/roach88/sfbtools/internal/replay"
)

// RunRecorder journals the deliveries of a single run. It satisfies
// replay.Recorder.
type RunRecorder struct {
	store *Store
	runID string
}

// Recorder returns a replay.Recorder bound to runID.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// RunID returns the run the recorder writes to.
func (r *RunRecorder) RunID() string {
	return r.runID
}

// RecordDelivery implements replay.Recorder.
func (r *RunRecorder) RecordDelivery(ctx context.Context, d replay.Delivery) error {
	return r.store.RecordDelivery(ctx, r.runID, d)
}

var _ replay.Recorder = (*RunRecorder)(nil)
