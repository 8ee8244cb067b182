package replay

import (
	"time"

	"github.com/roach88/sfbtools/internal/message"
	"github.com/roach88/sfbtools/internal/timestamp"
)

// Config controls replay pacing.
type Config struct {
	// MaxDelay caps every delay in seconds. Nil means no cap in real-time
	// mode and a zero delay in fixed mode.
	MaxDelay *int

	// RealTime reproduces the recorded gaps between messages. Otherwise
	// every message waits MaxDelay.
	RealTime bool

	// RebaseToNow moves the timestamps so the first message is stamped
	// with the time the replay starts.
	RebaseToNow bool
}

// ConfigFrom resolves a scenario's ReplayConfig. Absent flags are false.
func ConfigFrom(rc message.ReplayConfig) Config {
	cfg := Config{MaxDelay: rc.MaxDelay}
	if rc.RealTime != nil {
		cfg.RealTime = *rc.RealTime
	}
	if rc.RebaseToNow != nil {
		cfg.RebaseToNow = *rc.RebaseToNow
	}
	return cfg
}

// ComputeDelay returns the wait in whole seconds before sending the message
// stamped current. previous is the timestamp of the message before it, nil
// for the first message.
//
// In real-time mode the first message waits 0 and later ones wait the
// floored gap to their predecessor, clamped to [0, MaxDelay]. Out-of-order
// timestamps clamp to 0. In fixed mode every message waits MaxDelay. Gaps
// are measured in whole seconds and never saturate.
func ComputeDelay(current time.Time, previous *time.Time, cfg Config) int {
	var delay int64
	if cfg.RealTime {
		if previous != nil {
			delay = timestamp.FloorSeconds(*previous, current)
		}
	} else if cfg.MaxDelay != nil {
		delay = int64(*cfg.MaxDelay)
	}

	if cfg.MaxDelay != nil && delay > int64(*cfg.MaxDelay) {
		delay = int64(*cfg.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}
	return int(delay)
}
