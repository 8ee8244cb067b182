// Package replay delivers the messages of a replay scenario to their
// receivers with the recorded or a fixed pacing.
//
// A Scheduler walks the messages in order. For each one it computes a
// delay, waits on its clock and hands the payload to the sender bound to the
// message kind. The first failed delivery aborts the run.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/sfbtools/internal/clock"
	"github.com/roach88/sfbtools/internal/message"
)

// State is the lifecycle position of a Scheduler.
type State int

const (
	NotStarted State = iota
	Running
	Finished
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sender delivers payloads of one message kind.
type Sender interface {
	// Open prepares the sender. It is called once before the first message.
	Open(ctx context.Context) error

	// Send delivers one payload.
	Send(ctx context.Context, payload []byte) error

	// Close releases the sender. It is called once for every opened sender.
	Close() error

	// String describes the endpoint for logs and errors.
	String() string
}

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// Delivery describes one delivery attempt.
type Delivery struct {
	Seq       int
	Kind      message.Kind
	Timestamp time.Time
	Delay     int
	Status    DeliveryStatus
	Payload   []byte
	Err       error
}

// Recorder observes delivery attempts. Recorder errors are logged and do
// not affect the run.
type Recorder interface {
	RecordDelivery(ctx context.Context, d Delivery) error
}

// Step is one planned delivery.
type Step struct {
	Seq       int
	Kind      message.Kind
	Timestamp time.Time
	Delay     int
}

// Result summarizes a run.
type Result struct {
	State State
	Total int
	Sent  int
	Steps []Step
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSender binds s to messages of kind.
func WithSender(kind message.Kind, s Sender) Option {
	return func(sch *Scheduler) {
		sch.senders[kind] = s
	}
}

// WithClock sets the clock used for waits. The default is clock.Real().
func WithClock(c clock.Clock) Option {
	return func(sch *Scheduler) {
		sch.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(sch *Scheduler) {
		sch.logger = l
	}
}

// WithRecorder reports every delivery attempt to r.
func WithRecorder(r Recorder) Option {
	return func(sch *Scheduler) {
		sch.recorder = r
	}
}

// Scheduler runs one replay. It is single-use.
type Scheduler struct {
	cfg      Config
	senders  map[message.Kind]Sender
	clock    clock.Clock
	logger   *slog.Logger
	recorder Recorder
	state    State
}

// NewScheduler creates a scheduler with the given pacing.
func NewScheduler(cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		senders: make(map[message.Kind]Sender),
		clock:   clock.Real(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// State returns the scheduler's lifecycle state.
func (s *Scheduler) State() State {
	return s.state
}

// Plan computes the delay of every message without sending anything.
// Every message must carry a valid timestamp.
func (s *Scheduler) Plan(msgs []message.Replayable) ([]Step, error) {
	stamps, err := timestamps(msgs)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, len(msgs))
	var previous *time.Time
	for i, m := range msgs {
		steps[i] = Step{
			Seq:       i + 1,
			Kind:      m.Kind(),
			Timestamp: stamps[i],
			Delay:     ComputeDelay(stamps[i], previous, s.cfg),
		}
		previous = &stamps[i]
	}
	return steps, nil
}

// Run delivers msgs in order.
//
// Before anything is sent, Run checks that every timestamp parses and that
// a sender is bound for every kind present. It then opens each bound sender
// once, and for each message waits the computed delay and sends the
// payload. A send failure is wrapped in a *TransportError and stops the
// run. Every opened sender is closed exactly once on every path.
func (s *Scheduler) Run(ctx context.Context, msgs []message.Replayable) (Result, error) {
	if s.state != NotStarted {
		return Result{State: s.state}, configErr(ErrCodeAlreadyRun, nil, "scheduler is %s", s.state)
	}

	res := Result{State: NotStarted, Total: len(msgs)}
	steps, err := s.Plan(msgs)
	if err != nil {
		return res, err
	}
	res.Steps = steps

	for _, kind := range kindsOf(msgs) {
		if s.senders[kind] == nil {
			return res, configErr(ErrCodeMissingSender, nil, "no sender configured for %s messages", kind)
		}
	}

	s.state = Running
	res.State = Running

	opened := make([]Sender, 0, len(s.senders))
	defer func() {
		for _, snd := range opened {
			if cerr := snd.Close(); cerr != nil {
				s.logger.Warn("close sender", "sender", snd.String(), "error", cerr)
			}
		}
	}()

	for _, kind := range sortedKinds(s.senders) {
		snd := s.senders[kind]
		if err := snd.Open(ctx); err != nil {
			s.logger.Error("open sender failed", "sender", snd.String(), "error", err)
			return s.abort(res), &TransportError{Kind: kind, Endpoint: snd.String(), Err: err}
		}
		opened = append(opened, snd)
		s.logger.Debug("sender open", "kind", kind.String(), "sender", snd.String())
	}

	for i, m := range msgs {
		step := steps[i]
		snd := s.senders[step.Kind]

		s.logger.Info("waiting", "seq", step.Seq, "kind", step.Kind.String(), "delay_seconds", step.Delay)
		if err := s.wait(ctx, step.Delay); err != nil {
			return s.abort(res), fmt.Errorf("replay interrupted before message %d: %w", step.Seq, err)
		}

		payload, err := m.Payload()
		if err != nil {
			return s.abort(res), fmt.Errorf("message %d payload: %w", step.Seq, err)
		}

		if err := snd.Send(ctx, payload); err != nil {
			s.logger.Error("delivery failed", "seq", step.Seq, "kind", step.Kind.String(), "sender", snd.String(), "error", err)
			s.record(ctx, step, StatusFailed, payload, err)
			return s.abort(res), &TransportError{Seq: step.Seq, Kind: step.Kind, Endpoint: snd.String(), Err: err}
		}
		s.record(ctx, step, StatusSent, payload, nil)
		res.Sent++
		s.logger.Info("message sent", "seq", step.Seq, "kind", step.Kind.String(), "timestamp", step.Timestamp)
	}

	s.state = Finished
	res.State = Finished
	return res, nil
}

func (s *Scheduler) abort(res Result) Result {
	s.state = Aborted
	res.State = Aborted
	return res
}

func (s *Scheduler) wait(ctx context.Context, seconds int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := time.Duration(math.MaxInt64)
	if int64(seconds) < int64(d/time.Second) {
		d = time.Duration(seconds) * time.Second
	}
	select {
	case <-s.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) record(ctx context.Context, step Step, status DeliveryStatus, payload []byte, sendErr error) {
	if s.recorder == nil {
		return
	}
	d := Delivery{
		Seq:       step.Seq,
		Kind:      step.Kind,
		Timestamp: step.Timestamp,
		Delay:     step.Delay,
		Status:    status,
		Payload:   payload,
		Err:       sendErr,
	}
	// The journal must still see a failure caused by cancellation.
	if err := s.recorder.RecordDelivery(context.WithoutCancel(ctx), d); err != nil {
		s.logger.Warn("record delivery", "seq", step.Seq, "error", err)
	}
}

// sortedKinds returns the bound kinds in a fixed order so senders open
// deterministically.
func sortedKinds(senders map[message.Kind]Sender) []message.Kind {
	var kinds []message.Kind
	for _, k := range []message.Kind{message.KindSDN, message.KindSQLQuery} {
		if senders[k] != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// IsInterrupted reports whether err came from context cancellation.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
