package replay

import (
	"errors"
	"fmt"

	"github.com/roach88/sfbtools/internal/message"
)

// ConfigError reports a scenario or sender configuration problem. It is
// always raised before any message is sent.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeInvalidScenario indicates the scenario document is unusable.
	ErrCodeInvalidScenario ConfigErrorCode = "INVALID_SCENARIO"

	// ErrCodeInvalidSender indicates a sender configuration failed validation.
	ErrCodeInvalidSender ConfigErrorCode = "INVALID_SENDER"

	// ErrCodeMissingSender indicates the scenario holds messages of a kind
	// no sender is configured for.
	ErrCodeMissingSender ConfigErrorCode = "MISSING_SENDER"

	// ErrCodeAlreadyRun indicates Run was called on a used scheduler.
	ErrCodeAlreadyRun ConfigErrorCode = "ALREADY_RUN"
)

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed delivery. It aborts the replay; messages
// sent before it are not rolled back.
type TransportError struct {
	// Seq is the 1-based position of the message, 0 when opening failed.
	Seq int

	// Kind is the kind of message being delivered.
	Kind message.Kind

	// Endpoint describes the sender.
	Endpoint string

	Err error
}

func (e *TransportError) Error() string {
	if e.Seq == 0 {
		return fmt.Sprintf("open %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("send %s message %d to %s: %v", e.Kind, e.Seq, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsTransportError returns true if the error is a delivery failure.
// Uses errors.As to handle wrapped errors.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func configErr(code ConfigErrorCode, err error, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}
