package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sfbtools/internal/replay"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Replay aborted (delivery failed or interrupted)
	ExitCommandError = 2 // Bad arguments, unreadable input, configuration errors
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not
// ExitErrors come from cobra itself (unknown flags, wrong argument counts)
// and are command errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// replayExitCode maps a replay error onto an exit code: delivery failures
// and interruptions abort the run, everything else is a command error.
func replayExitCode(err error) int {
	if replay.IsTransportError(err) || replay.IsInterrupted(err) {
		return ExitFailure
	}
	return ExitCommandError
}

// errorCode returns the short code reported in JSON error output.
func errorCode(err error) string {
	var cfgErr *replay.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return string(cfgErr.Code)
	case replay.IsTransportError(err):
		return "TRANSPORT"
	case replay.IsInterrupted(err):
		return "INTERRUPTED"
	default:
		return "COMMAND"
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "INVALID_SENDER", "TRANSPORT", ...
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // partial result, if any
}

// Success outputs a result. Text output prints data with %v, so result
// types implement fmt.Stringer.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error. details, typically a partial result, is printed
// in text mode when non-nil.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	if details != nil {
		fmt.Fprintln(f.Writer, details)
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}
