package cleaner

import (
	"errors"
	"fmt"
)

var errNoTailGroup = errors.New("pattern has no capture group for the line tail")

// PatternError reports a marker pattern that cannot be used.
type PatternError struct {
	Name string
	Err  error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s marker: %v", e.Name, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
