package message

import (
	"errors"
	"fmt"
)

// ParseError reports a block that is not well-formed XML.
type ParseError struct {
	Kind   Kind
	Offset int // byte offset of the block in its source, -1 when unknown
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("parse %s block at offset %d: %v", e.Kind.RootTag(), e.Offset, e.Err)
	}
	return fmt.Sprintf("parse %s block: %v", e.Kind.RootTag(), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NoElementError reports a required element that is absent.
type NoElementError struct {
	Root string
	Path string
}

func (e *NoElementError) Error() string {
	return fmt.Sprintf("%s: no element at %s", e.Root, e.Path)
}

// UnknownElementError reports a root element no variant accepts.
type UnknownElementError struct {
	Tag string
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("unrecognized message element <%s>", e.Tag)
}

// ValueError reports an element whose text is not a valid value.
type ValueError struct {
	Path   string
	Value  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: invalid value %q: %s", e.Path, e.Value, e.Reason)
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsNoElementError reports whether err is or wraps a NoElementError.
func IsNoElementError(err error) bool {
	var ne *NoElementError
	return errors.As(err, &ne)
}
