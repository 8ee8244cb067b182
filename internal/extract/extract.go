// Package extract finds embedded XML records in a byte buffer and parses
// each one into a message.Message.
//
// A Cursor scans left to right for <Root ...>...</Root> regions. The scan
// position only moves forward, past the end of each match.
package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/roach88/sfbtools/internal/message"
)

// Mode controls how a block that fails to parse is handled.
type Mode int

const (
	// ModeStream logs and counts a malformed block, then continues after it.
	ModeStream Mode = iota

	// ModeFailFast stops at the first malformed block; Err reports it.
	ModeFailFast
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeFailFast:
		return "fail-fast"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ErrNoRecord is returned by One when the source holds no matching block.
var ErrNoRecord = errors.New("no record found")

// Option configures a Cursor.
type Option func(*Cursor)

// WithCloser hands ownership of the resource backing src to the cursor.
// It is closed exactly once by Close.
func WithCloser(c io.Closer) Option {
	return func(cur *Cursor) {
		cur.closer = c
	}
}

// WithLogger sets the logger used to report skipped blocks.
func WithLogger(l *slog.Logger) Option {
	return func(cur *Cursor) {
		cur.logger = l
	}
}

// Cursor iterates over the records of one kind in src.
//
// Not safe for concurrent use.
type Cursor struct {
	src     []byte
	kind    message.Kind
	mode    Mode
	pattern *regexp.Regexp
	logger  *slog.Logger

	pos     int
	msg     message.Message
	err     error
	skipped int

	closer   io.Closer
	closed   bool
	closeErr error
}

// BlockPattern returns the pattern matching one record of kind: the root
// start tag with any attributes, then the shortest run up to the closing
// tag. Matching is case-insensitive and spans newlines.
func BlockPattern(kind message.Kind) *regexp.Regexp {
	root := regexp.QuoteMeta(kind.RootTag())
	return regexp.MustCompile(`(?is)<` + root + `.*?>.*?</` + root + `>`)
}

// New creates a cursor over src for records of kind.
func New(src []byte, kind message.Kind, mode Mode, opts ...Option) *Cursor {
	c := &Cursor{
		src:     src,
		kind:    kind,
		mode:    mode,
		pattern: BlockPattern(kind),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Next advances to the next well-formed record. It returns false when the
// source is exhausted, the cursor is closed, or (in fail-fast mode) a block
// failed to parse.
func (c *Cursor) Next() bool {
	c.msg = nil
	if c.closed || c.err != nil {
		return false
	}

	for c.pos < len(c.src) {
		loc := c.pattern.FindIndex(c.src[c.pos:])
		if loc == nil {
			c.pos = len(c.src)
			return false
		}
		start, end := c.pos+loc[0], c.pos+loc[1]
		c.pos = end

		msg, err := message.Parse(c.src[start:end], c.kind)
		if err == nil {
			c.msg = msg
			return true
		}

		var pe *message.ParseError
		if !errors.As(err, &pe) {
			pe = &message.ParseError{Kind: c.kind, Err: err}
		}
		pe.Offset = start

		if c.mode == ModeFailFast {
			c.err = pe
			return false
		}
		c.skipped++
		c.logger.Warn("skipping malformed block", "kind", c.kind.RootTag(), "offset", start, "error", pe.Err)
	}
	return false
}

// Message returns the record found by the last successful Next.
func (c *Cursor) Message() message.Message {
	return c.msg
}

// Err returns the parse error that stopped a fail-fast cursor.
func (c *Cursor) Err() error {
	return c.err
}

// Skipped returns the number of malformed blocks skipped since the last
// Reset.
func (c *Cursor) Skipped() int {
	return c.skipped
}

// Reset rewinds the cursor to the start of the source. A closed cursor
// stays closed.
func (c *Cursor) Reset() {
	c.pos = 0
	c.msg = nil
	c.err = nil
	c.skipped = 0
}

// Close releases the source. Calling Close more than once is safe and
// returns the first result.
func (c *Cursor) Close() error {
	if c.closed {
		return c.closeErr
	}
	c.closed = true
	c.msg = nil
	c.src = nil
	if c.closer != nil {
		c.closeErr = c.closer.Close()
	}
	return c.closeErr
}

// One parses the first record of kind in src. A source without any match
// or whose first match is malformed is an error.
func One(src []byte, kind message.Kind) (message.Message, error) {
	c := New(src, kind, ModeFailFast)
	defer c.Close()

	if c.Next() {
		return c.Message(), nil
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: <%s>", ErrNoRecord, kind.RootTag())
}
