// Package cleaner repairs raw IRLYNC log files. It keeps only the content
// between the Start_Prognosis_datadump and Stop_Prognosis_datadump markers
// and rejoins logical lines the logger split across two physical lines.
package cleaner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Options controls per-line preprocessing.
type Options struct {
	// TrimPeriod removes one trailing '.' from every non-empty line before
	// markers are matched. The logger appends literal periods to lines.
	TrimPeriod bool
}

// DefaultOptions returns the options the command line uses by default.
func DefaultOptions() Options {
	return Options{TrimPeriod: true}
}

// Stats summarizes one Clean call.
type Stats struct {
	Lines        int
	BlocksOpened int
	BlocksClosed int
	SplitsJoined int
}

// event is what a single line did to the state machine.
type event int

const (
	eventNone event = iota
	eventStart
	eventEnd
	eventSplit
	eventBody
)

// Cleaner runs the line state machine over a stream.
type Cleaner struct {
	rules  Rules
	opts   Options
	logger *slog.Logger
}

// New creates a Cleaner. A nil logger discards output.
func New(rules Rules, opts Options, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cleaner{rules: rules, opts: opts, logger: logger}
}

// CleanLine applies the default rules with period trimming enabled. It
// returns the new inside-message state and the text to emit.
func CleanLine(line string, inside bool) (bool, string) {
	inside, out, _ := step(defaultRules, DefaultOptions(), line, inside)
	return inside, out
}

// Line applies c's rules and options to one line.
func (c *Cleaner) Line(line string, inside bool) (bool, string) {
	inside, out, _ := step(c.rules, c.opts, line, inside)
	return inside, out
}

func step(rules Rules, opts Options, line string, inside bool) (bool, string, event) {
	line = strings.TrimSuffix(line, "\n")
	if opts.TrimPeriod && strings.HasSuffix(line, ".") {
		line = line[:len(line)-1]
	}

	if !inside {
		if m := rules.start.FindStringSubmatch(line); m != nil {
			return true, "\n" + m[1], eventStart
		}
		return false, "", eventNone
	}

	if rules.end.MatchString(line) {
		return false, "", eventEnd
	}
	if m := rules.split.FindStringSubmatch(line); m != nil {
		return true, m[1], eventSplit
	}
	return true, "\n" + line, eventBody
}

// Clean reads r line by line and writes the concatenated output of the state
// machine to w. The state starts outside a message. CRLF line endings are
// read as LF; a lone CR is content. Lines of any length are accepted; only
// I/O failures and context cancellation are errors.
func (c *Cleaner) Clean(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	br := bufio.NewReaderSize(r, 64*1024)
	bw := bufio.NewWriterSize(w, 64*1024)
	inside := false

	for {
		if stats.Lines%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return stats, fmt.Errorf("read line %d: %w", stats.Lines+1, readErr)
		}
		if line == "" && readErr != nil {
			break
		}
		stats.Lines++
		if strings.HasSuffix(line, "\r\n") {
			line = line[:len(line)-2] + "\n"
		}

		var out string
		var ev event
		inside, out, ev = step(c.rules, c.opts, line, inside)
		switch ev {
		case eventStart:
			stats.BlocksOpened++
			c.logger.Debug("start marker", "line", stats.Lines)
		case eventEnd:
			stats.BlocksClosed++
			c.logger.Debug("stop marker", "line", stats.Lines)
		case eventSplit:
			stats.SplitsJoined++
			c.logger.Debug("split line joined", "line", stats.Lines)
		}

		if _, err := bw.WriteString(out); err != nil {
			return stats, fmt.Errorf("write line %d: %w", stats.Lines, err)
		}
		if readErr != nil {
			break
		}
	}

	if inside {
		c.logger.Warn("input ended inside a message block", "lines", stats.Lines)
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("flush output: %w", err)
	}
	return stats, nil
}
