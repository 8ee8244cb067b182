// Package message models the XML records found in IRLYNC logs and replay
// scenarios: SDN diagnostics, SQL query messages and replay configuration.
//
// Message is a closed union. Decode dispatches on the root element and is
// the only place that knows the mapping from tags to variants.
package message

import (
	"fmt"
	"time"

	"github.com/roach88/sfbtools/internal/timestamp"
)

// Element paths read from SDN records.
const (
	PathCallID       = "./ConnectionInfo/CallId"
	PathConferenceID = "./ConnectionInfo/ConferenceId"
	PathSDNTimestamp = "./ConnectionInfo/TimeStamp"
)

// Element paths read from SQL query messages.
const (
	PathQuery        = "./Query"
	PathSQLTimestamp = "./TimeStamp"
)

// Message is one parsed XML record.
type Message interface {
	Kind() Kind
	Element() *Element
	String() string

	sealed()
}

// Replayable is a message a replay can deliver: it carries a timestamp and
// yields the payload sent to its receiver.
type Replayable interface {
	Message
	Timestamp() (time.Time, error)
	SetTimestamp(t time.Time) error
	Payload() ([]byte, error)
}

// Parse parses data as a single record of the given kind. The root element
// is not checked against the kind: the extractor matches roots
// case-insensitively and the record is taken as found.
func Parse(data []byte, kind Kind) (Message, error) {
	el, err := ParseElement(data)
	if err != nil {
		return nil, &ParseError{Kind: kind, Offset: -1, Err: err}
	}
	switch kind {
	case KindSDN:
		return &SDN{el: el}, nil
	case KindSQLQuery:
		return &SQLQuery{el: el}, nil
	case KindConfiguration:
		return &Configuration{el: el}, nil
	default:
		return nil, &UnknownElementError{Tag: el.Tag()}
	}
}

// Decode wraps el in the variant selected by its root tag.
func Decode(el *Element) (Message, error) {
	switch KindForTag(el.Tag()) {
	case KindSDN:
		return &SDN{el: el}, nil
	case KindSQLQuery:
		return &SQLQuery{el: el}, nil
	case KindConfiguration:
		return &Configuration{el: el}, nil
	default:
		return nil, &UnknownElementError{Tag: el.Tag()}
	}
}

// SDN is a LyncDiagnostics record.
type SDN struct {
	el *Element
}

func (*SDN) sealed() {}

func (m *SDN) Kind() Kind { return KindSDN }
func (m *SDN) Element() *Element { return m.el }
func (m *SDN) String() string { return m.el.String() }

// CallID returns the ConnectionInfo/CallId text, if present.
func (m *SDN) CallID() (string, bool) {
	return m.el.FindText(PathCallID)
}

// ConferenceID returns the ConnectionInfo/ConferenceId text, if present.
func (m *SDN) ConferenceID() (string, bool) {
	return m.el.FindText(PathConferenceID)
}

func (m *SDN) Timestamp() (time.Time, error) {
	return readTimestamp(m.el, PathSDNTimestamp)
}

func (m *SDN) SetTimestamp(t time.Time) error {
	return writeTimestamp(m.el, PathSDNTimestamp, t)
}

// Payload is the serialized record without namespace declarations.
func (m *SDN) Payload() ([]byte, error) {
	return m.el.Bytes()
}

// Describe summarizes the record's identifiers for logs.
func (m *SDN) Describe() string {
	call, _ := m.CallID()
	conf, _ := m.ConferenceID()
	ts, _ := m.el.FindText(PathSDNTimestamp)
	return fmt.Sprintf("sdn call-id=%q conference-id=%q timestamp=%q", call, conf, ts)
}

// SQLQuery is a SqlQueryMessage record.
type SQLQuery struct {
	el *Element
}

func (*SQLQuery) sealed() {}

func (m *SQLQuery) Kind() Kind { return KindSQLQuery }
func (m *SQLQuery) Element() *Element { return m.el }
func (m *SQLQuery) String() string { return m.el.String() }

// Query returns the statement text. CDATA content is returned verbatim.
func (m *SQLQuery) Query() (string, bool) {
	return m.el.FindText(PathQuery)
}

func (m *SQLQuery) Timestamp() (time.Time, error) {
	return readTimestamp(m.el, PathSQLTimestamp)
}

func (m *SQLQuery) SetTimestamp(t time.Time) error {
	return writeTimestamp(m.el, PathSQLTimestamp, t)
}

// Payload is the query text.
func (m *SQLQuery) Payload() ([]byte, error) {
	q, ok := m.Query()
	if !ok {
		return nil, &NoElementError{Root: m.el.Tag(), Path: PathQuery}
	}
	return []byte(q), nil
}

// Configuration is a ReplayConfiguration (or legacy MockerConfiguration)
// element.
type Configuration struct {
	el *Element
}

func (*Configuration) sealed() {}

func (m *Configuration) Kind() Kind { return KindConfiguration }
func (m *Configuration) Element() *Element { return m.el }
func (m *Configuration) String() string { return m.el.String() }

func readTimestamp(el *Element, path string) (time.Time, error) {
	text, ok := el.FindText(path)
	if !ok {
		return time.Time{}, &NoElementError{Root: el.Tag(), Path: path}
	}
	t, err := timestamp.Parse(text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %s: %w", el.Tag(), path, err)
	}
	return t, nil
}

func writeTimestamp(el *Element, path string, t time.Time) error {
	target := el.Find(path)
	if target == nil {
		return &NoElementError{Root: el.Tag(), Path: path}
	}
	text, err := timestamp.Format(t)
	if err != nil {
		return fmt.Errorf("%s %s: %w", el.Tag(), path, err)
	}
	target.SetText(text)
	return nil
}
