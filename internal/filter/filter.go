// Package filter selects SDN records by call or conference identifier.
//
// Identifiers are compared for exact equality after Unicode case folding and
// NFC normalisation of both sides. There is no substring or prefix matching.
package filter

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/sfbtools/internal/message"
)

// Field names the identifier a filter reads.
type Field int

const (
	CallID Field = iota
	ConferenceID
)

// Path returns the element path of the field inside a record.
func (f Field) Path() string {
	switch f {
	case ConferenceID:
		return message.PathConferenceID
	default:
		return message.PathCallID
	}
}

func (f Field) String() string {
	switch f {
	case ConferenceID:
		return "conference-id"
	default:
		return "call-id"
	}
}

// Set is an allow-list of identifiers stored in folded form.
type Set struct {
	ids map[string]struct{}
}

// NewSet builds a set from ids.
func NewSet(ids ...string) Set {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[fold(id)] = struct{}{}
	}
	return s
}

// Len returns the number of distinct folded identifiers.
func (s Set) Len() int {
	return len(s.ids)
}

// Contains reports whether id is in the set, ignoring case.
func (s Set) Contains(id string) bool {
	_, ok := s.ids[fold(id)]
	return ok
}

// fold returns the caseless, NFC-normalised form of s. A new Caser is used
// per call: Casers keep state and are not safe for concurrent use.
func fold(s string) string {
	return norm.NFC.String(cases.Fold().String(norm.NFC.String(s)))
}

// Matches reports whether msg carries field and its text is in candidates.
// An absent element or an empty candidate set never matches.
func Matches(msg message.Message, field Field, candidates Set) bool {
	if msg == nil || candidates.Len() == 0 {
		return false
	}
	text, ok := msg.Element().FindText(field.Path())
	if !ok {
		return false
	}
	return candidates.Contains(text)
}

// Criteria combines the optional identifier lists of an extraction. A nil
// list does not constrain; a non-nil list must match. A non-nil empty list
// therefore rejects every record.
type Criteria struct {
	CallIDs       *Set
	ConferenceIDs *Set
}

// Keep reports whether msg satisfies every given list.
func (c Criteria) Keep(msg message.Message) bool {
	if c.CallIDs != nil && !Matches(msg, CallID, *c.CallIDs) {
		return false
	}
	if c.ConferenceIDs != nil && !Matches(msg, ConferenceID, *c.ConferenceIDs) {
		return false
	}
	return true
}

// Active reports whether any list was given.
func (c Criteria) Active() bool {
	return c.CallIDs != nil || c.ConferenceIDs != nil
}
