package testutil

import "fmt"

// SequenceIDGenerator returns "prefix-1", "prefix-2", ... so journal rows
// written in tests have predictable run IDs.
//
// Not safe for concurrent use.
type SequenceIDGenerator struct {
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator. An empty prefix becomes "run".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequenceIDGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
