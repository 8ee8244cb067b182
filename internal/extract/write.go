package extract

import (
	"fmt"
	"io"

	"github.com/roach88/sfbtools/internal/message"
)

// Separator precedes every record written by WriteAll.
const Separator = "\n\n"

// Counts summarizes a WriteAll call.
type Counts struct {
	Extracted int // records written
	Filtered  int // well-formed records rejected by keep
	Skipped   int // malformed blocks skipped
}

// WriteAll drains cur, writing Separator followed by the serialized record
// for every message keep accepts. A nil keep accepts everything. In
// fail-fast mode the cursor's parse error is returned after the records
// before it were written.
func WriteAll(cur *Cursor, w io.Writer, keep func(message.Message) bool) (Counts, error) {
	var counts Counts
	for cur.Next() {
		msg := cur.Message()
		if keep != nil && !keep(msg) {
			counts.Filtered++
			continue
		}
		if _, err := io.WriteString(w, Separator+msg.String()); err != nil {
			return counts, fmt.Errorf("write record %d: %w", counts.Extracted+1, err)
		}
		counts.Extracted++
	}
	counts.Skipped = cur.Skipped()
	return counts, cur.Err()
}
