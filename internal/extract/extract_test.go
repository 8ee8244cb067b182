package extract

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfbtools/internal/message"
	"github.com/roach88/sfbtools/internal/testutil"
)

func loadMixed(t *testing.T) []byte {
	t.Helper()
	src, err := os.ReadFile("testdata/mixed.log")
	require.NoError(t, err)
	return src
}

func callIDs(t *testing.T, c *Cursor) []string {
	t.Helper()
	var ids []string
	for c.Next() {
		id, _ := c.Message().(*message.SDN).CallID()
		ids = append(ids, id)
	}
	return ids
}

type countingCloser struct {
	calls int
	err   error
}

func (c *countingCloser) Close() error {
	c.calls++
	return c.err
}

func TestCursor_StreamSkipsMalformed(t *testing.T) {
	c := New(loadMixed(t), message.KindSDN, ModeStream)
	defer c.Close()

	assert.Equal(t, []string{"ABC", "def"}, callIDs(t, c))
	assert.Equal(t, 1, c.Skipped())
	assert.NoError(t, c.Err())
}

func TestCursor_FailFastStopsAtMalformed(t *testing.T) {
	src := loadMixed(t)
	c := New(src, message.KindSDN, ModeFailFast)
	defer c.Close()

	assert.Equal(t, []string{"ABC"}, callIDs(t, c))

	var pe *message.ParseError
	require.True(t, errors.As(c.Err(), &pe), "expected *message.ParseError, got %v", c.Err())
	assert.Equal(t, bytes.Index(src, []byte("<LyncDiagnostics><ConnectionInfo><CallId>BAD")), pe.Offset)
	assert.Equal(t, message.KindSDN, pe.Kind)

	// Stays stopped.
	assert.False(t, c.Next())
}

func TestCursor_OtherKind(t *testing.T) {
	c := New(loadMixed(t), message.KindSQLQuery, ModeFailFast)
	defer c.Close()

	require.True(t, c.Next())
	q, ok := c.Message().(*message.SQLQuery)
	require.True(t, ok)
	text, _ := q.Query()
	assert.Equal(t, "SELECT 1", text)
	assert.False(t, c.Next())
	assert.NoError(t, c.Err())
}

func TestCursor_CaseInsensitiveRoot(t *testing.T) {
	src := []byte(`<lyncdiagnostics><ConnectionInfo><CallId>x</CallId></ConnectionInfo></LYNCDIAGNOSTICS>` +
		`<lyncdiagnostics><ConnectionInfo><CallId>y</CallId></ConnectionInfo></lyncdiagnostics>`)

	c := New(src, message.KindSDN, ModeStream)
	defer c.Close()

	// The first block matches the pattern but its tags do not balance.
	assert.Equal(t, []string{"y"}, callIDs(t, c))
	assert.Equal(t, 1, c.Skipped())
}

func TestCursor_Empty(t *testing.T) {
	c := New(nil, message.KindSDN, ModeStream)
	defer c.Close()

	assert.False(t, c.Next())
	assert.Nil(t, c.Message())
	assert.NoError(t, c.Err())
}

func TestCursor_Reset(t *testing.T) {
	c := New(loadMixed(t), message.KindSDN, ModeFailFast)
	defer c.Close()

	assert.Equal(t, []string{"ABC"}, callIDs(t, c))
	require.Error(t, c.Err())

	c.Reset()
	assert.NoError(t, c.Err())
	assert.Equal(t, []string{"ABC"}, callIDs(t, c))
}

func TestCursor_CloseOnce(t *testing.T) {
	closer := &countingCloser{err: errors.New("boom")}
	c := New(loadMixed(t), message.KindSDN, ModeStream, WithCloser(closer))

	require.True(t, c.Next())
	assert.EqualError(t, c.Close(), "boom")
	assert.EqualError(t, c.Close(), "boom")
	assert.Equal(t, 1, closer.calls)

	assert.False(t, c.Next())
	c.Reset()
	assert.False(t, c.Next())
}

func TestOne(t *testing.T) {
	msg, err := One([]byte("junk "+testutil.SDN("abc", "", "")+" junk"), message.KindSDN)
	require.NoError(t, err)
	id, ok := msg.(*message.SDN).CallID()
	require.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestOne_Errors(t *testing.T) {
	_, err := One([]byte("no records here"), message.KindSDN)
	assert.True(t, errors.Is(err, ErrNoRecord))

	_, err = One([]byte("<LyncDiagnostics><a></LyncDiagnostics>"), message.KindSDN)
	assert.True(t, message.IsParseError(err))

	_, err = One(nil, message.KindSDN)
	assert.True(t, errors.Is(err, ErrNoRecord))
}

func TestWriteAll_Golden(t *testing.T) {
	c := New(loadMixed(t), message.KindSDN, ModeStream)
	defer c.Close()

	var out bytes.Buffer
	counts, err := WriteAll(c, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, Counts{Extracted: 2, Skipped: 1}, counts)

	testutil.AssertGolden(t, "extract_stream", out.Bytes())
}

func TestWriteAll_Filter(t *testing.T) {
	c := New(loadMixed(t), message.KindSDN, ModeStream)
	defer c.Close()

	keep := func(m message.Message) bool {
		id, _ := m.(*message.SDN).CallID()
		return id == "ABC"
	}

	var out bytes.Buffer
	counts, err := WriteAll(c, &out, keep)
	require.NoError(t, err)
	assert.Equal(t, Counts{Extracted: 1, Filtered: 1, Skipped: 1}, counts)
	assert.Contains(t, out.String(), "CallId>ABC<")
	assert.NotContains(t, out.String(), "def")
}

func TestWriteAll_FailFast(t *testing.T) {
	c := New(loadMixed(t), message.KindSDN, ModeFailFast)
	defer c.Close()

	var out bytes.Buffer
	counts, err := WriteAll(c, &out, nil)
	assert.True(t, message.IsParseError(err))
	assert.Equal(t, 1, counts.Extracted)
}
