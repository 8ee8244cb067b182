package replay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfbtools/internal/message"
	"github.com/roach88/sfbtools/internal/testutil"
)

func TestSQLSender_ExecutesAndCommits(t *testing.T) {
	s := NewSQLSender(SQLConfig{Driver: "sqlite3", Database: ":memory:"})
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	require.NoError(t, s.Send(ctx, []byte("CREATE TABLE calls (id TEXT)")))
	require.NoError(t, s.Send(ctx, []byte("INSERT INTO calls VALUES ('abc')")))

	var n int
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM calls").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLSender_BadQuery(t *testing.T) {
	s := NewSQLSender(SQLConfig{Driver: "sqlite3", Database: ":memory:"})
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	assert.Error(t, s.Send(ctx, []byte("INSERT INTO missing VALUES (1)")))
}

func TestSQLSender_CloseTwice(t *testing.T) {
	s := NewSQLSender(SQLConfig{Driver: "sqlite3", Database: ":memory:"})
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Nil(t, s.DB())
	assert.Error(t, s.Send(context.Background(), []byte("SELECT 1")))
}

func TestSQLSender_DuckDB(t *testing.T) {
	s := NewSQLSender(SQLConfig{Driver: "duckdb", Database: ":memory:"})
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	require.NoError(t, s.Send(ctx, []byte("CREATE TABLE calls (id VARCHAR)")))
	require.NoError(t, s.Send(ctx, []byte("INSERT INTO calls VALUES ('abc')")))

	var id string
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT id FROM calls").Scan(&id))
	assert.Equal(t, "abc", id)
}

func TestSQLSender_ReplayEndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cdr.db")
	sc := loadMessages(t, "<RealTime>true</RealTime>",
		testutil.SQLQuery("CREATE TABLE calls (id TEXT)", "2015-08-04T09:11:10Z"),
		testutil.SQLQuery("INSERT INTO calls VALUES ('abc')", "2015-08-04T09:11:11Z"),
		testutil.SQLQuery("INSERT INTO missing VALUES ('x')", "2015-08-04T09:11:12Z"),
		testutil.SQLQuery("INSERT INTO calls VALUES ('never')", "2015-08-04T09:11:13Z"),
	)

	sender := NewSQLSender(SQLConfig{Driver: "sqlite3", Database: dbPath})
	s := NewScheduler(sc.Config, WithSender(message.KindSQLQuery, sender), WithClock(testutil.NewFakeClock(epoch)))
	res, err := s.Run(context.Background(), sc.Messages)
	require.True(t, IsTransportError(err), "got %v", err)
	assert.Equal(t, 2, res.Sent)

	// Statements before the failure stay committed.
	check := NewSQLSender(SQLConfig{Driver: "sqlite3", Database: dbPath})
	require.NoError(t, check.Open(context.Background()))
	defer check.Close()

	var n int
	require.NoError(t, check.DB().QueryRow("SELECT COUNT(*) FROM calls").Scan(&n))
	assert.Equal(t, 1, n)
}
