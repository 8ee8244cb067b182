package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// applicationID is written to the SQLite header of every journal ("SFBJ").
const applicationID = 0x5346424a

// Journal layout versions, stored in user_version:
//
//	1 - runs and deliveries, deliveries indexed by status
//	2 - runs indexed by start time for journal listings
const schemaVersion = 2

var (
	// ErrNotJournal is returned when the file holds some other database,
	// such as the target of the SQL sender.
	ErrNotJournal = errors.New("database is not a delivery journal")

	// ErrJournalTooNew is returned for a journal whose layout is newer than
	// this build understands.
	ErrJournalTooNew = errors.New("journal layout is newer than supported")
)

type migration struct {
	version int
	stmt    string
}

// migrations upgrade a journal from version-1 to version. Fresh journals
// run them too, after schema.sql.
var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status, run_id)`},
	{2, `CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at, id)`},
}

// Store is the delivery journal.
type Store struct {
	db  *sql.DB
	ids IDGenerator
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the run ID generator. The default is UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithNow sets the function used for recorded_at and run times.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates or opens the journal at path and brings its layout up to
// date. An empty or missing file becomes a new journal. A file holding any
// other database returns ErrNotJournal and is left unchanged.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	// One connection serializes journal writes from the scheduler.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	s := &Store{db: db, ids: UUIDv7Generator{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// dsn carries the connection pragmas as go-sqlite3 parameters so every
// connection the pool opens gets them.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	return "file:" + path + "?" + q.Encode()
}

// prepare checks that db is a journal (or empty) and applies the schema and
// every pending migration in one transaction.
func prepare(db *sql.DB) error {
	var appID, version, objects int
	if err := db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		return fmt.Errorf("read application_id: %w", err)
	}
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&objects); err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	switch {
	case appID == applicationID:
	case appID == 0 && objects == 0:
		version = 0
	default:
		return ErrNotJournal
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrJournalTooNew, version, schemaVersion)
	}
	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA application_id = %d", applicationID)); err != nil {
		return fmt.Errorf("set application_id: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}
