package replay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
)

// SQLSender executes SqlQueryMessage payloads against a database, each in
// its own committed transaction.
type SQLSender struct {
	cfg SQLConfig
	db  *sql.DB
}

// NewSQLSender creates a sender for cfg.
func NewSQLSender(cfg SQLConfig) *SQLSender {
	return &SQLSender{cfg: cfg}
}

func (s *SQLSender) String() string {
	return s.cfg.String()
}

// dsn maps the configured database onto the driver's data source name.
func (s *SQLSender) dsn() string {
	if s.cfg.Driver == "duckdb" && s.cfg.Database == ":memory:" {
		return ""
	}
	return s.cfg.Database
}

// Open connects and pings the database.
func (s *SQLSender) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open(s.cfg.Driver, s.dsn())
	if err != nil {
		return fmt.Errorf("open %s database: %w", s.cfg.Driver, err)
	}
	// One connection keeps in-memory databases alive across statements.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connect %s database: %w", s.cfg.Driver, err)
	}
	s.db = db
	return nil
}

// Send executes the query and commits it.
func (s *SQLSender) Send(ctx context.Context, payload []byte) error {
	if s.db == nil {
		return errors.New("sender is not open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, string(payload)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (s *SQLSender) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the open database handle, nil when closed.
func (s *SQLSender) DB() *sql.DB {
	return s.db
}
