// Package syncstore is the local durable record store used by every
// connector for incremental synchronization. It remembers each record ever
// pulled from a source system so that a later pull can keep the original
// CreateDate, refresh LastModifiedDate, and collapse overlapping pulls down
// to one row per identifier.
package syncstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrStorageUnavailable wraps every failure to read or write the sync
// database. Callers treat it as fatal for the current run: no partial batch
// is ever committed.
var ErrStorageUnavailable = errors.New("sync store unavailable")

// Clock is the time source for CreateDate/LastModifiedDate stamping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Store provides durable storage for pulled LMS records.
// Uses SQLite with WAL mode; one running process owns the file exclusively.
type Store struct {
	db    *sql.DB
	clock Clock
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithClock substitutes the time source, primarily for tests.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open creates or opens the sync database at the given path.
// Applies required pragmas and the schema automatically; safe to call on an
// existing database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect %s: %v", ErrStorageUnavailable, path, err)
	}

	// SQLite supports one writer at a time; a second connection would only
	// produce SQLITE_BUSY errors during the append+prune transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", ErrStorageUnavailable, err)
	}

	s := &Store{db: db, clock: systemClock{}}
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

// Count returns the number of stored rows for a sync table. Exposed for
// observability logging after each reconcile.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", ErrStorageUnavailable, table, err)
	}
	return n, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %v", pragma, err)
		}
	}

	return nil
}
