// Package sqlite implements the storage interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	// Pure-Go SQLite driver
	_ "modernc.org/sqlite"

	"github.com/sitedesk/punchlist/internal/storage"
)

// Verify Store implements storage.Storage at compile time
var _ storage.Storage = (*Store)(nil)

// Store implements the Storage interface using SQLite
type Store struct {
	db     *sql.DB
	dbPath string
	closed atomic.Bool // Tracks whether Close() has been called
}

// New creates a new SQLite storage backend.
//
// For :memory: databases a shared cache with a single connection is
// used so all queries see the same data. File databases run in WAL mode
// with a bounded connection pool (1 writer + N readers).
func New(ctx context.Context, path string) (*Store, error) {
	var connStr string
	isInMemory := path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))
	if path == ":memory:" {
		// WAL mode doesn't work with shared in-memory databases, so use
		// DELETE mode. The named identifier is required for cache=shared
		// to work across connections.
		connStr = "file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
	} else if strings.HasPrefix(path, "file:") {
		connStr = path
		if !strings.Contains(path, "_pragma=foreign_keys") {
			connStr += "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
		}
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite's in-memory databases are isolated per connection by
	// default; without this, pooled connections can't see each other's
	// writes.
	if isInMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL supports 1 writer + unlimited readers; bound the pool to
		// prevent goroutine pile-up on write lock contention.
		db.SetMaxOpenConns(runtime.NumCPU() + 1)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// init creates the schema and seeds the status/priority catalogs.
func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed catalogs: %w", err)
	}
	return nil
}

// Path returns the database file path this store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// UnderlyingDB exposes the raw database handle for maintenance
// operations (backup's VACUUM INTO). Regular callers should go through
// the Storage interface.
func (s *Store) UnderlyingDB() *sql.DB {
	return s.db
}

// Close closes the database connection. Safe to call more than once.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
