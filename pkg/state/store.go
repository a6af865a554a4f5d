// Package state persists a run's pending tasks and completed results to
// a local SQLite database so a shutdown run can resume where it left
// off.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "modernc.org/sqlite"
)

const schemaVersion = 1

const driverName = "webhunt-sqlite"

func init() {
	sql.Register(driverName, &sqlite.Driver{})
}

// ErrBaseURLMismatch is returned by Load when the persisted state's base
// URL does not match the URL the caller is resuming against.
var ErrBaseURLMismatch = errors.New("state: base URL does not match persisted run")

// Store is a SQLite-backed handle to one run's persisted state file.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) the parent directory and opens the state
// database at path, with WAL journaling and a single pooled
// connection to avoid SQLITE_BUSY under concurrent access from one
// process.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("state: path is required")
	}
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("state: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: ping: %w", err)
	}

	if path != ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		pragmaCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		var journalMode string
		if err := db.QueryRowContext(pragmaCtx, "PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("state: enable WAL: %w", err)
		}
		if _, err := db.ExecContext(pragmaCtx, "PRAGMA busy_timeout=5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("state: set busy_timeout: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			base_url TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pending_tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			depth INTEGER NOT NULL,
			retry INTEGER NOT NULL,
			body TEXT,
			has_body INTEGER NOT NULL,
			headers_json TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS completed_results (
			url TEXT PRIMARY KEY,
			status INTEGER NOT NULL,
			headers_json TEXT,
			body BLOB,
			elapsed_ms INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			classification INTEGER NOT NULL,
			err_message TEXT
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("state: init schema: %w", err)
		}
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: create directory: %w", err)
	}
	return nil
}
