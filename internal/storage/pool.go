// Package storage provides the SQLite-backed storage layer for librarian.
//
// Each workspace owns exactly one database file (or ":memory:" in tests),
// per §6's "single relational database per workspace." DB wraps a
// database/sql handle configured for WAL journaling, serializes writers the
// way SQLite requires, and exposes typed accessors for every entity in
// internal/model.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps a database/sql handle opened against a single SQLite file.
// Transactional writes (withWriteTx) and VACUUM are serialized through
// writeMu — SQLite allows only one writer at a time even under WAL, and
// database/sql's pool doesn't know that. Single-statement writes go straight
// to the pool and rely on the busy timeout.
type DB struct {
	conn    *sql.DB
	writeMu sync.Mutex
	logger  *slog.Logger
	path    string
}

// Open creates a new DB backed by the SQLite file at path (or the special
// name ":memory:"). For a file path it enables WAL journaling, foreign keys
// and a busy timeout; ":memory:" is opened without these pragmas on a single
// connection. It pings the connection before returning.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if path == ":memory:" {
		// A single in-memory connection is required — separate connections
		// in the pool would each see an independent empty database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}

	return &DB{conn: conn, logger: logger, path: path}, nil
}

// Conn returns the underlying handle for use by other packages within this
// module that need to run ad hoc queries not covered by a typed accessor.
func (db *DB) Conn() *sql.DB { return db.conn }

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error { return db.conn.PingContext(ctx) }

// Close shuts down the connection.
func (db *DB) Close() error { return db.conn.Close() }

// Vacuum reclaims space from deleted rows and defragments the database file,
// per the storage contract's vacuum() operation (§4.1).
func (db *DB) Vacuum(ctx context.Context) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	if _, err := db.conn.ExecContext(ctx, "VACUUM"); err != nil {
		return &vacuumError{err: err}
	}
	return nil
}

type vacuumError struct{ err error }

func (e *vacuumError) Error() string { return fmt.Sprintf("storage: vacuum: %v", e.err) }
func (e *vacuumError) Unwrap() error { return e.err }

// withWriteTx runs fn inside a transaction while holding writeMu, committing
// on success and rolling back on any error (including panics propagated
// through fn). All multi-row writes in this package go through this helper
// so they are transactional, per §4.1's "all multi-row writes are
// transactional."
func (db *DB) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit tx: %w", err)
	}
	return nil
}
