package storage

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"modernc.org/sqlite"
)

// sqliteBusy and sqliteLocked are the driver codes returned when another
// connection holds the write lock a caller is waiting on.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// isRetriable returns true for SQLite error codes that indicate a transient
// lock conflict rather than a real failure.
func isRetriable(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqliteBusy || code == sqliteLocked
	}
	// Fallback for errors that didn't round-trip as *sqlite.Error (e.g.
	// wrapped by database/sql in a way that loses the concrete type).
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// WithRetry executes fn, retrying up to maxRetries times on SQLITE_BUSY or
// SQLITE_LOCKED. Retries use jittered exponential backoff starting at
// baseDelay.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || !isRetriable(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}
		jitter := time.Duration(rand.Int64N(int64(baseDelay))) //nolint:gosec // jitter doesn't need crypto-strength randomness
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay + jitter):
		}
		baseDelay *= 2
	}
	return err
}
