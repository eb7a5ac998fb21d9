package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetState reads a named state blob and unmarshals it into dst. Returns
// ErrNotFound if the key has never been written.
func (db *DB) GetState(ctx context.Context, key string, dst any) error {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM state_blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return wrapErr("get state", err)
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return fmt.Errorf("storage: unmarshal state %s: %w", key, err)
	}
	return nil
}

// PutState marshals src and stores it under key, overwriting any prior
// value. Used for the watch cursor and any other process-restart-durable
// bookkeeping blob.
func (db *DB) PutState(ctx context.Context, key string, src any) error {
	value, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("storage: marshal state %s: %w", key, err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO state_blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC(),
	)
	if err != nil {
		return wrapErr("put state", err)
	}
	return nil
}
