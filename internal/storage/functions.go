package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// UpsertFunction inserts or replaces a function row, keyed by ID.
func (db *DB) UpsertFunction(ctx context.Context, fn model.Function) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO functions (id, file_path, name, signature, purpose, confidence,
			access_count, outcome_successes, outcome_failures, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path = excluded.file_path,
			name = excluded.name,
			signature = excluded.signature,
			purpose = excluded.purpose,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		fn.ID, fn.FilePath, fn.Name, fn.Signature, fn.Purpose, fn.Confidence,
		fn.AccessCount, fn.OutcomeSuccesses, fn.OutcomeFailures, fn.CreatedAt, fn.UpdatedAt,
	)
	if err != nil {
		return wrapErr("upsert function", err)
	}
	return nil
}

// GetFunction returns the function with the given ID, or ErrNotFound.
func (db *DB) GetFunction(ctx context.Context, id string) (model.Function, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, file_path, name, signature, purpose, confidence,
			access_count, outcome_successes, outcome_failures, created_at, updated_at
		FROM functions WHERE id = ?`, id)
	fn, err := scanFunction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Function{}, ErrNotFound
	}
	if err != nil {
		return model.Function{}, wrapErr("get function", err)
	}
	return fn, nil
}

// GetFunctionsByFile returns all functions extracted from a file.
func (db *DB) GetFunctionsByFile(ctx context.Context, filePath string) ([]model.Function, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, file_path, name, signature, purpose, confidence,
			access_count, outcome_successes, outcome_failures, created_at, updated_at
		FROM functions WHERE file_path = ? ORDER BY name`, filePath)
	if err != nil {
		return nil, wrapErr("get functions by file", err)
	}
	defer rows.Close()

	var fns []model.Function
	for rows.Next() {
		fn, err := scanFunction(rows)
		if err != nil {
			return nil, wrapErr("scan function", err)
		}
		fns = append(fns, fn)
	}
	return fns, wrapErr("get functions by file", rows.Err())
}

// RecordFunctionAccess increments access_count and the outcome counter
// matching success, used by the pack feedback loop (§4.6).
func (db *DB) RecordFunctionAccess(ctx context.Context, id string, success bool) error {
	col := "outcome_failures"
	if success {
		col = "outcome_successes"
	}
	_, err := db.conn.ExecContext(ctx,
		`UPDATE functions SET access_count = access_count + 1, `+col+` = `+col+` + 1 WHERE id = ?`, id)
	if err != nil {
		return wrapErr("record function access", err)
	}
	return nil
}

func scanFunction(row rowScanner) (model.Function, error) {
	var fn model.Function
	if err := row.Scan(
		&fn.ID, &fn.FilePath, &fn.Name, &fn.Signature, &fn.Purpose, &fn.Confidence,
		&fn.AccessCount, &fn.OutcomeSuccesses, &fn.OutcomeFailures, &fn.CreatedAt, &fn.UpdatedAt,
	); err != nil {
		return model.Function{}, err
	}
	return fn, nil
}
