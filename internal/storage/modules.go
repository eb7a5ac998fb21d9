package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// UpsertModule inserts or replaces a module row, keyed by ID.
func (db *DB) UpsertModule(ctx context.Context, m model.Module) error {
	filePaths, err := json.Marshal(m.FilePaths)
	if err != nil {
		return fmt.Errorf("storage: marshal file paths: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO modules (id, path, name, purpose, confidence,
			access_count, outcome_successes, outcome_failures, file_paths, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			name = excluded.name,
			purpose = excluded.purpose,
			confidence = excluded.confidence,
			file_paths = excluded.file_paths,
			updated_at = excluded.updated_at`,
		m.ID, m.Path, m.Name, m.Purpose, m.Confidence,
		m.AccessCount, m.OutcomeSuccesses, m.OutcomeFailures, string(filePaths), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return wrapErr("upsert module", err)
	}
	return nil
}

// GetModule returns the module with the given ID, or ErrNotFound.
func (db *DB) GetModule(ctx context.Context, id string) (model.Module, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, name, purpose, confidence,
			access_count, outcome_successes, outcome_failures, file_paths, created_at, updated_at
		FROM modules WHERE id = ?`, id)
	m, err := scanModule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Module{}, ErrNotFound
	}
	if err != nil {
		return model.Module{}, wrapErr("get module", err)
	}
	return m, nil
}

// GetModules returns every module, for full-tree operations.
func (db *DB) GetModules(ctx context.Context) ([]model.Module, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, name, purpose, confidence,
			access_count, outcome_successes, outcome_failures, file_paths, created_at, updated_at
		FROM modules ORDER BY path`)
	if err != nil {
		return nil, wrapErr("get modules", err)
	}
	defer rows.Close()

	var modules []model.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, wrapErr("scan module", err)
		}
		modules = append(modules, m)
	}
	return modules, wrapErr("get modules", rows.Err())
}

func scanModule(row rowScanner) (model.Module, error) {
	var m model.Module
	var filePaths string
	if err := row.Scan(
		&m.ID, &m.Path, &m.Name, &m.Purpose, &m.Confidence,
		&m.AccessCount, &m.OutcomeSuccesses, &m.OutcomeFailures, &filePaths, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return model.Module{}, err
	}
	if err := json.Unmarshal([]byte(filePaths), &m.FilePaths); err != nil {
		return model.Module{}, fmt.Errorf("unmarshal file paths: %w", err)
	}
	return m, nil
}
