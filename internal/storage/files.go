package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// UpsertFile inserts or replaces a file row, keyed by path.
func (db *DB) UpsertFile(ctx context.Context, f model.File) error {
	imports, err := json.Marshal(f.Imports)
	if err != nil {
		return fmt.Errorf("storage: marshal imports: %w", err)
	}
	symbols, err := json.Marshal(f.ExportedSymbols)
	if err != nil {
		return fmt.Errorf("storage: marshal exported symbols: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO files (path, checksum, size_bytes, last_modified, last_indexed,
			category, role, language, imports, exported_symbols, module_id, content_hash_int64)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum = excluded.checksum,
			size_bytes = excluded.size_bytes,
			last_modified = excluded.last_modified,
			last_indexed = excluded.last_indexed,
			category = excluded.category,
			role = excluded.role,
			language = excluded.language,
			imports = excluded.imports,
			exported_symbols = excluded.exported_symbols,
			module_id = excluded.module_id,
			content_hash_int64 = excluded.content_hash_int64`,
		f.Path, f.Checksum, f.SizeBytes, f.LastModified, f.LastIndexed,
		string(f.Category), string(f.Role), f.Language, string(imports), string(symbols),
		nullableString(f.ModuleID), f.ContentHashInt64,
	)
	if err != nil {
		return wrapErr("upsert file", err)
	}
	return nil
}

// GetFile returns the file stored at path, or ErrNotFound.
func (db *DB) GetFile(ctx context.Context, path string) (model.File, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT path, checksum, size_bytes, last_modified, last_indexed,
			category, role, language, imports, exported_symbols, module_id, content_hash_int64
		FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.File{}, ErrNotFound
	}
	if err != nil {
		return model.File{}, wrapErr("get file", err)
	}
	return f, nil
}

// GetFileChecksum returns only the stored checksum for path, used by the
// indexer to decide whether a file needs reparsing without paying for a full
// row scan.
func (db *DB) GetFileChecksum(ctx context.Context, path string) (string, error) {
	var checksum string
	err := db.conn.QueryRowContext(ctx, `SELECT checksum FROM files WHERE path = ?`, path).Scan(&checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", wrapErr("get file checksum", err)
	}
	return checksum, nil
}

// GetFiles returns every indexed file, for full-tree operations (vacuum,
// time-decay, cascade re-scans).
func (db *DB) GetFiles(ctx context.Context) ([]model.File, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT path, checksum, size_bytes, last_modified, last_indexed,
			category, role, language, imports, exported_symbols, module_id, content_hash_int64
		FROM files ORDER BY path`)
	if err != nil {
		return nil, wrapErr("get files", err)
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, wrapErr("scan file", err)
		}
		files = append(files, f)
	}
	return files, wrapErr("get files", rows.Err())
}

// DeleteFile removes a file row (and, via foreign key cascade, its
// functions) when the watcher observes a deletion.
func (db *DB) DeleteFile(ctx context.Context, path string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return wrapErr("delete file", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (model.File, error) {
	var f model.File
	var category, role string
	var imports, symbols string
	var moduleID sql.NullString
	if err := row.Scan(
		&f.Path, &f.Checksum, &f.SizeBytes, &f.LastModified, &f.LastIndexed,
		&category, &role, &f.Language, &imports, &symbols, &moduleID, &f.ContentHashInt64,
	); err != nil {
		return model.File{}, err
	}
	f.Category = model.FileCategory(category)
	f.Role = model.FileRole(role)
	if moduleID.Valid {
		f.ModuleID = moduleID.String
	}
	if err := json.Unmarshal([]byte(imports), &f.Imports); err != nil {
		return model.File{}, fmt.Errorf("unmarshal imports: %w", err)
	}
	if err := json.Unmarshal([]byte(symbols), &f.ExportedSymbols); err != nil {
		return model.File{}, fmt.Errorf("unmarshal exported symbols: %w", err)
	}
	return f, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
