package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// OpenLedgerSession starts a new session, recording its intent for replay.
func (db *DB) OpenLedgerSession(ctx context.Context, s model.LedgerSession) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO ledger_sessions (id, opened_at, closed_at, intent) VALUES (?, ?, ?, ?)`,
		s.ID, s.OpenedAt, s.ClosedAt, s.Intent,
	)
	if err != nil {
		return wrapErr("open ledger session", err)
	}
	return nil
}

// CloseLedgerSession stamps a session's closed_at, ending the window for new
// entries to be appended under it.
func (db *DB) CloseLedgerSession(ctx context.Context, id string, closedAt any) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE ledger_sessions SET closed_at = ? WHERE id = ?`, closedAt, id)
	if err != nil {
		return wrapErr("close ledger session", err)
	}
	return nil
}

// AppendLedgerEntry appends one entry to a session's causal chain. Entries
// are never updated or deleted once written.
func (db *DB) AppendLedgerEntry(ctx context.Context, e model.LedgerEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("storage: marshal ledger payload: %w", err)
	}
	related, err := json.Marshal(e.RelatedEntries)
	if err != nil {
		return fmt.Errorf("storage: marshal related entries: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, session_id, timestamp, kind, payload, provenance, confidence, related_entries)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Timestamp, string(e.Kind), string(payload), e.Provenance, e.Confidence, string(related),
	)
	if err != nil {
		return wrapErr("append ledger entry", err)
	}
	return nil
}

// GetLedgerEntriesForSession returns every entry in a session, in the order
// they were appended, letting a replay walk the causal chain of one query.
func (db *DB) GetLedgerEntriesForSession(ctx context.Context, sessionID string) ([]model.LedgerEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, session_id, timestamp, kind, payload, provenance, confidence, related_entries
		FROM ledger_entries WHERE session_id = ? ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, wrapErr("get ledger entries for session", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var kind, payload, related string
		var sessionID sql.NullString
		var confidence sql.NullFloat64
		if err := rows.Scan(&e.ID, &sessionID, &e.Timestamp, &kind, &payload, &e.Provenance, &confidence, &related); err != nil {
			return nil, wrapErr("scan ledger entry", err)
		}
		e.Kind = model.LedgerEntryKind(kind)
		if sessionID.Valid {
			v := sessionID.String
			e.SessionID = &v
		}
		if confidence.Valid {
			v := confidence.Float64
			e.Confidence = &v
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("storage: unmarshal ledger payload: %w", err)
		}
		if err := json.Unmarshal([]byte(related), &e.RelatedEntries); err != nil {
			return nil, fmt.Errorf("storage: unmarshal related entries: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, wrapErr("get ledger entries for session", rows.Err())
}

// GetLedgerSession returns session metadata, or ErrNotFound.
func (db *DB) GetLedgerSession(ctx context.Context, id string) (model.LedgerSession, error) {
	var s model.LedgerSession
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, opened_at, closed_at, intent FROM ledger_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.OpenedAt, &s.ClosedAt, &s.Intent)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LedgerSession{}, ErrNotFound
	}
	if err != nil {
		return model.LedgerSession{}, wrapErr("get ledger session", err)
	}
	return s, nil
}
