package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// CreateDefeater inserts a new defeater.
func (db *DB) CreateDefeater(ctx context.Context, d model.Defeater) error {
	affected, err := json.Marshal(d.AffectedClaimIDs)
	if err != nil {
		return fmt.Errorf("storage: marshal affected claim ids: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO defeaters (id, type, severity, affected_claim_ids, confidence_reduction,
			status, auto_resolvable, resolution_action, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.Type), string(d.Severity), string(affected), d.ConfidenceReduction,
		string(d.Status), boolToInt(d.AutoResolvable), d.ResolutionAction, d.CreatedAt, d.ResolvedAt,
	)
	if err != nil {
		return wrapErr("create defeater", err)
	}
	return nil
}

// ActivateDefeater transitions a pending defeater to active. Only the
// defeater row changes: the status of the claims it affects is left as it
// is.
func (db *DB) ActivateDefeater(ctx context.Context, id string) (model.Defeater, error) {
	var d model.Defeater
	err := db.withWriteTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, defeaterSelect+` WHERE id = ?`, id)
		var err error
		d, err = scanDefeater(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE defeaters SET status = ? WHERE id = ?`, string(model.DefeaterActive), id); err != nil {
			return err
		}
		d.Status = model.DefeaterActive
		return nil
	})
	if err != nil {
		return model.Defeater{}, wrapErr("activate defeater", err)
	}
	return d, nil
}

// GetActiveDefeatersForClaim returns every active defeater affecting a
// claim, used to compute its current effective confidence.
func (db *DB) GetActiveDefeatersForClaim(ctx context.Context, claimID string) ([]model.Defeater, error) {
	rows, err := db.conn.QueryContext(ctx,
		defeaterSelect+` WHERE status = ? AND instr(affected_claim_ids, ?) > 0`,
		string(model.DefeaterActive), fmt.Sprintf("%q", claimID))
	if err != nil {
		return nil, wrapErr("get active defeaters for claim", err)
	}
	defer rows.Close()
	return scanDefeaters(rows)
}

// CountActiveDefeaters returns the number of active defeaters in the
// workspace, feeding GraphMeta.ComputeHealth.
func (db *DB) CountActiveDefeaters(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM defeaters WHERE status = ?`, string(model.DefeaterActive)).Scan(&n)
	if err != nil {
		return 0, wrapErr("count active defeaters", err)
	}
	return n, nil
}

const defeaterSelect = `SELECT id, type, severity, affected_claim_ids, confidence_reduction,
	status, auto_resolvable, resolution_action, created_at, resolved_at
	FROM defeaters`

func scanDefeaters(rows *sql.Rows) ([]model.Defeater, error) {
	var defeaters []model.Defeater
	for rows.Next() {
		d, err := scanDefeater(rows)
		if err != nil {
			return nil, wrapErr("scan defeater", err)
		}
		defeaters = append(defeaters, d)
	}
	return defeaters, wrapErr("scan defeaters", rows.Err())
}

func scanDefeater(row rowScanner) (model.Defeater, error) {
	var d model.Defeater
	var typ, severity, status, affected string
	var autoResolvable int
	var resolutionAction sql.NullString
	if err := row.Scan(
		&d.ID, &typ, &severity, &affected, &d.ConfidenceReduction,
		&status, &autoResolvable, &resolutionAction, &d.CreatedAt, &d.ResolvedAt,
	); err != nil {
		return model.Defeater{}, err
	}
	d.Type = model.DefeaterType(typ)
	d.Severity = model.DefeaterSeverity(severity)
	d.Status = model.DefeaterStatus(status)
	d.AutoResolvable = autoResolvable != 0
	if resolutionAction.Valid {
		v := resolutionAction.String
		d.ResolutionAction = &v
	}
	if err := json.Unmarshal([]byte(affected), &d.AffectedClaimIDs); err != nil {
		return model.Defeater{}, fmt.Errorf("storage: unmarshal affected claim ids: %w", err)
	}
	return d, nil
}
