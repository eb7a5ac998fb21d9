package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// CreateContradiction records a newly detected contradiction between two
// claims. Automated detection is the only caller permitted to insert rows;
// closing one requires the separate, explicit ResolveContradiction call.
func (db *DB) CreateContradiction(ctx context.Context, c model.Contradiction) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO contradictions (id, claim_a_id, claim_b_id, type, explanation, severity, status, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ClaimAID, c.ClaimBID, c.Type, c.Explanation, string(c.Severity), string(c.Status), c.DetectedAt,
	)
	if err != nil {
		return wrapErr("create contradiction", err)
	}
	return nil
}

// ResolveContradiction closes a contradiction with an explicit resolution.
// This is the only path in the storage layer that transitions a
// contradiction's status — no automated scoring path may call it.
func (db *DB) ResolveContradiction(ctx context.Context, id string, r model.Resolution) error {
	if r.ResolvedAt.IsZero() {
		r.ResolvedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE contradictions SET status = ?, resolution_method = ?, resolution_tradeoff = ?,
			resolution_explanation = ?, resolution_resolver_id = ?, resolution_resolved_at = ?
		WHERE id = ?`,
		string(model.ContradictionResolved), r.Method, r.Tradeoff, r.Explanation, r.ResolverID, r.ResolvedAt, id,
	)
	if err != nil {
		return wrapErr("resolve contradiction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("resolve contradiction rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetContradictionsForClaim returns every contradiction involving a claim,
// on either side of the pair.
func (db *DB) GetContradictionsForClaim(ctx context.Context, claimID string) ([]model.Contradiction, error) {
	rows, err := db.conn.QueryContext(ctx,
		contradictionSelect+` WHERE claim_a_id = ? OR claim_b_id = ? ORDER BY detected_at DESC`, claimID, claimID)
	if err != nil {
		return nil, wrapErr("get contradictions for claim", err)
	}
	defer rows.Close()
	return scanContradictions(rows)
}

// CountUnresolvedContradictions feeds GraphMeta.ComputeHealth.
func (db *DB) CountUnresolvedContradictions(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contradictions WHERE status = ?`, string(model.ContradictionUnresolved)).Scan(&n)
	if err != nil {
		return 0, wrapErr("count unresolved contradictions", err)
	}
	return n, nil
}

// CountClaims feeds GraphMeta.ComputeHealth.
func (db *DB) CountClaims(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM claims`).Scan(&n); err != nil {
		return 0, wrapErr("count claims", err)
	}
	return n, nil
}

const contradictionSelect = `SELECT id, claim_a_id, claim_b_id, type, explanation, severity, status,
	resolution_method, resolution_tradeoff, resolution_explanation, resolution_resolver_id, resolution_resolved_at,
	detected_at FROM contradictions`

func scanContradictions(rows *sql.Rows) ([]model.Contradiction, error) {
	var out []model.Contradiction
	for rows.Next() {
		c, err := scanContradiction(rows)
		if err != nil {
			return nil, wrapErr("scan contradiction", err)
		}
		out = append(out, c)
	}
	return out, wrapErr("scan contradictions", rows.Err())
}

func scanContradiction(row rowScanner) (model.Contradiction, error) {
	var c model.Contradiction
	var severity, status string
	var method, tradeoff, explanation, resolverID sql.NullString
	var resolvedAt sql.NullTime
	if err := row.Scan(
		&c.ID, &c.ClaimAID, &c.ClaimBID, &c.Type, &c.Explanation, &severity, &status,
		&method, &tradeoff, &explanation, &resolverID, &resolvedAt,
		&c.DetectedAt,
	); err != nil {
		return model.Contradiction{}, err
	}
	c.Severity = model.DefeaterSeverity(severity)
	c.Status = model.ContradictionStatus(status)
	if status == string(model.ContradictionResolved) && method.Valid {
		r := &model.Resolution{Method: method.String, Explanation: explanation.String, ResolverID: resolverID.String}
		if tradeoff.Valid {
			t := tradeoff.String
			r.Tradeoff = &t
		}
		if resolvedAt.Valid {
			r.ResolvedAt = resolvedAt.Time
		}
		c.Resolution = r
	}
	return c, nil
}
