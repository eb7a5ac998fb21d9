package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// CreateClaim inserts a new claim, recomputing its aggregate confidence
// before the write so Overall is never stale relative to its components.
func (db *DB) CreateClaim(ctx context.Context, c model.Claim) (model.Claim, error) {
	c.Confidence = c.Confidence.Aggregate()
	if c.SchemaVersion == 0 {
		c.SchemaVersion = model.CurrentClaimSchemaVersion
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO claims (id, proposition, type, subject_type, subject_id, subject_name, subject_location,
			source_type, source_id, source_version, source_trace_id, status,
			overall, retrieval, structural, semantic, test_execution, recency, aggregation_method,
			schema_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Proposition, c.Type, c.Subject.Type, c.Subject.ID, c.Subject.Name, nullableString(c.Subject.Location),
		c.Source.Type, c.Source.ID, c.Source.Version, c.Source.TraceID, string(c.Status),
		c.Confidence.Overall, c.Confidence.Retrieval, c.Confidence.Structural, c.Confidence.Semantic,
		c.Confidence.TestExecution, c.Confidence.Recency, string(c.Confidence.AggregationMethod),
		c.SchemaVersion, c.CreatedAt,
	)
	if err != nil {
		return model.Claim{}, wrapErr("create claim", err)
	}
	return c, nil
}

// GetClaim returns the claim with the given ID, or ErrNotFound.
func (db *DB) GetClaim(ctx context.Context, id string) (model.Claim, error) {
	row := db.conn.QueryRowContext(ctx, claimSelect+` WHERE id = ?`, id)
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Claim{}, ErrNotFound
	}
	if err != nil {
		return model.Claim{}, wrapErr("get claim", err)
	}
	return c, nil
}

// GetClaimsBySubject returns every claim about a subject entity, newest
// first, whatever its status.
func (db *DB) GetClaimsBySubject(ctx context.Context, subjectType, subjectID string) ([]model.Claim, error) {
	rows, err := db.conn.QueryContext(ctx,
		claimSelect+` WHERE subject_type = ? AND subject_id = ? ORDER BY created_at DESC`, subjectType, subjectID)
	if err != nil {
		return nil, wrapErr("get claims by subject", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

// UpdateClaimStatus transitions a claim's lifecycle status, e.g. active ->
// stale when a staleness defeater activates, or active -> disputed when a
// contradiction is detected.
func (db *DB) UpdateClaimStatus(ctx context.Context, id string, status model.ClaimStatus) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE claims SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return wrapErr("update claim status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update claim status rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyTimeDecay multiplies the recency component of every active claim by
// factor (0 < factor < 1), then recomputes each claim's overall confidence
// under its own aggregation method. Used by the periodic decay loop so
// claims about code that hasn't been revisited gradually lose confidence
// even absent a new defeater.
func (db *DB) ApplyTimeDecay(ctx context.Context, factor float64) (int64, error) {
	var affected int64
	err := db.withWriteTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, claimSelect+` WHERE status = ?`, string(model.ClaimActive))
		if err != nil {
			return err
		}
		var claims []model.Claim
		for rows.Next() {
			c, err := scanClaim(rows)
			if err != nil {
				rows.Close()
				return err
			}
			claims = append(claims, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		stmt, err := tx.PrepareContext(ctx, `UPDATE claims SET recency = ?, overall = ? WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range claims {
			c.Confidence.Recency *= factor
			c.Confidence = c.Confidence.Aggregate()
			if _, err := stmt.ExecContext(ctx, c.Confidence.Recency, c.Confidence.Overall, c.ID); err != nil {
				return err
			}
			affected++
		}
		return nil
	})
	if err != nil {
		return 0, wrapErr("apply time decay", err)
	}
	return affected, nil
}

const claimSelect = `SELECT id, proposition, type, subject_type, subject_id, subject_name, subject_location,
	source_type, source_id, source_version, source_trace_id, status,
	overall, retrieval, structural, semantic, test_execution, recency, aggregation_method,
	schema_version, created_at
	FROM claims`

func scanClaims(rows *sql.Rows) ([]model.Claim, error) {
	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, wrapErr("scan claim", err)
		}
		claims = append(claims, c)
	}
	return claims, wrapErr("scan claims", rows.Err())
}

func scanClaim(row rowScanner) (model.Claim, error) {
	var c model.Claim
	var status, method string
	var subjectLocation, sourceVersion, sourceTraceID sql.NullString
	if err := row.Scan(
		&c.ID, &c.Proposition, &c.Type, &c.Subject.Type, &c.Subject.ID, &c.Subject.Name, &subjectLocation,
		&c.Source.Type, &c.Source.ID, &sourceVersion, &sourceTraceID, &status,
		&c.Confidence.Overall, &c.Confidence.Retrieval, &c.Confidence.Structural, &c.Confidence.Semantic,
		&c.Confidence.TestExecution, &c.Confidence.Recency, &method,
		&c.SchemaVersion, &c.CreatedAt,
	); err != nil {
		return model.Claim{}, err
	}
	c.Status = model.ClaimStatus(status)
	c.Confidence.AggregationMethod = model.AggregationMethod(method)
	if subjectLocation.Valid {
		c.Subject.Location = subjectLocation.String
	}
	if sourceVersion.Valid {
		v := sourceVersion.String
		c.Source.Version = &v
	}
	if sourceTraceID.Valid {
		v := sourceTraceID.String
		c.Source.TraceID = &v
	}
	return c, nil
}
