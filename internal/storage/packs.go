package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// CreatePack inserts a new immutable pack snapshot.
func (db *DB) CreatePack(ctx context.Context, p model.Pack) error {
	keyFacts, err := json.Marshal(p.KeyFacts)
	if err != nil {
		return fmt.Errorf("storage: marshal key facts: %w", err)
	}
	relatedFiles, err := json.Marshal(p.RelatedFiles)
	if err != nil {
		return fmt.Errorf("storage: marshal related files: %w", err)
	}
	triggers, err := json.Marshal(p.InvalidationTriggers)
	if err != nil {
		return fmt.Errorf("storage: marshal invalidation triggers: %w", err)
	}
	claimIDs, err := json.Marshal(p.ClaimIDs)
	if err != nil {
		return fmt.Errorf("storage: marshal claim ids: %w", err)
	}
	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("storage: marshal pack data: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO packs (id, type, subtype, target_id, summary, key_facts, related_files,
			confidence, created_at, version, invalidation_triggers, invalidated,
			access_count, outcome_successes, outcome_failures, claim_ids, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Type), p.Subtype, p.TargetID, p.Summary, string(keyFacts), string(relatedFiles),
		p.Confidence, p.CreatedAt, p.Version, string(triggers), boolToInt(p.Invalidated),
		p.AccessCount, p.OutcomeSuccesses, p.OutcomeFailures, string(claimIDs), string(data),
	)
	if err != nil {
		return wrapErr("create pack", err)
	}
	return nil
}

// GetPack returns the pack with the given ID, or ErrNotFound.
func (db *DB) GetPack(ctx context.Context, id string) (model.Pack, error) {
	row := db.conn.QueryRowContext(ctx, packSelect+` WHERE id = ?`, id)
	p, err := scanPack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Pack{}, ErrNotFound
	}
	if err != nil {
		return model.Pack{}, wrapErr("get pack", err)
	}
	return p, nil
}

// GetActivePacksForTarget returns all non-invalidated packs bound to a
// target entity, newest first.
func (db *DB) GetActivePacksForTarget(ctx context.Context, targetID string) ([]model.Pack, error) {
	rows, err := db.conn.QueryContext(ctx,
		packSelect+` WHERE target_id = ? AND invalidated = 0 ORDER BY created_at DESC`, targetID)
	if err != nil {
		return nil, wrapErr("get active packs for target", err)
	}
	defer rows.Close()
	return scanPacks(rows)
}

// InvalidateContextPacks marks every pack carrying the given trigger as
// invalidated. Packs are never deleted — invalidation only flips a flag, so
// historical packs remain available for replay and outcome attribution.
func (db *DB) InvalidateContextPacks(ctx context.Context, trigger model.InvalidationTrigger) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE packs SET invalidated = 1
		 WHERE invalidated = 0 AND instr(invalidation_triggers, ?) > 0`,
		fmt.Sprintf("%q", string(trigger)))
	if err != nil {
		return 0, wrapErr("invalidate context packs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr("invalidate context packs rows affected", err)
	}
	return n, nil
}

// RecordContextPackAccess increments a pack's access count and the outcome
// counter matching the reported usefulness threshold (>= 0.5 counts as
// success), per the feedback loop in §4.6.
func (db *DB) RecordContextPackAccess(ctx context.Context, packID string, usefulness float64) error {
	col := "outcome_failures"
	if usefulness >= 0.5 {
		col = "outcome_successes"
	}
	_, err := db.conn.ExecContext(ctx,
		`UPDATE packs SET access_count = access_count + 1, `+col+` = `+col+` + 1 WHERE id = ?`, packID)
	if err != nil {
		return wrapErr("record context pack access", err)
	}
	return nil
}

const packSelect = `SELECT id, type, subtype, target_id, summary, key_facts, related_files,
	confidence, created_at, version, invalidation_triggers, invalidated,
	access_count, outcome_successes, outcome_failures, claim_ids, data
	FROM packs`

func scanPacks(rows *sql.Rows) ([]model.Pack, error) {
	var packs []model.Pack
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, wrapErr("scan pack", err)
		}
		packs = append(packs, p)
	}
	return packs, wrapErr("scan packs", rows.Err())
}

func scanPack(row rowScanner) (model.Pack, error) {
	var p model.Pack
	var typ string
	var keyFacts, relatedFiles, triggers, claimIDs, data string
	var invalidated int
	if err := row.Scan(
		&p.ID, &typ, &p.Subtype, &p.TargetID, &p.Summary, &keyFacts, &relatedFiles,
		&p.Confidence, &p.CreatedAt, &p.Version, &triggers, &invalidated,
		&p.AccessCount, &p.OutcomeSuccesses, &p.OutcomeFailures, &claimIDs, &data,
	); err != nil {
		return model.Pack{}, err
	}
	p.Type = model.PackType(typ)
	p.Invalidated = invalidated != 0
	fields := []struct {
		raw string
		dst any
	}{
		{keyFacts, &p.KeyFacts}, {relatedFiles, &p.RelatedFiles},
		{triggers, &p.InvalidationTriggers}, {claimIDs, &p.ClaimIDs},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return model.Pack{}, fmt.Errorf("unmarshal pack field: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
		return model.Pack{}, fmt.Errorf("unmarshal pack data: %w", err)
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
