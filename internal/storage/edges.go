package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// UpsertEdge inserts or replaces a knowledge-graph edge.
func (db *DB) UpsertEdge(ctx context.Context, e model.Edge) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("storage: marshal edge metadata: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO knowledge_edges (source_id, target_id, type, weight, confidence, computed_at, valid_until, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, type) DO UPDATE SET
			weight = excluded.weight,
			confidence = excluded.confidence,
			computed_at = excluded.computed_at,
			valid_until = excluded.valid_until,
			metadata = excluded.metadata`,
		e.SourceID, e.TargetID, string(e.Type), e.Weight, e.Confidence, e.ComputedAt, e.ValidUntil, string(metadata),
	)
	if err != nil {
		return wrapErr("upsert edge", err)
	}
	return nil
}

// UpsertEdges bulk-inserts edges within a single transaction, used by the
// indexer after a full parse pass.
func (db *DB) UpsertEdges(ctx context.Context, edges []model.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO knowledge_edges (source_id, target_id, type, weight, confidence, computed_at, valid_until, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_id, target_id, type) DO UPDATE SET
				weight = excluded.weight,
				confidence = excluded.confidence,
				computed_at = excluded.computed_at,
				valid_until = excluded.valid_until,
				metadata = excluded.metadata`)
		if err != nil {
			return fmt.Errorf("storage: prepare edge upsert: %w", err)
		}
		defer stmt.Close()

		for _, e := range edges {
			metadata, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("storage: marshal edge metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx,
				e.SourceID, e.TargetID, string(e.Type), e.Weight, e.Confidence, e.ComputedAt, e.ValidUntil, string(metadata),
			); err != nil {
				return fmt.Errorf("storage: upsert edge %s->%s: %w", e.SourceID, e.TargetID, err)
			}
		}
		return nil
	})
}

// GetKnowledgeEdgesFrom returns every edge originating at nodeID.
func (db *DB) GetKnowledgeEdgesFrom(ctx context.Context, nodeID string) ([]model.Edge, error) {
	rows, err := db.conn.QueryContext(ctx, edgeSelect+` WHERE source_id = ?`, nodeID)
	if err != nil {
		return nil, wrapErr("get edges from", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetKnowledgeEdgesTo returns every edge terminating at nodeID.
func (db *DB) GetKnowledgeEdgesTo(ctx context.Context, nodeID string) ([]model.Edge, error) {
	rows, err := db.conn.QueryContext(ctx, edgeSelect+` WHERE target_id = ?`, nodeID)
	if err != nil {
		return nil, wrapErr("get edges to", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetAllEdges returns the full edge set, used by getFullGraph materialization.
func (db *DB) GetAllEdges(ctx context.Context) ([]model.Edge, error) {
	rows, err := db.conn.QueryContext(ctx, edgeSelect)
	if err != nil {
		return nil, wrapErr("get all edges", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

const edgeSelect = `SELECT source_id, target_id, type, weight, confidence, computed_at, valid_until, metadata FROM knowledge_edges`

func scanEdges(rows *sql.Rows) ([]model.Edge, error) {
	var edges []model.Edge
	for rows.Next() {
		var e model.Edge
		var typ string
		var metadata string
		var validUntil sql.NullTime
		if err := rows.Scan(&e.SourceID, &e.TargetID, &typ, &e.Weight, &e.Confidence, &e.ComputedAt, &validUntil, &metadata); err != nil {
			return nil, wrapErr("scan edge", err)
		}
		e.Type = model.EdgeType(typ)
		if validUntil.Valid {
			t := validUntil.Time
			e.ValidUntil = &t
		}
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("storage: unmarshal edge metadata: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, wrapErr("scan edges", rows.Err())
}
