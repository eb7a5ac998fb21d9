package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// PutEmbedding stores a vector for targetID, encoded as a flat little-endian
// float32 BLOB. Vector scoring happens in-process in internal/retrieval;
// storage only persists and returns raw vectors, never scores them.
func (db *DB) PutEmbedding(ctx context.Context, targetID, kind string, vector []float32, model string) error {
	blob := encodeVector(vector)
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO embeddings (target_id, kind, vector, dims, model, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(target_id) DO UPDATE SET
			kind = excluded.kind, vector = excluded.vector, dims = excluded.dims,
			model = excluded.model, computed_at = excluded.computed_at`,
		targetID, kind, blob, len(vector), model, time.Now().UTC(),
	)
	if err != nil {
		return wrapErr("put embedding", err)
	}
	return nil
}

// GetEmbedding returns the stored vector for targetID, or ErrNotFound.
func (db *DB) GetEmbedding(ctx context.Context, targetID string) ([]float32, error) {
	var blob []byte
	var dims int
	err := db.conn.QueryRowContext(ctx, `SELECT vector, dims FROM embeddings WHERE target_id = ?`, targetID).Scan(&blob, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get embedding", err)
	}
	return decodeVector(blob, dims)
}

// GetEmbeddingsByKind returns every stored vector of a given kind (e.g.
// "function", "module"), for retrieval's candidate scoring pass.
func (db *DB) GetEmbeddingsByKind(ctx context.Context, kind string) (map[string][]float32, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT target_id, vector, dims FROM embeddings WHERE kind = ?`, kind)
	if err != nil {
		return nil, wrapErr("get embeddings by kind", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var targetID string
		var blob []byte
		var dims int
		if err := rows.Scan(&targetID, &blob, &dims); err != nil {
			return nil, wrapErr("scan embedding", err)
		}
		vec, err := decodeVector(blob, dims)
		if err != nil {
			return nil, err
		}
		out[targetID] = vec
	}
	return out, wrapErr("get embeddings by kind", rows.Err())
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte, dims int) ([]float32, error) {
	if len(buf) != dims*4 {
		return nil, fmt.Errorf("storage: embedding blob length %d does not match dims %d", len(buf), dims)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}
