package evidence

import (
	"context"
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// FullGraph is the materialized evidence graph: every knowledge edge plus
// workspace health meta. Claims/defeaters/contradictions are not inlined
// here (they're looked up per-subject or per-claim on demand, since a full
// claim dump would usually dwarf the edge set) — callers that need the full
// epistemic picture should pair this with Meta and a per-subject claim walk.
type FullGraph struct {
	Edges []model.Edge
	Meta  model.GraphMeta
}

// GetFullGraph materializes the full knowledge edge set and recomputes
// workspace health meta in the same call, per spec.md's "getFullGraph
// materializes and updates meta."
func (g *Graph) GetFullGraph(ctx context.Context) (FullGraph, error) {
	edges, err := g.store.GetAllEdges(ctx)
	if err != nil {
		return FullGraph{}, fmt.Errorf("evidence: get all edges: %w", err)
	}
	meta, err := g.Meta(ctx)
	if err != nil {
		return FullGraph{}, fmt.Errorf("evidence: compute meta: %w", err)
	}
	return FullGraph{Edges: edges, Meta: meta}, nil
}

// SaveFullGraph upserts every edge in fg transactionally, used by the
// indexer after a full parse pass rebuilds the knowledge graph from
// scratch. It delegates to the storage layer's UpsertEdges, which callers
// may also use directly; single edges go through UpsertEdge.
func (g *Graph) SaveFullGraph(ctx context.Context, fg FullGraph) error {
	if err := g.store.UpsertEdges(ctx, fg.Edges); err != nil {
		return fmt.Errorf("evidence: save full graph: %w", err)
	}
	return nil
}
