package pipeline

import (
	"context"

	"github.com/nateschmiedehaus/librarian/internal/evidence"
	"github.com/nateschmiedehaus/librarian/internal/model"
)

// claimStore is the narrow storage surface GraphEvidenceStore needs beyond
// what *evidence.Graph exposes directly; claims are looked up by subject,
// not by the graph's edge-oriented API.
type claimStore interface {
	GetClaimsBySubject(ctx context.Context, subjectType, subjectID string) ([]model.Claim, error)
}

// GraphEvidenceStore adapts an *evidence.Graph plus its backing claim store
// into the pipeline's EvidenceStore interface.
type GraphEvidenceStore struct {
	Graph *evidence.Graph
	Store claimStore
}

// NewGraphEvidenceStore builds an EvidenceStore over graph and store
// (typically the same *storage.DB that backs graph).
func NewGraphEvidenceStore(graph *evidence.Graph, store claimStore) *GraphEvidenceStore {
	return &GraphEvidenceStore{Graph: graph, Store: store}
}

func (g *GraphEvidenceStore) GetClaimsForSubject(ctx context.Context, subjectType, subjectID string) ([]model.Claim, error) {
	return g.Store.GetClaimsBySubject(ctx, subjectType, subjectID)
}

func (g *GraphEvidenceStore) EffectiveConfidence(ctx context.Context, claimID string) (float64, error) {
	return g.Graph.EffectiveConfidence(ctx, claimID)
}

func (g *GraphEvidenceStore) RaiseDefeater(ctx context.Context, d model.Defeater) (model.Defeater, error) {
	return g.Graph.RaiseDefeater(ctx, d)
}

var _ EvidenceStore = (*GraphEvidenceStore)(nil)
