// Package evidence implements the evidence graph: CRUD over claims, knowledge
// edges, defeaters, and contradictions, confidence decomposition/aggregation,
// and graph traversal (BFS expansion, shortest path, full materialization).
//
// Knowledge and evidence graphs may be cyclic; nodes are referenced only by
// ID (never by owning pointer), and every traversal here is an explicit
// BFS/DFS over an ID-keyed arena with a visited set.
package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/storage"
)

// Store is the subset of *storage.DB the evidence graph depends on. Defined
// as an interface so pipeline/retrieval tests can substitute a fake without
// standing up SQLite.
type Store interface {
	UpsertEdges(ctx context.Context, edges []model.Edge) error
	GetKnowledgeEdgesFrom(ctx context.Context, nodeID string) ([]model.Edge, error)
	GetKnowledgeEdgesTo(ctx context.Context, nodeID string) ([]model.Edge, error)
	GetAllEdges(ctx context.Context) ([]model.Edge, error)

	CreateClaim(ctx context.Context, c model.Claim) (model.Claim, error)
	GetClaim(ctx context.Context, id string) (model.Claim, error)
	GetClaimsBySubject(ctx context.Context, subjectType, subjectID string) ([]model.Claim, error)
	UpdateClaimStatus(ctx context.Context, id string, status model.ClaimStatus) error
	CountClaims(ctx context.Context) (int, error)

	CreateDefeater(ctx context.Context, d model.Defeater) error
	ActivateDefeater(ctx context.Context, id string) (model.Defeater, error)
	GetActiveDefeatersForClaim(ctx context.Context, claimID string) ([]model.Defeater, error)
	CountActiveDefeaters(ctx context.Context) (int, error)

	CreateContradiction(ctx context.Context, c model.Contradiction) error
	ResolveContradiction(ctx context.Context, id string, r model.Resolution) error
	GetContradictionsForClaim(ctx context.Context, claimID string) ([]model.Contradiction, error)
	CountUnresolvedContradictions(ctx context.Context) (int, error)
}

var _ Store = (*storage.DB)(nil)

// Graph is the evidence graph service: a thin, ID-oriented layer over
// storage that adds confidence resolution and traversal on top of plain
// CRUD.
type Graph struct {
	store Store
}

// New constructs a Graph over store (typically a *storage.DB).
func New(store Store) *Graph {
	return &Graph{store: store}
}

// RecordClaim creates a claim with a freshly generated ID if none was
// supplied, and aggregates its confidence before persisting (storage also
// aggregates, but doing it here too lets callers inspect Overall
// immediately without a round trip).
func (g *Graph) RecordClaim(ctx context.Context, c model.Claim) (model.Claim, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Confidence = c.Confidence.Aggregate()
	return g.store.CreateClaim(ctx, c)
}

// EffectiveConfidence returns claim's overall confidence after applying
// every currently active defeater against it, per Defeater.ApplyTo's
// monotonicity invariant (never increases confidence, never drops it below
// the defeater type's severity floor more than once per defeater).
func (g *Graph) EffectiveConfidence(ctx context.Context, claimID string) (float64, error) {
	c, err := g.store.GetClaim(ctx, claimID)
	if err != nil {
		return 0, fmt.Errorf("evidence: get claim: %w", err)
	}
	defeaters, err := g.store.GetActiveDefeatersForClaim(ctx, claimID)
	if err != nil {
		return 0, fmt.Errorf("evidence: get active defeaters: %w", err)
	}
	overall := c.Confidence.Overall
	for _, d := range defeaters {
		overall = d.ApplyTo(overall)
	}
	return overall, nil
}

// RaiseDefeater creates a defeater and immediately activates it, marking the
// affected claims stale. Most defeaters are detected automatically (a file
// changed, a test failed) and should take effect without a separate
// activation step from the caller's perspective.
func (g *Graph) RaiseDefeater(ctx context.Context, d model.Defeater) (model.Defeater, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.Status = model.DefeaterPending
	if err := g.store.CreateDefeater(ctx, d); err != nil {
		return model.Defeater{}, fmt.Errorf("evidence: create defeater: %w", err)
	}
	active, err := g.store.ActivateDefeater(ctx, d.ID)
	if err != nil {
		return model.Defeater{}, fmt.Errorf("evidence: activate defeater: %w", err)
	}
	for _, claimID := range active.AffectedClaimIDs {
		if err := g.store.UpdateClaimStatus(ctx, claimID, model.ClaimStale); err != nil {
			return model.Defeater{}, fmt.Errorf("evidence: mark claim %s stale: %w", claimID, err)
		}
	}
	return active, nil
}

// RecordContradiction appends a new contradiction and marks both claims
// disputed. This is the only automated write path; resolving a
// contradiction is a separate, explicit operation (ResolveContradiction)
// that no scoring path calls on its own.
func (g *Graph) RecordContradiction(ctx context.Context, c model.Contradiction) (model.Contradiction, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Status = model.ContradictionUnresolved
	if err := g.store.CreateContradiction(ctx, c); err != nil {
		return model.Contradiction{}, fmt.Errorf("evidence: create contradiction: %w", err)
	}
	for _, claimID := range []string{c.ClaimAID, c.ClaimBID} {
		if err := g.store.UpdateClaimStatus(ctx, claimID, model.ClaimDisputed); err != nil {
			return model.Contradiction{}, fmt.Errorf("evidence: mark claim %s disputed: %w", claimID, err)
		}
	}
	return c, nil
}

// ResolveContradiction closes a contradiction with an explicit resolution.
func (g *Graph) ResolveContradiction(ctx context.Context, id string, r model.Resolution) error {
	if err := g.store.ResolveContradiction(ctx, id, r); err != nil {
		return fmt.Errorf("evidence: resolve contradiction: %w", err)
	}
	return nil
}

// Meta computes the workspace-scoped graph health counters per spec.md
// §3's formula (see model.GraphMeta.ComputeHealth).
func (g *Graph) Meta(ctx context.Context) (model.GraphMeta, error) {
	claimCount, err := g.store.CountClaims(ctx)
	if err != nil {
		return model.GraphMeta{}, fmt.Errorf("evidence: count claims: %w", err)
	}
	activeDefeaters, err := g.store.CountActiveDefeaters(ctx)
	if err != nil {
		return model.GraphMeta{}, fmt.Errorf("evidence: count active defeaters: %w", err)
	}
	unresolved, err := g.store.CountUnresolvedContradictions(ctx)
	if err != nil {
		return model.GraphMeta{}, fmt.Errorf("evidence: count unresolved contradictions: %w", err)
	}
	meta := model.GraphMeta{
		ClaimCount:               claimCount,
		ActiveDefeaters:          activeDefeaters,
		UnresolvedContradictions: unresolved,
		ComputedAt:               time.Now().UTC(),
	}
	meta.Health = meta.ComputeHealth()
	return meta, nil
}
