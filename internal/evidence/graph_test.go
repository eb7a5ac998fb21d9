package evidence

import (
	"context"
	"testing"
	"time"

	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/storage"
)

type fakeStore struct {
	edges         []model.Edge
	claims        map[string]model.Claim
	defeaters     map[string]model.Defeater
	contradictions map[string]model.Contradiction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		claims:         make(map[string]model.Claim),
		defeaters:      make(map[string]model.Defeater),
		contradictions: make(map[string]model.Contradiction),
	}
}

func (f *fakeStore) UpsertEdges(_ context.Context, edges []model.Edge) error {
	f.edges = append(f.edges, edges...)
	return nil
}

func (f *fakeStore) GetKnowledgeEdgesFrom(_ context.Context, nodeID string) ([]model.Edge, error) {
	var out []model.Edge
	for _, e := range f.edges {
		if e.SourceID == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetKnowledgeEdgesTo(_ context.Context, nodeID string) ([]model.Edge, error) {
	var out []model.Edge
	for _, e := range f.edges {
		if e.TargetID == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAllEdges(_ context.Context) ([]model.Edge, error) {
	return f.edges, nil
}

func (f *fakeStore) CreateClaim(_ context.Context, c model.Claim) (model.Claim, error) {
	f.claims[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetClaim(_ context.Context, id string) (model.Claim, error) {
	c, ok := f.claims[id]
	if !ok {
		return model.Claim{}, &model.StorageError{Op: "get claim", Err: storage.ErrNotFound}
	}
	return c, nil
}

func (f *fakeStore) GetClaimsBySubject(_ context.Context, subjectType, subjectID string) ([]model.Claim, error) {
	var out []model.Claim
	for _, c := range f.claims {
		if c.Subject.Type == subjectType && c.Subject.ID == subjectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateClaimStatus(_ context.Context, id string, status model.ClaimStatus) error {
	c, ok := f.claims[id]
	if !ok {
		return nil
	}
	c.Status = status
	f.claims[id] = c
	return nil
}

func (f *fakeStore) CountClaims(_ context.Context) (int, error) {
	return len(f.claims), nil
}

func (f *fakeStore) CreateDefeater(_ context.Context, d model.Defeater) error {
	f.defeaters[d.ID] = d
	return nil
}

func (f *fakeStore) ActivateDefeater(_ context.Context, id string) (model.Defeater, error) {
	d := f.defeaters[id]
	d.Status = model.DefeaterActive
	f.defeaters[id] = d
	return d, nil
}

func (f *fakeStore) GetActiveDefeatersForClaim(_ context.Context, claimID string) ([]model.Defeater, error) {
	var out []model.Defeater
	for _, d := range f.defeaters {
		if d.Status != model.DefeaterActive {
			continue
		}
		for _, id := range d.AffectedClaimIDs {
			if id == claimID {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CountActiveDefeaters(_ context.Context) (int, error) {
	n := 0
	for _, d := range f.defeaters {
		if d.Status == model.DefeaterActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateContradiction(_ context.Context, c model.Contradiction) error {
	f.contradictions[c.ID] = c
	return nil
}

func (f *fakeStore) ResolveContradiction(_ context.Context, id string, r model.Resolution) error {
	c, ok := f.contradictions[id]
	if !ok {
		return nil
	}
	c.Status = model.ContradictionResolved
	c.Resolution = &r
	f.contradictions[id] = c
	return nil
}

func (f *fakeStore) GetContradictionsForClaim(_ context.Context, claimID string) ([]model.Contradiction, error) {
	var out []model.Contradiction
	for _, c := range f.contradictions {
		if c.ClaimAID == claimID || c.ClaimBID == claimID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CountUnresolvedContradictions(_ context.Context) (int, error) {
	n := 0
	for _, c := range f.contradictions {
		if c.Status == model.ContradictionUnresolved {
			n++
		}
	}
	return n, nil
}

func TestRecordClaim_GeneratesIDAndAggregates(t *testing.T) {
	g := New(newFakeStore())
	c, err := g.RecordClaim(context.Background(), model.Claim{
		Proposition: "foo calls bar",
		Confidence:  model.Confidence{Retrieval: 0.8, Structural: 0.8, Semantic: 0.8, TestExecution: 0.8, Recency: 0.8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected generated ID")
	}
	if c.Confidence.Overall <= 0 {
		t.Fatal("expected aggregated overall confidence")
	}
}

func TestEffectiveConfidence_AppliesActiveDefeater(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	ctx := context.Background()

	c, _ := g.RecordClaim(ctx, model.Claim{
		ID:         "c1",
		Confidence: model.Confidence{Retrieval: 0.9, Structural: 0.9, Semantic: 0.9, TestExecution: 0.9, Recency: 0.9},
	})

	_, err := g.RaiseDefeater(ctx, model.Defeater{
		ID:                  "d1",
		Type:                model.DefeaterStaleness,
		AffectedClaimIDs:    []string{"c1"},
		ConfidenceReduction: 0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eff, err := g.EffectiveConfidence(ctx, "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eff >= c.Confidence.Overall {
		t.Fatalf("expected reduced confidence, got %f (original %f)", eff, c.Confidence.Overall)
	}

	stored := store.claims["c1"]
	if stored.Status != model.ClaimStale {
		t.Fatalf("expected claim marked stale, got %s", stored.Status)
	}
}

func TestRecordContradiction_MarksBothClaimsDisputed(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	ctx := context.Background()

	store.claims["a"] = model.Claim{ID: "a", Status: model.ClaimActive}
	store.claims["b"] = model.Claim{ID: "b", Status: model.ClaimActive}

	_, err := g.RecordContradiction(ctx, model.Contradiction{ClaimAID: "a", ClaimBID: "b", DetectedAt: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.claims["a"].Status != model.ClaimDisputed || store.claims["b"].Status != model.ClaimDisputed {
		t.Fatalf("expected both claims disputed, got %s / %s", store.claims["a"].Status, store.claims["b"].Status)
	}
}

func TestMeta_ComputesHealth(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.claims[string(rune('a'+i))] = model.Claim{ID: string(rune('a' + i))}
	}
	meta, err := g.Meta(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.ClaimCount != 5 {
		t.Fatalf("expected 5 claims, got %d", meta.ClaimCount)
	}
	if meta.Health != 1.0 {
		t.Fatalf("expected perfect health with no defeaters/contradictions, got %f", meta.Health)
	}
}

func TestTraverseFrom_BFSRespectsDepthAndEdgeTypeFilter(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	ctx := context.Background()

	store.edges = []model.Edge{
		{SourceID: "a", TargetID: "b", Type: model.EdgeImports},
		{SourceID: "b", TargetID: "c", Type: model.EdgeCalls},
		{SourceID: "a", TargetID: "d", Type: model.EdgeContradicts},
	}

	all, err := g.TraverseFrom(ctx, []string{"a"}, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 nodes (a,b,c,d), got %v", all)
	}

	onlyImports, err := g.TraverseFrom(ctx, []string{"a"}, 2, []model.EdgeType{model.EdgeImports})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(onlyImports) != 2 {
		t.Fatalf("expected 2 nodes (a,b) with imports-only filter, got %v", onlyImports)
	}

	shallow, err := g.TraverseFrom(ctx, []string{"a"}, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shallow) != 1 {
		t.Fatalf("expected only seed at depth 0, got %v", shallow)
	}
}

func TestFindPath_ShortestPath(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	ctx := context.Background()

	store.edges = []model.Edge{
		{SourceID: "a", TargetID: "b", Type: model.EdgeImports},
		{SourceID: "b", TargetID: "c", Type: model.EdgeImports},
		{SourceID: "a", TargetID: "c", Type: model.EdgeCalls},
	}

	path, err := g.FindPath(ctx, "a", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 2 || path[0] != "a" || path[1] != "c" {
		t.Fatalf("expected direct shortest path [a c], got %v", path)
	}
}

func TestFindPath_NoPathReturnsNil(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	path, err := g.FindPath(context.Background(), "a", "z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != nil {
		t.Fatalf("expected nil path, got %v", path)
	}
}

func TestGetFullGraph_IncludesMeta(t *testing.T) {
	store := newFakeStore()
	g := New(store)
	store.edges = []model.Edge{{SourceID: "a", TargetID: "b", Type: model.EdgeImports}}

	fg, err := g.GetFullGraph(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fg.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(fg.Edges))
	}
	if fg.Meta.ComputedAt.IsZero() {
		t.Fatal("expected meta ComputedAt to be set")
	}
}
