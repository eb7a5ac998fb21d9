package retrieval

import (
	"context"
	"fmt"
)

// Options controls one Retrieve call's scoring and rerank behavior. Zero
// value is not usable; callers should start from DefaultOptions.
type Options struct {
	FacetWeights FacetWeights
	CoChange     *CoChangeMatrix
	SeedPaths    []string // files already touched this session; feeds the co-change boost

	Rerank      CrossEncoder // nil disables the rerank stage
	RerankTopK  int
	ReturnTopK  int
	MinScore    float64
}

// DefaultOptions matches the teacher's "safe defaults, explicit override"
// convention: default facet weights, no co-change/rerank unless supplied,
// top 50 scored before rerank, top 10 returned, no minimum score floor.
func DefaultOptions() Options {
	return Options{
		FacetWeights: DefaultFacetWeights,
		RerankTopK:   50,
		ReturnTopK:   10,
		MinScore:     0,
	}
}

// Query is a resolved retrieval query: the caller's intent already embedded
// into facet vectors and tokenized into keywords by the embedding/indexer
// layers.
type Query struct {
	Text     string
	Facets   Facets
	Keywords []string
}

// Retrieve scores candidates against q, optionally reranks with a
// cross-encoder, and returns the final ranked slice. candidateText is only
// required when opts.Rerank is non-nil (see Rerank).
func Retrieve(ctx context.Context, q Query, candidates []Candidate, candidateText map[string]string, opts Options) ([]Scored, error) {
	if len(q.Facets.Semantic) == 0 {
		return nil, fmt.Errorf("retrieval: query has no semantic vector")
	}
	if opts.ReturnTopK <= 0 {
		return nil, fmt.Errorf("retrieval: ReturnTopK must be positive")
	}

	scored := ScoreCandidates(ctx, candidates, q.Facets, q.Keywords, opts.FacetWeights, opts.CoChange, opts.SeedPaths)

	rerankTopK := opts.RerankTopK
	if rerankTopK <= 0 {
		rerankTopK = len(scored)
	}
	return Rerank(ctx, opts.Rerank, q.Text, scored, candidateText, rerankTopK, opts.ReturnTopK, opts.MinScore)
}
