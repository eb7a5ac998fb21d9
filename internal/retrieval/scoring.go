package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// Facets names the multi-vector representation's named sub-vectors, each
// scored independently and combined with FacetWeights before being folded
// into the combined score as multiVectorScore.
type Facets struct {
	Semantic []float32
	Lexical  []float32
	Purpose  []float32
}

// FacetWeights are the per-facet weights applied when computing
// multiVectorScore. Default favors semantic and purpose over lexical, since
// lexical overlap is already captured more precisely by keywordScore.
type FacetWeights struct {
	Semantic float64
	Lexical  float64
	Purpose  float64
}

// DefaultFacetWeights matches the teacher's weighted-subscore convention
// (named, documented weights summing to 1.0).
var DefaultFacetWeights = FacetWeights{Semantic: 0.5, Lexical: 0.2, Purpose: 0.3}

// Candidate is one file (or function/module) under consideration, carrying
// everything scoring needs: its facet vectors, keyword tokens, and its
// knowledge-graph distance from the query's seed set (used by the
// adversarial penalty).
type Candidate struct {
	TargetID     string
	Facets       Facets
	Keywords     []string
	GraphDepth   int  // BFS hops from the nearest seed; -1 if unreachable
	IsTestOrVendor bool
}

// Scored is a candidate after combined scoring, before cross-encoder rerank.
type Scored struct {
	TargetID        string
	MultiVectorScore float64
	SemanticScore   float64
	KeywordScore    float64
	CoChangeBoost   float64
	AdversarialPenalty float64
	CombinedScore   float64
	MatchedAspects  int
}

// queryMatchedAspectThreshold is the cosine similarity a single facet must
// clear to count as a "matched aspect" for multiVectorScore's tie-break.
const queryMatchedAspectThreshold = 0.3

// adversarialPenalty is applied when a candidate scores well semantically
// but sits far from the query's seed set in the dependency graph — a
// classic test/vendor look-alike false positive (§4.3).
const adversarialPenalty = 0.7

// adversarialGraphDistanceThreshold is the minimum BFS depth, combined with
// a high semantic score, that triggers the adversarial penalty.
const adversarialGraphDistanceThreshold = 3

// ScoreCandidates computes the combined score for every candidate against
// queryFacets and queryKeywords, applies the co-change boost from cm, and
// returns candidates sorted descending by combined score.
func ScoreCandidates(ctx context.Context, candidates []Candidate, queryFacets Facets, queryKeywords []string, weights FacetWeights, cm *CoChangeMatrix, topKPaths []string) []Scored {
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return out
		default:
		}

		multiVector, matched := multiVectorScore(c.Facets, queryFacets, weights)
		semantic := cosineSimilarity(c.Facets.Semantic, queryFacets.Semantic)
		keyword := keywordOverlap(c.Keywords, queryKeywords)

		coChange := 0.0
		if cm != nil {
			coChange = cm.Boost(c.TargetID, topKPaths)
		}

		combined := 0.4*multiVector + 0.3*semantic + 0.2*keyword + 0.1*coChange

		penalty := 1.0
		if semantic > 0.6 && c.GraphDepth >= adversarialGraphDistanceThreshold && c.IsTestOrVendor {
			penalty = adversarialPenalty
		}

		out = append(out, Scored{
			TargetID:           c.TargetID,
			MultiVectorScore:   multiVector,
			SemanticScore:      semantic,
			KeywordScore:       keyword,
			CoChangeBoost:      coChange,
			AdversarialPenalty: penalty,
			CombinedScore:      combined * penalty,
			MatchedAspects:     matched,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CombinedScore != out[j].CombinedScore {
			return out[i].CombinedScore > out[j].CombinedScore
		}
		return out[i].MatchedAspects > out[j].MatchedAspects
	})
	return out
}

// multiVectorScore combines the three named facets under weights, returning
// both the weighted score and the count of facets that individually cleared
// queryMatchedAspectThreshold (the tie-break named in §4.3).
func multiVectorScore(c, q Facets, weights FacetWeights) (float64, int) {
	matched := 0
	score := 0.0

	if sim := cosineSimilarity(c.Semantic, q.Semantic); sim > 0 {
		score += weights.Semantic * sim
		if sim >= queryMatchedAspectThreshold {
			matched++
		}
	}
	if sim := cosineSimilarity(c.Lexical, q.Lexical); sim > 0 {
		score += weights.Lexical * sim
		if sim >= queryMatchedAspectThreshold {
			matched++
		}
	}
	if sim := cosineSimilarity(c.Purpose, q.Purpose); sim > 0 {
		score += weights.Purpose * sim
		if sim >= queryMatchedAspectThreshold {
			matched++
		}
	}
	return score, matched
}

// keywordOverlap scores identifier and metadata overlap between a
// candidate's extracted keywords and the query's keywords as a Jaccard
// coefficient over the two token sets.
func keywordOverlap(candidateTokens, queryTokens []string) float64 {
	if len(candidateTokens) == 0 || len(queryTokens) == 0 {
		return 0
	}
	set := make(map[string]bool, len(candidateTokens))
	for _, t := range candidateTokens {
		set[strings.ToLower(t)] = true
	}
	qset := make(map[string]bool, len(queryTokens))
	for _, t := range queryTokens {
		qset[strings.ToLower(t)] = true
	}

	intersection := 0
	for t := range qset {
		if set[t] {
			intersection++
		}
	}
	union := len(set) + len(qset) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ToPacks converts the top-ranked Scored candidates into Pack skeletons
// (summary/confidence fields populated, evidence/claim binding done
// downstream by internal/evidence). The execution pipeline does not call
// it; it resolves scored candidates to stored packs itself.
func ToPacks(scored []Scored, kind model.PackType) []model.Pack {
	packs := make([]model.Pack, 0, len(scored))
	for _, s := range scored {
		packs = append(packs, model.Pack{
			TargetID:   s.TargetID,
			Type:       kind,
			Confidence: clampConfidence(s.CombinedScore),
		})
	}
	return packs
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
