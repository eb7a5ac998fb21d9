package retrieval

import (
	"context"
	"sort"
)

// CrossEncoder scores a (query, candidate) pair jointly, giving a sharper
// relevance signal than the independently-computed facet scores at the
// cost of one call per rerank candidate. Optional: Retrieve works fine
// with a nil CrossEncoder, skipping the rerank stage entirely.
type CrossEncoder interface {
	// Score returns a relevance score in [0,1] for candidateText against
	// queryText.
	Score(ctx context.Context, queryText, candidateText string) (float64, error)
}

// rerankCrossEncoderWeight blends the cross-encoder score against the
// candidate's pre-rerank rank position (normalized to [0,1], 1.0 for the
// top-ranked candidate) so that a cross-encoder failure or low-signal
// score for one item doesn't override an otherwise strong multi-stage
// ranking outright.
const rerankCrossEncoderWeight = 0.7

// Rerank re-scores the top rerankTopK of scored (already sorted descending
// by CombinedScore) using enc, blends the cross-encoder score with the
// candidate's prior rank position, re-sorts, and returns the top
// returnTopK entries whose blended score is >= minScore. candidateText
// must be supplied for each of the top rerankTopK entries, indexed by
// TargetID; entries missing from that map are skipped during rerank (but
// still eligible to appear beyond rerankTopK if enc is nil).
func Rerank(ctx context.Context, enc CrossEncoder, queryText string, scored []Scored, candidateText map[string]string, rerankTopK, returnTopK int, minScore float64) ([]Scored, error) {
	if enc == nil {
		return truncate(scored, returnTopK, minScore), nil
	}
	if rerankTopK > len(scored) {
		rerankTopK = len(scored)
	}

	head := make([]Scored, rerankTopK)
	copy(head, scored[:rerankTopK])

	for i := range head {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		text, ok := candidateText[head[i].TargetID]
		if !ok {
			continue
		}
		ceScore, err := enc.Score(ctx, queryText, text)
		if err != nil {
			continue
		}
		rankPosition := 1.0 - float64(i)/float64(max(rerankTopK, 1))
		head[i].CombinedScore = rerankCrossEncoderWeight*ceScore + (1-rerankCrossEncoderWeight)*rankPosition
	}

	sort.Slice(head, func(i, j int) bool {
		return head[i].CombinedScore > head[j].CombinedScore
	})

	merged := append(head, scored[rerankTopK:]...)
	return truncate(merged, returnTopK, minScore), nil
}

func truncate(scored []Scored, topK int, minScore float64) []Scored {
	out := make([]Scored, 0, topK)
	for _, s := range scored {
		if len(out) >= topK {
			break
		}
		if s.CombinedScore < minScore {
			continue
		}
		out = append(out, s)
	}
	return out
}
