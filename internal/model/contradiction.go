package model

import "time"

// ContradictionStatus. Resolution never deletes a contradiction — see
// Resolution below and the "no silent contradiction collapse" invariant.
type ContradictionStatus string

const (
	ContradictionUnresolved ContradictionStatus = "unresolved"
	ContradictionResolved   ContradictionStatus = "resolved"
)

// Resolution records how a Contradiction was closed. It is only ever
// attached by an explicit, privileged call (ResolveContradiction) — never by
// any automated claim-ingestion or scoring path.
type Resolution struct {
	Method     string    `json:"method"`
	Tradeoff   *string   `json:"tradeoff,omitempty"`
	Explanation string   `json:"explanation"`
	ResolverID string    `json:"resolver_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Contradiction records that two claims are mutually inconsistent. Rows are
// append-only: automated paths may create them but may never delete or
// silently flip Status to resolved.
type Contradiction struct {
	ID          string               `json:"id"`
	ClaimAID    string               `json:"claim_a_id"`
	ClaimBID    string               `json:"claim_b_id"`
	Type        string               `json:"type"`
	Explanation string               `json:"explanation"`
	Severity    DefeaterSeverity     `json:"severity"`
	Status      ContradictionStatus  `json:"status"`
	Resolution  *Resolution          `json:"resolution,omitempty"`
	DetectedAt  time.Time            `json:"detected_at"`
}

// GraphMeta is workspace-scoped evidence graph health bookkeeping,
// recomputed on each full-graph materialization.
type GraphMeta struct {
	ClaimCount               int     `json:"claim_count"`
	ActiveDefeaters          int     `json:"active_defeaters"`
	UnresolvedContradictions int     `json:"unresolved_contradictions"`
	Health                   float64 `json:"health"`
	ComputedAt               time.Time `json:"computed_at"`
}

// ComputeHealth implements §3's formula:
//
//	health = max(0, 1 − min(1, activeDefeaters/max(10, 0.1·claimCount))·0.3
//	                − min(1, unresolvedContradictions/5)·0.3)
func (m GraphMeta) ComputeHealth() float64 {
	denom := 0.1 * float64(m.ClaimCount)
	if denom < 10 {
		denom = 10
	}
	defeaterPenalty := float64(m.ActiveDefeaters) / denom
	if defeaterPenalty > 1 {
		defeaterPenalty = 1
	}
	contradictionPenalty := float64(m.UnresolvedContradictions) / 5
	if contradictionPenalty > 1 {
		contradictionPenalty = 1
	}
	health := 1 - defeaterPenalty*0.3 - contradictionPenalty*0.3
	if health < 0 {
		health = 0
	}
	return health
}
