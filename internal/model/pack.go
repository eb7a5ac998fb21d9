package model

import "time"

// PackType enumerates the kinds of context pack the retrieval/pipeline layer
// can produce. "knowledge.*" kinds (architecture, convention, decision) share
// the PackKnowledge prefix and carry a Subtype to distinguish them.
type PackType string

const (
	PackFunction     PackType = "function"
	PackModule       PackType = "module"
	PackChangeImpact PackType = "change_impact"
	PackPattern      PackType = "pattern"
	PackKnowledge    PackType = "knowledge"
)

// Pack is an immutable snapshot bound to a target entity. Per the design
// notes, the loose "duck-typed" payload of the source system is represented
// here as a tagged variant: Type selects which of the kind-specific structs
// in Data is populated; Serialize produces the single wire representation
// used everywhere a pack crosses a boundary (storage row, response JSON).
type Pack struct {
	ID                   string         `json:"id"`
	Type                 PackType       `json:"type"`
	Subtype              string         `json:"subtype,omitempty"`
	TargetID             string         `json:"target_id"`
	Summary              string         `json:"summary"`
	KeyFacts             []string       `json:"key_facts"`
	RelatedFiles         []string       `json:"related_files"`
	Confidence           float64        `json:"confidence"`
	CreatedAt            time.Time      `json:"created_at"`
	Version              string         `json:"version"`
	InvalidationTriggers []string       `json:"invalidation_triggers"`
	Invalidated          bool           `json:"invalidated"`
	AccessCount          int64          `json:"access_count"`
	OutcomeSuccesses     int64          `json:"outcome_successes"`
	OutcomeFailures      int64          `json:"outcome_failures"`
	ClaimIDs             []string       `json:"claim_ids,omitempty"`
	Data                 map[string]any `json:"data,omitempty"`
}

// OutcomeUsefulness returns the pack's historical usefulness in [0,1], or 0.5
// (neutral) when it has no recorded outcomes yet, computed from the outcome
// counters that reported outcomes increment.
func (p Pack) OutcomeUsefulness() float64 {
	total := p.OutcomeSuccesses + p.OutcomeFailures
	if total == 0 {
		return 0.5
	}
	return float64(p.OutcomeSuccesses) / float64(total)
}

// InvalidationTrigger names a reason a pack was (or should be) invalidated.
type InvalidationTrigger string

const (
	TriggerFileChanged  InvalidationTrigger = "file_changed"
	TriggerVersionBump  InvalidationTrigger = "version_bump"
	TriggerExplicitTag  InvalidationTrigger = "explicit_tag"
)

// EdgeType is the union of structural and argument edge kinds. Argument
// edges are a typed subset carrying extra epistemic semantics; conflict
// edges (contradicts/undermines/rebuts) are never averaged away during
// graph materialization.
type EdgeType string

const (
	EdgeImports       EdgeType = "imports"
	EdgeCalls         EdgeType = "calls"
	EdgeExtends       EdgeType = "extends"
	EdgeImplements    EdgeType = "implements"
	EdgeDependsOn     EdgeType = "depends_on"
	EdgeTests         EdgeType = "tests"
	EdgeDocuments     EdgeType = "documents"
	EdgePartOf        EdgeType = "part_of"
	EdgeCoChanged     EdgeType = "co_changed"
	EdgeSimilarTo     EdgeType = "similar_to"
	EdgeCloneOf       EdgeType = "clone_of"
	EdgeDebtRelated   EdgeType = "debt_related"
	EdgeAuthoredBy    EdgeType = "authored_by"
	EdgeReviewedBy    EdgeType = "reviewed_by"
	EdgeEvolvedFrom   EdgeType = "evolved_from"

	EdgeSupports           EdgeType = "supports"
	EdgeWarrants           EdgeType = "warrants"
	EdgeContradicts        EdgeType = "contradicts"
	EdgeUndermines         EdgeType = "undermines"
	EdgeRebuts             EdgeType = "rebuts"
	EdgeSupersedes         EdgeType = "supersedes"
	EdgeDependsOnDecision  EdgeType = "depends_on_decision"
)

// argumentEdgeTypes is the subset of EdgeType carrying epistemic semantics.
var argumentEdgeTypes = map[EdgeType]bool{
	EdgeSupports: true, EdgeWarrants: true, EdgeContradicts: true,
	EdgeUndermines: true, EdgeRebuts: true, EdgeSupersedes: true,
	EdgeDependsOnDecision: true,
}

// IsArgument reports whether e carries argument (epistemic) semantics rather
// than purely structural semantics.
func (e EdgeType) IsArgument() bool { return argumentEdgeTypes[e] }

// Edge is a knowledge-graph edge between two arena-keyed node IDs (§9 design
// note: graphs may be cyclic; nodes live in an ID-keyed arena, never owning
// pointers).
type Edge struct {
	SourceID   string     `json:"source_id"`
	TargetID   string     `json:"target_id"`
	Type       EdgeType   `json:"type"`
	Weight     float64    `json:"weight"`
	Confidence float64    `json:"confidence"`
	ComputedAt time.Time  `json:"computed_at"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
