package model

import "fmt"

// Depth is the caller-requested thoroughness tier for a query.
type Depth string

const (
	DepthL0 Depth = "L0"
	DepthL1 Depth = "L1"
	DepthL2 Depth = "L2"
	DepthL3 Depth = "L3"
)

// LLMRequirement controls whether synthesis may, must, or must not call an
// LLM provider.
type LLMRequirement string

const (
	LLMRequired LLMRequirement = "required"
	LLMOptional LLMRequirement = "optional"
	LLMDisabled LLMRequirement = "disabled"
)

// UCRequirements names use-case IDs the caller expects the response to
// satisfy; currently advisory (surfaced in ledger entries), not enforced.
type UCRequirements struct {
	UCIDs []string `json:"uc_ids"`
}

// QueryRequest is the logical request described in §6.
type QueryRequest struct {
	Intent         string          `json:"intent"`
	Depth          Depth           `json:"depth"`
	TaskType       string          `json:"task_type,omitempty"`
	LLMRequirement LLMRequirement  `json:"llm_requirement,omitempty"`
	AffectedFiles  []string        `json:"affected_files,omitempty"`
	UCRequirements *UCRequirements `json:"uc_requirements,omitempty"`
	MinConfidence  *float64        `json:"min_confidence,omitempty"`
}

// TemplateID enumerates the twelve construction templates (T1..T12). Names
// are given to the ones the spec calls out by example; the remainder are
// reserved for future intent classes and default to the generic shape.
type TemplateID string

const (
	TemplateRepoMap          TemplateID = "T1"
	TemplateEditContext      TemplateID = "T2"
	TemplateChangeImpact     TemplateID = "T3"
	TemplateVerificationPlan TemplateID = "T4"
	TemplateArchitectureMap  TemplateID = "T5"
	TemplatePatternSurvey    TemplateID = "T6"
	TemplateDependencyTrace  TemplateID = "T7"
	TemplateOwnershipMap     TemplateID = "T8"
	TemplateRiskAssessment   TemplateID = "T9"
	TemplateOnboarding       TemplateID = "T10"
	TemplateRegressionScope  TemplateID = "T11"
	TemplateConventionCheck  TemplateID = "T12"
)

// DefaultTemplate is used when no intent resolver is configured or the
// resolver can't classify the intent (with a disclosure appended — see
// spec.md §4.6 step 3).
const DefaultTemplate = TemplateRepoMap

// ObjectKind names a class of object a ConstructionTemplate may require.
type ObjectKind string

const (
	ObjectRepoFact ObjectKind = "repo_fact"
	ObjectMap      ObjectKind = "map"
	ObjectPack     ObjectKind = "pack"
	ObjectEpisode  ObjectKind = "episode"
	ObjectClaim    ObjectKind = "claim"
)

// ConstructionTemplate declares what a class of intent requires to be
// considered adequately answered.
type ConstructionTemplate struct {
	ID                TemplateID   `json:"id"`
	Name              string       `json:"name"`
	RequiredKinds     []ObjectKind `json:"required_kinds"`
	RequiredArtifacts []string     `json:"required_artifacts"`
}

// Capability names an optional or required collaborator the pipeline depends
// on for a given query (e.g. "llm:chat", "storage:sqlite").
type Capability string

// CapabilityReport is the result of enforcing a capability contract.
type CapabilityReport struct {
	Satisfied bool       `json:"satisfied"`
	Missing   []Capability `json:"missing"`
	Degraded  *string    `json:"degraded,omitempty"`
}

// Synthesis is the LLM- (or quick-answer-) produced answer.
type Synthesis struct {
	Answer        string   `json:"answer"`
	Confidence    float64  `json:"confidence"`
	Citations     []string `json:"citations"`
	KeyInsights   []string `json:"key_insights,omitempty"`
	Uncertainties []string `json:"uncertainties,omitempty"`
	Unstructured  bool     `json:"-"`
}

// Adequacy is the result of verifying pack/claim coverage against the
// resolved template's requirements.
type Adequacy struct {
	Spec            TemplateID `json:"spec"`
	Blocking        bool       `json:"blocking"`
	MissingEvidence []string   `json:"missing_evidence,omitempty"`
	Difficulties    []string   `json:"difficulties,omitempty"`
}

// Stage is one observed transition of the pipeline's per-query state
// machine, as emitted by the stage observer.
type Stage struct {
	Stage      string `json:"stage"`
	DurationMs int64  `json:"duration_ms"`
}

// ConstructionPlan names the resolved template for a response.
type ConstructionPlan struct {
	TemplateID TemplateID `json:"template_id"`
}

// DisclosureCode enumerates the reserved disclosure codes from §6.
type DisclosureCode string

const (
	DisclosureReplayUnavailable       DisclosureCode = "replay_unavailable"
	DisclosureProviderUnavailable     DisclosureCode = "provider_unavailable"
	DisclosureCapabilityMissing       DisclosureCode = "capability_missing"
	DisclosureAdequacyUnavailable     DisclosureCode = "adequacy_unavailable"
	DisclosureStalenessDefeater       DisclosureCode = "staleness_defeater"
	DisclosureSynthesisUnstructured   DisclosureCode = "synthesis_unstructured"
	DisclosureConflictObjectsRequired DisclosureCode = "conflict_objects_required"
	DisclosureOversizedInputTruncated DisclosureCode = "oversized_input_truncated"
)

// Disclosure formats a non-fatal, machine-readable disclosure string of the
// shape unverified_by_trace(<code>): <detail>.
func Disclosure(code DisclosureCode, detail string) string {
	return fmt.Sprintf("unverified_by_trace(%s): %s", code, detail)
}

// QueryResponse is the logical response described in §6.
type QueryResponse struct {
	TraceID          string            `json:"traceId"`
	Packs            []Pack            `json:"packs"`
	TotalConfidence  float64           `json:"totalConfidence"`
	Synthesis        *Synthesis        `json:"synthesis,omitempty"`
	Adequacy         *Adequacy         `json:"adequacy,omitempty"`
	Disclosures      []string          `json:"disclosures"`
	Stages           []Stage           `json:"stages,omitempty"`
	LatencyMs        int64             `json:"latencyMs"`
	CacheHit         bool              `json:"cacheHit"`
	ConstructionPlan *ConstructionPlan `json:"constructionPlan,omitempty"`
	Version          string            `json:"version"`
}

// OutcomeReport is the feedback-loop payload from §4.6.
type OutcomeReport struct {
	TraceID       string   `json:"trace_id"`
	Success       bool     `json:"success"`
	FilesModified []string `json:"files_modified,omitempty"`
	Usefulness    float64  `json:"usefulness"`
	CitedPackIDs  []string `json:"cited_pack_ids"`
}
