package pipeline

import "github.com/nateschmiedehaus/librarian/internal/model"

// Capability names recognized by the contract enforced in §4.6 step 4.
const (
	CapabilityLLMChat      model.Capability = "llm:chat"
	CapabilityStorage      model.Capability = "storage:sqlite"
	CapabilityEmbedding    model.Capability = "embedding:provider"
	CapabilityRerank       model.Capability = "retrieval:rerank"
)

// requiredCapabilities names the capabilities every query depends on
// regardless of LLM requirement; llm:chat is added conditionally by
// enforceCapabilities based on the request's LLMRequirement.
var requiredCapabilities = []model.Capability{CapabilityStorage}

// enforceCapabilities checks req's capability needs against the set the
// pipeline was constructed with. Missing required capabilities produce a
// non-nil *model.CapabilityMissingError; missing optional ones (llm:chat
// when not required, rerank) are reported as "degraded" only, with the first
// missing one named. Embedding availability is not checked here.
func enforceCapabilities(available map[model.Capability]bool, req model.QueryRequest) (model.CapabilityReport, error) {
	required := append([]model.Capability{}, requiredCapabilities...)
	if req.LLMRequirement == model.LLMRequired {
		required = append(required, CapabilityLLMChat)
	}

	var missing []model.Capability
	for _, cap := range required {
		if !available[cap] {
			missing = append(missing, cap)
		}
	}
	if len(missing) > 0 {
		return model.CapabilityReport{Satisfied: false, Missing: missing}, &model.CapabilityMissingError{Missing: missing}
	}

	var degraded *string
	if req.LLMRequirement != model.LLMDisabled && !available[CapabilityLLMChat] {
		reason := "llm:chat unavailable, synthesis will fall back to an unstructured summary"
		degraded = &reason
	}
	if !available[CapabilityRerank] && degraded == nil {
		reason := "retrieval:rerank unavailable, results are not cross-encoder reranked"
		degraded = &reason
	}

	return model.CapabilityReport{Satisfied: true, Degraded: degraded}, nil
}
