package pipeline

import "github.com/nateschmiedehaus/librarian/internal/model"

// templateRegistry declares what each construction template requires to be
// considered adequately answered (§4.6 step 8). Kept as a package-level map
// rather than a storage-backed registry since the twelve templates are a
// fixed taxonomy, not workspace data.
var templateRegistry = map[model.TemplateID]model.ConstructionTemplate{
	model.TemplateRepoMap: {
		ID: model.TemplateRepoMap, Name: "Repo Map",
		RequiredKinds:     []model.ObjectKind{model.ObjectMap},
		RequiredArtifacts: []string{"work_objects"},
	},
	model.TemplateEditContext: {
		ID: model.TemplateEditContext, Name: "Edit Context",
		RequiredKinds:     []model.ObjectKind{model.ObjectPack, model.ObjectClaim},
		RequiredArtifacts: []string{"work_objects"},
	},
	model.TemplateChangeImpact: {
		ID: model.TemplateChangeImpact, Name: "Change Impact",
		RequiredKinds:     []model.ObjectKind{model.ObjectPack, model.ObjectMap},
		RequiredArtifacts: []string{"work_objects"},
	},
	model.TemplateVerificationPlan: {
		ID: model.TemplateVerificationPlan, Name: "Verification Plan",
		RequiredKinds:     []model.ObjectKind{model.ObjectPack, model.ObjectClaim, model.ObjectEpisode},
		RequiredArtifacts: []string{"work_objects", "adequacy_report"},
	},
	model.TemplateArchitectureMap: {
		ID: model.TemplateArchitectureMap, Name: "Architecture Map",
		RequiredKinds:     []model.ObjectKind{model.ObjectMap, model.ObjectRepoFact},
		RequiredArtifacts: []string{"work_objects"},
	},
	model.TemplatePatternSurvey: {
		ID: model.TemplatePatternSurvey, Name: "Pattern Survey",
		RequiredKinds:     []model.ObjectKind{model.ObjectPack},
		RequiredArtifacts: []string{"work_objects"},
	},
	model.TemplateDependencyTrace: {
		ID: model.TemplateDependencyTrace, Name: "Dependency Trace",
		RequiredKinds:     []model.ObjectKind{model.ObjectMap, model.ObjectPack},
		RequiredArtifacts: []string{"work_objects"},
	},
	model.TemplateOwnershipMap: {
		ID: model.TemplateOwnershipMap, Name: "Ownership Map",
		RequiredKinds:     []model.ObjectKind{model.ObjectRepoFact},
		RequiredArtifacts: []string{"work_objects"},
	},
	model.TemplateRiskAssessment: {
		ID: model.TemplateRiskAssessment, Name: "Risk Assessment",
		RequiredKinds:     []model.ObjectKind{model.ObjectPack, model.ObjectClaim},
		RequiredArtifacts: []string{"work_objects", "adequacy_report"},
	},
	model.TemplateOnboarding: {
		ID: model.TemplateOnboarding, Name: "Onboarding",
		RequiredKinds:     []model.ObjectKind{model.ObjectMap, model.ObjectRepoFact},
		RequiredArtifacts: []string{"work_objects"},
	},
	model.TemplateRegressionScope: {
		ID: model.TemplateRegressionScope, Name: "Regression Scope",
		RequiredKinds:     []model.ObjectKind{model.ObjectPack, model.ObjectEpisode},
		RequiredArtifacts: []string{"work_objects", "adequacy_report"},
	},
	model.TemplateConventionCheck: {
		ID: model.TemplateConventionCheck, Name: "Convention Check",
		RequiredKinds:     []model.ObjectKind{model.ObjectPack, model.ObjectRepoFact},
		RequiredArtifacts: []string{"work_objects"},
	},
}

// taskTypeTemplates maps the caller-supplied task_type hint onto a template.
// Hints not present here fall back to DefaultTemplate with a disclosure.
var taskTypeTemplates = map[string]model.TemplateID{
	"repo_map":          model.TemplateRepoMap,
	"edit":              model.TemplateEditContext,
	"change_impact":     model.TemplateChangeImpact,
	"verify":            model.TemplateVerificationPlan,
	"verification":      model.TemplateVerificationPlan,
	"architecture":      model.TemplateArchitectureMap,
	"pattern":           model.TemplatePatternSurvey,
	"dependency":        model.TemplateDependencyTrace,
	"ownership":         model.TemplateOwnershipMap,
	"risk":              model.TemplateRiskAssessment,
	"onboarding":        model.TemplateOnboarding,
	"regression":        model.TemplateRegressionScope,
	"review":            model.TemplateConventionCheck,
	"convention":        model.TemplateConventionCheck,
}

// resolveTemplate selects a construction template from the request's
// task_type hint, falling back to model.DefaultTemplate with a disclosure
// when the hint is absent or unrecognized (§4.6 step 3).
func resolveTemplate(taskType string) (model.ConstructionTemplate, string) {
	id, ok := taskTypeTemplates[taskType]
	if !ok {
		return templateRegistry[model.DefaultTemplate], model.Disclosure(model.DisclosureAdequacyUnavailable,
			"no intent resolver matched task_type, defaulted to repo map template")
	}
	return templateRegistry[id], ""
}
