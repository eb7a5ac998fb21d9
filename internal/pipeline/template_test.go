package pipeline

import (
	"testing"

	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestResolveTemplate_KnownTaskType(t *testing.T) {
	tmpl, disclosure := resolveTemplate("verify")
	assert.Equal(t, model.TemplateVerificationPlan, tmpl.ID)
	assert.Empty(t, disclosure)
}

func TestResolveTemplate_UnknownTaskTypeFallsBackWithDisclosure(t *testing.T) {
	tmpl, disclosure := resolveTemplate("something_unheard_of")
	assert.Equal(t, model.DefaultTemplate, tmpl.ID)
	assert.NotEmpty(t, disclosure)
	assert.Contains(t, disclosure, "unverified_by_trace(adequacy_unavailable)")
}

func TestResolveTemplate_EmptyTaskTypeFallsBack(t *testing.T) {
	tmpl, disclosure := resolveTemplate("")
	assert.Equal(t, model.DefaultTemplate, tmpl.ID)
	assert.NotEmpty(t, disclosure)
}

func TestTemplateRegistry_CoversAllTwelveTemplates(t *testing.T) {
	ids := []model.TemplateID{
		model.TemplateRepoMap, model.TemplateEditContext, model.TemplateChangeImpact,
		model.TemplateVerificationPlan, model.TemplateArchitectureMap, model.TemplatePatternSurvey,
		model.TemplateDependencyTrace, model.TemplateOwnershipMap, model.TemplateRiskAssessment,
		model.TemplateOnboarding, model.TemplateRegressionScope, model.TemplateConventionCheck,
	}
	for _, id := range ids {
		tmpl, ok := templateRegistry[id]
		assert.True(t, ok, "missing template %s", id)
		assert.NotEmpty(t, tmpl.RequiredKinds, "template %s declares no required kinds", id)
	}
}
