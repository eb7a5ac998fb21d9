package pipeline

import (
	"testing"

	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestComputeAdequacy_AllRequirementsMetIsNotBlocking(t *testing.T) {
	tmpl := templateRegistry[model.TemplateEditContext]
	present := presentKinds{packs: 2, claims: 1}
	adequacy := computeAdequacy(tmpl, present, map[string]bool{"work_objects": true})
	assert.False(t, adequacy.Blocking)
	assert.Empty(t, adequacy.MissingEvidence)
}

func TestComputeAdequacy_MissingKindIsBlocking(t *testing.T) {
	tmpl := templateRegistry[model.TemplateEditContext]
	present := presentKinds{packs: 2} // no claims
	adequacy := computeAdequacy(tmpl, present, map[string]bool{"work_objects": true})
	assert.True(t, adequacy.Blocking)
	assert.Contains(t, adequacy.MissingEvidence, string(model.ObjectClaim))
}

func TestComputeAdequacy_MissingArtifactIsBlocking(t *testing.T) {
	tmpl := templateRegistry[model.TemplateRepoMap]
	present := presentKinds{maps: 1}
	adequacy := computeAdequacy(tmpl, present, map[string]bool{})
	assert.True(t, adequacy.Blocking)
	assert.NotEmpty(t, adequacy.Difficulties)
}

func TestPresentKinds_Has(t *testing.T) {
	p := presentKinds{packs: 1, claims: 0, maps: 2, episodes: 0, repoFact: 1}
	assert.True(t, p.has(model.ObjectPack))
	assert.False(t, p.has(model.ObjectClaim))
	assert.True(t, p.has(model.ObjectMap))
	assert.False(t, p.has(model.ObjectEpisode))
	assert.True(t, p.has(model.ObjectRepoFact))
	assert.False(t, p.has(model.ObjectKind("bogus")))
}
