package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	responses []ChatResponse
	errs      []error
	calls     int
}

func (f *fakeLLM) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return ChatResponse{}, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return ChatResponse{}, errors.New("fakeLLM: no more scripted responses")
}

func samplePacks() []model.Pack {
	return []model.Pack{
		{ID: "pack-1", TargetID: "fn-1", Summary: "does thing one"},
		{ID: "pack-2", TargetID: "fn-2", Summary: "does thing two"},
	}
}

func TestSynthesize_Disabled_ReturnsUnstructuredWithoutCallingLLM(t *testing.T) {
	llm := &fakeLLM{}
	gov := NewGovernor(DefaultGovernorBudget())
	synthesis, disclosures := synthesize(context.Background(), llm, gov, "how does X work", samplePacks(), model.LLMDisabled)
	assert.Equal(t, 0, llm.calls)
	assert.True(t, synthesis.Unstructured)
	assert.Empty(t, disclosures)
}

func TestSynthesize_NilProvider_ReturnsUnstructured(t *testing.T) {
	gov := NewGovernor(DefaultGovernorBudget())
	synthesis, disclosures := synthesize(context.Background(), nil, gov, "how does X work", samplePacks(), model.LLMOptional)
	assert.True(t, synthesis.Unstructured)
	assert.Empty(t, disclosures)
}

func TestSynthesize_ValidJSONResponse_ParsesDirectly(t *testing.T) {
	llm := &fakeLLM{responses: []ChatResponse{
		{Content: `{"answer": "X works by doing Y", "confidence": 0.8, "citations": ["pack-1"], "key_insights": ["Y"], "uncertainties": []}`, TokensIn: 10, TokensOut: 20},
	}}
	gov := NewGovernor(DefaultGovernorBudget())
	synthesis, disclosures := synthesize(context.Background(), llm, gov, "how does X work", samplePacks(), model.LLMOptional)
	require.Empty(t, disclosures)
	assert.Equal(t, "X works by doing Y", synthesis.Answer)
	assert.Equal(t, 0.8, synthesis.Confidence)
	assert.Equal(t, []string{"pack-1"}, synthesis.Citations)
	assert.False(t, synthesis.Unstructured)
	assert.Equal(t, 30, gov.TokensUsed())
}

func TestSynthesize_MalformedThenRepairedJSON_UsesRepairedPayload(t *testing.T) {
	llm := &fakeLLM{responses: []ChatResponse{
		{Content: "not json at all"},
		{Content: `{"answer": "repaired answer", "confidence": 0.5, "citations": ["pack-2"]}`},
	}}
	gov := NewGovernor(DefaultGovernorBudget())
	synthesis, disclosures := synthesize(context.Background(), llm, gov, "intent", samplePacks(), model.LLMOptional)
	assert.Equal(t, 2, llm.calls)
	assert.Empty(t, disclosures)
	assert.Equal(t, "repaired answer", synthesis.Answer)
	assert.False(t, synthesis.Unstructured)
}

func TestSynthesize_PersistentParseFailure_FallsBackUnstructuredWithDisclosure(t *testing.T) {
	llm := &fakeLLM{responses: []ChatResponse{
		{Content: "still not json"},
		{Content: "still not json after repair"},
	}}
	gov := NewGovernor(DefaultGovernorBudget())
	synthesis, disclosures := synthesize(context.Background(), llm, gov, "intent", samplePacks(), model.LLMOptional)
	require.Len(t, disclosures, 1)
	assert.Contains(t, disclosures[0], "unverified_by_trace(synthesis_unstructured)")
	assert.True(t, synthesis.Unstructured)
}

func TestSynthesize_ProviderErrorWithLLMRequired_FallsBackWithDisclosure(t *testing.T) {
	llm := &fakeLLM{errs: []error{errors.New("provider down")}}
	gov := NewGovernor(DefaultGovernorBudget())
	synthesis, disclosures := synthesize(context.Background(), llm, gov, "intent", samplePacks(), model.LLMRequired)
	require.Len(t, disclosures, 1)
	assert.Contains(t, disclosures[0], "unverified_by_trace(provider_unavailable)")
	assert.True(t, synthesis.Unstructured)
}

func TestUnstructuredSynthesis_CitesEveryPack(t *testing.T) {
	synthesis := unstructuredSynthesis(samplePacks())
	assert.ElementsMatch(t, []string{"pack-1", "pack-2"}, synthesis.Citations)
	assert.True(t, synthesis.Unstructured)
	assert.Less(t, synthesis.Confidence, 0.5)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
}
