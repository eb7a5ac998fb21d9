package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// ChatMessage is one entry of the message list sent to an LLM provider.
type ChatMessage struct {
	Role    string // "system" | "user"
	Content string
}

// ChatRequest matches the provider boundary contract in spec.md §6:
// chat({provider, modelId, messages, maxTokens?, governorContext?}).
type ChatRequest struct {
	Provider   string
	ModelID    string
	Messages   []ChatMessage
	MaxTokens  int
}

// ChatResponse is the provider's reply plus the token accounting the
// governor needs.
type ChatResponse struct {
	Content   string
	TokensIn  int
	TokensOut int
}

// LLMProvider is the narrow interface the pipeline needs from a chat
// completion backend. Discovery of concrete providers (Claude, Codex,
// local models) is out of scope for the core per spec.md §1; callers supply
// whatever satisfies this.
type LLMProvider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// synthesisPayload is the structured shape an LLM is asked to return for a
// synthesis call. A repair pass re-prompts once on parse failure before
// falling back to an unstructured summary (§4.6 step 6).
type synthesisPayload struct {
	Answer        string   `json:"answer"`
	Confidence    float64  `json:"confidence"`
	Citations     []string `json:"citations"`
	KeyInsights   []string `json:"key_insights"`
	Uncertainties []string `json:"uncertainties"`
}

// synthesize produces an answer from the retrieved packs. It calls llm when
// req.LLMRequirement permits and llm is non-nil; otherwise (or on persistent
// parse failure) it falls back to a quick, unstructured answer assembled
// directly from pack summaries. Only the parse-failure fallback adds a
// DisclosureSynthesisUnstructured disclosure; the no-LLM path returns none.
func synthesize(ctx context.Context, llm LLMProvider, gov *Governor, intent string, packs []model.Pack, llmRequirement model.LLMRequirement) (*model.Synthesis, []string) {
	if llmRequirement == model.LLMDisabled || llm == nil {
		return unstructuredSynthesis(packs), nil
	}

	prompt := buildSynthesisPrompt(intent, packs)
	resp, err := llm.Chat(ctx, ChatRequest{Messages: []ChatMessage{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: prompt},
	}})
	if err != nil {
		if llmRequirement == model.LLMRequired {
			s := unstructuredSynthesis(packs)
			s.Unstructured = true
			return s, []string{model.Disclosure(model.DisclosureProviderUnavailable, err.Error())}
		}
		return unstructuredSynthesis(packs), []string{model.Disclosure(model.DisclosureProviderUnavailable, err.Error())}
	}
	gov.SpendTokens(resp.TokensIn + resp.TokensOut)

	payload, parseErr := parseSynthesisPayload(resp.Content)
	if parseErr != nil {
		// One repair pass: ask the model to reformat its own output as JSON.
		repairPrompt := fmt.Sprintf("Reformat the following as JSON matching {answer, confidence, citations, key_insights, uncertainties}:\n\n%s", resp.Content)
		repaired, repairErr := llm.Chat(ctx, ChatRequest{Messages: []ChatMessage{
			{Role: "system", Content: synthesisSystemPrompt},
			{Role: "user", Content: repairPrompt},
		}})
		if repairErr == nil {
			gov.SpendTokens(repaired.TokensIn + repaired.TokensOut)
			if p, err := parseSynthesisPayload(repaired.Content); err == nil {
				payload = p
				parseErr = nil
			}
		}
	}
	if parseErr != nil {
		s := unstructuredSynthesis(packs)
		s.Answer = resp.Content
		s.Unstructured = true
		return s, []string{model.Disclosure(model.DisclosureSynthesisUnstructured, "synthesis output did not parse as JSON after one repair attempt")}
	}

	return &model.Synthesis{
		Answer:        payload.Answer,
		Confidence:    clamp01(payload.Confidence),
		Citations:     payload.Citations,
		KeyInsights:   payload.KeyInsights,
		Uncertainties: payload.Uncertainties,
	}, nil
}

const synthesisSystemPrompt = `You answer questions about a codebase using only the provided context packs. Respond with a single JSON object: {"answer": string, "confidence": number 0-1, "citations": [pack IDs you relied on], "key_insights": [string], "uncertainties": [string]}. Cite only pack IDs that appear in the context; never invent one.`

func buildSynthesisPrompt(intent string, packs []model.Pack) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Intent: %s\n\nContext packs:\n", intent)
	for _, p := range packs {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", p.ID, p.TargetID, p.Summary)
	}
	return b.String()
}

func parseSynthesisPayload(content string) (synthesisPayload, error) {
	var p synthesisPayload
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return p, fmt.Errorf("pipeline: no JSON object found in synthesis output")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return p, fmt.Errorf("pipeline: parse synthesis payload: %w", err)
	}
	return p, nil
}

// unstructuredSynthesis builds a low-confidence answer directly from pack
// summaries, used when no LLM is available or permitted.
func unstructuredSynthesis(packs []model.Pack) *model.Synthesis {
	var b strings.Builder
	citations := make([]string, 0, len(packs))
	for i, p := range packs {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(p.Summary)
		citations = append(citations, p.ID)
	}
	return &model.Synthesis{
		Answer:       b.String(),
		Confidence:   0.3,
		Citations:    citations,
		Unstructured: true,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
