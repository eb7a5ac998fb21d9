package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("query_context",
			mcplib.WithDescription(`Retrieve ranked, cited context about this codebase for a natural-language intent.

WHEN TO USE: before editing, reviewing, or reasoning about code you haven't
already loaded into context. Describe what you're trying to do; optionally
name files you already suspect are involved.

WHAT YOU GET BACK: context packs (function/module/change-impact/pattern
summaries) each carrying a confidence score and claim citations, a
synthesized answer, an adequacy verdict, and a
disclosures array naming anything the answer couldn't verify (stale index,
missing evidence, provider unavailable, etc).

depth is recorded in the query trace; retrieval, synthesis and the adequacy
check run the same way at every depth.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("intent",
				mcplib.Description("What you're trying to do or understand, in natural language."),
				mcplib.Required(),
			),
			mcplib.WithString("depth",
				mcplib.Description(`Thoroughness tier: "L0", "L1", "L2", or "L3" (default "L1"). Recorded in the query trace; it does not change retrieval or synthesis.`),
			),
			mcplib.WithString("task_type",
				mcplib.Description(`Optional task hint used to select a construction template (e.g. "edit", "review", "onboarding", "regression").`),
			),
			mcplib.WithArray("affected_files",
				mcplib.Description("Optional list of file paths you already believe are relevant."),
				mcplib.Items(map[string]any{"type": "string"}),
			),
			mcplib.WithString("llm_requirement",
				mcplib.Description(`Whether synthesis may call an LLM: "required", "optional" (default), or "disabled".`),
			),
			mcplib.WithNumber("min_confidence",
				mcplib.Description("Optional minimum confidence threshold (0.0-1.0) for returned packs."),
				mcplib.Min(0),
				mcplib.Max(1),
			),
		),
		s.handleQueryContext,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("report_outcome",
			mcplib.WithDescription(`Report what happened after acting on a query_context response.

WHEN TO USE: after you've finished the task query_context informed, whether
it succeeded or not. This closes the feedback loop: each cited pack's
success/failure counters are updated, and a pack reported unhelpful often
enough gets a defeater raised against its backing claims. Pack confidence
itself is not changed.

ALWAYS include the traceId from the query_context response you're reporting
on, and cited_pack_ids for every pack you actually relied on.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("trace_id",
				mcplib.Description("The traceId from the query_context response this outcome is reporting on."),
				mcplib.Required(),
			),
			mcplib.WithBoolean("success",
				mcplib.Description("Whether the task you were using this context for succeeded."),
				mcplib.Required(),
			),
			mcplib.WithArray("cited_pack_ids",
				mcplib.Description("IDs of the context packs you actually used."),
				mcplib.Items(map[string]any{"type": "string"}),
			),
			mcplib.WithArray("files_modified",
				mcplib.Description("Optional list of file paths you modified as a result."),
				mcplib.Items(map[string]any{"type": "string"}),
			),
			mcplib.WithNumber("usefulness",
				mcplib.Description("How useful the returned context was (0.0 = useless, 1.0 = exactly what was needed)."),
				mcplib.Min(0),
				mcplib.Max(1),
			),
		),
		s.handleReportOutcome,
	)
}

func (s *Server) handleQueryContext(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	intent := request.GetString("intent", "")
	if intent == "" {
		return errorResult("intent is required"), nil
	}

	depth := model.Depth(request.GetString("depth", string(model.DepthL1)))
	req := model.QueryRequest{
		Intent:         intent,
		Depth:          depth,
		TaskType:       request.GetString("task_type", ""),
		LLMRequirement: model.LLMRequirement(request.GetString("llm_requirement", string(model.LLMOptional))),
		AffectedFiles:  stringSliceArg(request, "affected_files"),
	}
	if mc := request.GetFloat("min_confidence", -1); mc >= 0 {
		req.MinConfidence = &mc
	}

	resp, err := s.pipeline.ExecuteQuery(ctx, req)
	if err != nil {
		return errorResult(fmt.Sprintf("query_context failed: %v", err)), nil
	}

	if s.workspaceRoot != "" {
		roots := s.requestRoots(ctx)
		if matched, disclosure := workspaceFromRoots(roots, s.workspaceRoot); !matched {
			resp.Disclosures = append(resp.Disclosures, disclosure)
		}
	}

	resultData, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode response: %v", err)), nil
	}

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleReportOutcome(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	traceID := request.GetString("trace_id", "")
	if traceID == "" {
		return errorResult("trace_id is required"), nil
	}

	report := model.OutcomeReport{
		TraceID:       traceID,
		Success:       request.GetBool("success", false),
		FilesModified: stringSliceArg(request, "files_modified"),
		Usefulness:    request.GetFloat("usefulness", 0),
		CitedPackIDs:  stringSliceArg(request, "cited_pack_ids"),
	}

	if err := s.pipeline.ReportOutcome(ctx, report); err != nil {
		return errorResult(fmt.Sprintf("report_outcome failed: %v", err)), nil
	}

	resultData, _ := json.Marshal(map[string]any{"status": "recorded", "trace_id": traceID})
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

// stringSliceArg reads a JSON array argument as a []string, tolerating a
// missing or wrongly-typed argument by returning nil.
func stringSliceArg(request mcplib.CallToolRequest, key string) []string {
	raw, ok := request.GetArguments()[key]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
