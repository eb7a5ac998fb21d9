package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

type fakeExecutor struct {
	queryReq  model.QueryRequest
	queryResp model.QueryResponse
	queryErr  error

	outcomeReport model.OutcomeReport
	outcomeErr    error
}

func (f *fakeExecutor) ExecuteQuery(ctx context.Context, req model.QueryRequest) (model.QueryResponse, error) {
	f.queryReq = req
	return f.queryResp, f.queryErr
}

func (f *fakeExecutor) ReportOutcome(ctx context.Context, report model.OutcomeReport) error {
	f.outcomeReport = report
	return f.outcomeErr
}

func callToolRequest(args map[string]any) mcplib.CallToolRequest {
	req := mcplib.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func decodeToolResult(t *testing.T, result *mcplib.CallToolResult) map[string]any {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestHandleQueryContext_MissingIntentIsAnError(t *testing.T) {
	s := New(&fakeExecutor{}, nil, "test", "")
	result, err := s.handleQueryContext(context.Background(), callToolRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleQueryContext_DefaultsDepthAndLLMRequirement(t *testing.T) {
	fake := &fakeExecutor{queryResp: model.QueryResponse{TraceID: "trace-1"}}
	s := New(fake, nil, "test", "")

	_, err := s.handleQueryContext(context.Background(), callToolRequest(map[string]any{
		"intent": "find the auth middleware",
	}))
	require.NoError(t, err)

	assert.Equal(t, model.DepthL1, fake.queryReq.Depth)
	assert.Equal(t, model.LLMOptional, fake.queryReq.LLMRequirement)
	assert.Nil(t, fake.queryReq.MinConfidence)
}

func TestHandleQueryContext_PassesAffectedFilesAndMinConfidence(t *testing.T) {
	fake := &fakeExecutor{queryResp: model.QueryResponse{TraceID: "trace-1"}}
	s := New(fake, nil, "test", "")

	_, err := s.handleQueryContext(context.Background(), callToolRequest(map[string]any{
		"intent":         "trace the request path",
		"depth":          "L2",
		"task_type":      "review",
		"affected_files": []any{"a.go", "b.go"},
		"min_confidence": 0.6,
	}))
	require.NoError(t, err)

	assert.Equal(t, model.DepthL2, fake.queryReq.Depth)
	assert.Equal(t, "review", fake.queryReq.TaskType)
	assert.Equal(t, []string{"a.go", "b.go"}, fake.queryReq.AffectedFiles)
	require.NotNil(t, fake.queryReq.MinConfidence)
	assert.InDelta(t, 0.6, *fake.queryReq.MinConfidence, 0.0001)
}

func TestHandleQueryContext_PipelineErrorReturnsErrorResult(t *testing.T) {
	fake := &fakeExecutor{queryErr: errors.New("index unavailable")}
	s := New(fake, nil, "test", "")

	result, err := s.handleQueryContext(context.Background(), callToolRequest(map[string]any{
		"intent": "anything",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleQueryContext_EncodesResponseAsJSON(t *testing.T) {
	fake := &fakeExecutor{queryResp: model.QueryResponse{
		TraceID:         "trace-42",
		TotalConfidence: 0.8,
		Disclosures:     []string{},
	}}
	s := New(fake, nil, "test", "")

	result, err := s.handleQueryContext(context.Background(), callToolRequest(map[string]any{
		"intent": "anything",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := decodeToolResult(t, result)
	assert.Equal(t, "trace-42", out["traceId"])
}

func TestHandleReportOutcome_MissingTraceIDIsAnError(t *testing.T) {
	s := New(&fakeExecutor{}, nil, "test", "")
	result, err := s.handleReportOutcome(context.Background(), callToolRequest(map[string]any{
		"success": true,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleReportOutcome_PassesFullReportThrough(t *testing.T) {
	fake := &fakeExecutor{}
	s := New(fake, nil, "test", "")

	result, err := s.handleReportOutcome(context.Background(), callToolRequest(map[string]any{
		"trace_id":       "trace-42",
		"success":        true,
		"cited_pack_ids": []any{"pack-1", "pack-2"},
		"files_modified": []any{"main.go"},
		"usefulness":     0.9,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, "trace-42", fake.outcomeReport.TraceID)
	assert.True(t, fake.outcomeReport.Success)
	assert.Equal(t, []string{"pack-1", "pack-2"}, fake.outcomeReport.CitedPackIDs)
	assert.Equal(t, []string{"main.go"}, fake.outcomeReport.FilesModified)
	assert.InDelta(t, 0.9, fake.outcomeReport.Usefulness, 0.0001)
}

func TestHandleReportOutcome_PipelineErrorReturnsErrorResult(t *testing.T) {
	fake := &fakeExecutor{outcomeErr: errors.New("trace not found")}
	s := New(fake, nil, "test", "")

	result, err := s.handleReportOutcome(context.Background(), callToolRequest(map[string]any{
		"trace_id": "trace-1",
		"success":  false,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestStringSliceArg(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		key  string
		want []string
	}{
		{name: "missing key", args: map[string]any{}, key: "files", want: nil},
		{name: "wrong type", args: map[string]any{"files": "not-an-array"}, key: "files", want: nil},
		{name: "mixed types skips non-strings", args: map[string]any{"files": []any{"a.go", 1, "b.go"}}, key: "files", want: []string{"a.go", "b.go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringSliceArg(callToolRequest(tt.args), tt.key)
			assert.Equal(t, tt.want, got)
		})
	}
}
