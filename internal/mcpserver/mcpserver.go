// Package mcpserver exposes the query pipeline over the Model Context
// Protocol, so AI coding agents can call query_context and report_outcome
// as tools rather than through a bespoke API.
package mcpserver

import (
	"context"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

const serverInstructions = `You have access to a code knowledge service for this workspace.

WORKFLOW:

1. Call query_context with your natural-language intent and, if you know them,
   the files you expect to touch. You get back ranked context packs (cited,
   confidence-scored summaries), a synthesized answer when one was produced,
   and a traceId.

2. After acting on the response, call report_outcome with the traceId, whether
   the task succeeded, which packs you actually used (cited_pack_ids), and the
   files you modified. This closes the feedback loop that keeps future answers
   accurate.

Pay attention to the disclosures array in query_context's response — each
entry names a specific way the answer may be incomplete or unverified.`

// QueryExecutor is the narrow interface mcpserver needs from the query
// execution pipeline (internal/pipeline.Pipeline satisfies this).
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, req model.QueryRequest) (model.QueryResponse, error)
	ReportOutcome(ctx context.Context, report model.OutcomeReport) error
}

// Server wraps the MCP server with the query pipeline.
type Server struct {
	mcpServer     *mcpserver.MCPServer
	pipeline      QueryExecutor
	logger        *slog.Logger
	rootsCache    *rootsCache
	workspaceRoot string
}

// New creates and configures a new MCP server exposing query_context and
// report_outcome. workspaceRoot is the directory this server's index was
// built from; it is compared against the client-reported MCP root so a
// query response can disclose a workspace mismatch.
func New(pipeline QueryExecutor, logger *slog.Logger, version, workspaceRoot string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		pipeline:      pipeline,
		logger:        logger,
		rootsCache:    newRootsCache(),
		workspaceRoot: workspaceRoot,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"librarian",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRoots(),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
