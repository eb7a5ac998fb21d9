package librarian

import (
	"context"

	"github.com/nateschmiedehaus/librarian/internal/embedding"
	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/pipeline"
)

// EmbeddingProvider is the extension point for WithEmbeddingProvider. Any
// implementation satisfying internal/embedding.Provider can be supplied —
// the hash and Ollama providers this module ships are just the defaults.
type EmbeddingProvider = embedding.Provider

// LLMProvider is the extension point for WithLLMProvider. Supplying one
// enables query_context's synthesis stage.
type LLMProvider = pipeline.LLMProvider

// QueryExecutor is the query pipeline contract the MCP server and any
// embedding caller depend on. *App satisfies this once New has returned.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, req model.QueryRequest) (model.QueryResponse, error)
	ReportOutcome(ctx context.Context, report model.OutcomeReport) error
}
