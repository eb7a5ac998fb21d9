package librarian

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nateschmiedehaus/librarian/internal/mcpserver"
	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/ratelimit"
)

// rateLimitedExecutor enforces spec.md §4.7's burst/sustained/hourly token
// budget in front of the query pipeline, so both the MCP tool surface and
// any embedding caller going through QueryExecutor share one limiter keyed
// on the workspace.
type rateLimitedExecutor struct {
	next    mcpserver.QueryExecutor
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

var _ mcpserver.QueryExecutor = (*rateLimitedExecutor)(nil)

const rateLimitKey = "workspace"

func (r *rateLimitedExecutor) ExecuteQuery(ctx context.Context, req model.QueryRequest) (model.QueryResponse, error) {
	result := r.limiter.Allow(ctx, ratelimit.OperationQuery, rateLimitKey)
	if !result.Allowed {
		r.logger.Warn("query rate limited", "tier", result.LimitedByTier, "retry_after", result.RetryAfter)
		return model.QueryResponse{}, fmt.Errorf("rate limited by %s tier, retry after %s", result.LimitedByTier, result.RetryAfter)
	}
	return r.next.ExecuteQuery(ctx, req)
}

func (r *rateLimitedExecutor) ReportOutcome(ctx context.Context, report model.OutcomeReport) error {
	return r.next.ReportOutcome(ctx, report)
}
