package pipeline

import (
	"sync"
	"time"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// GovernorBudget bounds one query's resource consumption. Budgets live on
// the execution context for a single query, never as global state, so two
// concurrent queries never share or starve each other's allowance.
type GovernorBudget struct {
	MaxWallTime  time.Duration
	MaxTokens    int
	MaxToolCalls int
}

// DefaultGovernorBudget mirrors config.Config's governor knobs in the
// absence of an explicit override.
func DefaultGovernorBudget() GovernorBudget {
	return GovernorBudget{
		MaxWallTime:  30 * time.Second,
		MaxTokens:    8000,
		MaxToolCalls: 12,
	}
}

// Governor tracks consumption against a GovernorBudget for the lifetime of
// one query. The pipeline calls CheckBudget twice per query, before retrieval
// and again before synthesis; embedding calls, individual LLM calls and
// storage batches do not check the budget. It is safe for concurrent use.
type Governor struct {
	budget    GovernorBudget
	startedAt time.Time

	mu            sync.Mutex
	tokensUsed    int
	toolCallsUsed int
}

// NewGovernor starts a governor counting wall time from now.
func NewGovernor(budget GovernorBudget) *Governor {
	return &Governor{budget: budget, startedAt: time.Now()}
}

// CheckBudget returns a *model.BudgetExceededError if any dimension of the
// budget has been exceeded, else nil.
func (g *Governor) CheckBudget() error {
	if elapsed := time.Since(g.startedAt); g.budget.MaxWallTime > 0 && elapsed > g.budget.MaxWallTime {
		return &model.BudgetExceededError{Budget: "wall_time", Limit: g.budget.MaxWallTime.Seconds(), Used: elapsed.Seconds()}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.budget.MaxTokens > 0 && g.tokensUsed > g.budget.MaxTokens {
		return &model.BudgetExceededError{Budget: "tokens", Limit: float64(g.budget.MaxTokens), Used: float64(g.tokensUsed)}
	}
	if g.budget.MaxToolCalls > 0 && g.toolCallsUsed > g.budget.MaxToolCalls {
		return &model.BudgetExceededError{Budget: "tool_calls", Limit: float64(g.budget.MaxToolCalls), Used: float64(g.toolCallsUsed)}
	}
	return nil
}

// SpendTokens records token usage (e.g. from an LLM call's tokensIn+tokensOut).
func (g *Governor) SpendTokens(n int) {
	g.mu.Lock()
	g.tokensUsed += n
	g.mu.Unlock()
}

// SpendToolCall records one tool/storage-batch invocation against the budget.
func (g *Governor) SpendToolCall() {
	g.mu.Lock()
	g.toolCallsUsed++
	g.mu.Unlock()
}

// TokensUsed reports current token spend, for ledger payloads.
func (g *Governor) TokensUsed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokensUsed
}
