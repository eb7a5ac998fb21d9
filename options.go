package librarian

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	workspaceRoot string
	databasePath  string
	logger        *slog.Logger
	version       string

	embeddingProvider EmbeddingProvider
	llm               LLMProvider

	routeRegistrars []RouteRegistrar
	middlewares     []Middleware

	vacuumInterval time.Duration
	decayInterval  time.Duration
	decayFactor    float64
}

// WithWorkspaceRoot sets the directory this App indexes. Defaults to the
// process's working directory.
func WithWorkspaceRoot(root string) Option {
	return func(o *resolvedOptions) { o.workspaceRoot = root }
}

// WithDatabasePath overrides the SQLite database path from config
// (LIBRARIAN_DATABASE_PATH env var).
func WithDatabasePath(path string) Option {
	return func(o *resolvedOptions) { o.databasePath = path }
}

// WithLogger sets the structured logger for the App. If not set, a JSON
// handler on stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in /statusz and MCP server
// metadata.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithEmbeddingProvider replaces the auto-detected embedding provider
// (Ollama when reachable, hash fallback otherwise).
func WithEmbeddingProvider(p EmbeddingProvider) Option {
	return func(o *resolvedOptions) { o.embeddingProvider = p }
}

// WithLLMProvider enables synthesis by providing a chat-completion
// backend. Without one, query_context returns ranked packs with an
// unstructured synthesis assembled from pack summaries; llm:chat is reported
// as degraded unless the request disables the LLM, and requests that require
// an LLM fail with it missing.
func WithLLMProvider(llm LLMProvider) Option {
	return func(o *resolvedOptions) { o.llm = llm }
}

// WithExtraRoutes registers additional routes on the status mux, alongside
// /healthz and /statusz.
func WithExtraRoutes(fn RouteRegistrar) Option {
	return func(o *resolvedOptions) { o.routeRegistrars = append(o.routeRegistrars, fn) }
}

// WithMiddleware registers an outermost HTTP middleware on the status mux.
// Multiple middlewares apply in registration order: the first-registered
// is outermost.
func WithMiddleware(mw Middleware) Option {
	return func(o *resolvedOptions) { o.middlewares = append(o.middlewares, mw) }
}

// WithVacuumInterval overrides the default hourly VACUUM schedule.
func WithVacuumInterval(d time.Duration) Option {
	return func(o *resolvedOptions) { o.vacuumInterval = d }
}

// WithTimeDecay overrides the default 24h/0.95 claim-recency decay
// schedule. interval is how often ApplyTimeDecay runs; factor is the
// multiplier applied to each active claim's recency component.
func WithTimeDecay(interval time.Duration, factor float64) Option {
	return func(o *resolvedOptions) {
		o.decayInterval = interval
		o.decayFactor = factor
	}
}

// RouteRegistrar registers additional handlers on the status mux.
type RouteRegistrar func(mux *http.ServeMux)

// Middleware wraps the status mux's handler chain.
type Middleware func(http.Handler) http.Handler
