// Package librarian is the public API for embedding the code knowledge
// service: construct with New, run with Run.
//
//	app, err := librarian.New(ctx,
//	    librarian.WithWorkspaceRoot(root),
//	    librarian.WithLogger(logger),
//	    librarian.WithLLMProvider(myChatBackend{}),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: librarian (root)
// imports internal/*, but internal/* never imports librarian (root).
package librarian

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	mcptransport "github.com/mark3labs/mcp-go/server"

	"github.com/nateschmiedehaus/librarian/internal/config"
	"github.com/nateschmiedehaus/librarian/internal/embedding"
	"github.com/nateschmiedehaus/librarian/internal/evidence"
	"github.com/nateschmiedehaus/librarian/internal/gitutil"
	"github.com/nateschmiedehaus/librarian/internal/indexer"
	"github.com/nateschmiedehaus/librarian/internal/mcpserver"
	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/pipeline"
	"github.com/nateschmiedehaus/librarian/internal/ratelimit"
	"github.com/nateschmiedehaus/librarian/internal/retrieval"
	"github.com/nateschmiedehaus/librarian/internal/staleness"
	"github.com/nateschmiedehaus/librarian/internal/storage"
	"github.com/nateschmiedehaus/librarian/migrations"
)

// Default shutdown-phase deadlines and co-change history bounds. Unlike the
// SLA/rate-limit knobs these aren't exposed via librarian.toml — the first
// two bound how long Shutdown is willing to wait, the last two how much git
// history seeds the co-change matrix.
const (
	shutdownHTTPTimeout    = 5 * time.Second
	shutdownWatcherTimeout = 5 * time.Second
	coChangeHistoryWindow  = 90 * 24 * time.Hour
	coChangeMaxCommits     = 2000
)

// App is the librarian server lifecycle. Construct with New(), run with
// Run(). App has no public fields — use New() options to configure it.
type App struct {
	cfg           config.Config
	db            *storage.DB
	ix            *indexer.Indexer
	watcher       *indexer.Watcher
	pipeline      *pipeline.Pipeline
	limited       *rateLimitedExecutor
	mcp           *mcpserver.Server
	httpSrv       *http.Server
	logger        *slog.Logger
	version       string
	workspaceRoot string

	vacuumInterval time.Duration
	decayInterval  time.Duration
	decayFactor    float64
}

var _ QueryExecutor = (*App)(nil)

// New initializes the librarian server: opens storage, runs migrations,
// reconciles the index against the workspace, wires the query pipeline and
// MCP server, and builds the status HTTP mux. It does NOT start any
// goroutines or accept connections — call Run().
func New(ctx context.Context, opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	workspaceRoot := o.workspaceRoot
	if workspaceRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace root: %w", err)
		}
		workspaceRoot = wd
	}

	cfg, err := config.Load(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.databasePath != "" {
		cfg.DatabasePath = o.databasePath
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("librarian starting", "version", version, "workspace_root", workspaceRoot)

	db, err := storage.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	embedder := o.embeddingProvider
	if embedder == nil {
		embedder = newEmbeddingProvider(cfg, logger)
	}

	tracker := staleness.New(staleness.SLAOptions{
		OpenFileSlaMs:    cfg.OpenFileSlaMs,
		DependencySlaMs:  cfg.DependencySlaMs,
		ProjectFileSlaMs: cfg.ProjectFileSlaMs,
	})

	graph := evidence.New(db)
	evidenceStore := pipeline.NewGraphEvidenceStore(graph, db)

	ix := indexer.New(workspaceRoot, db, embedder, logger)

	if err := bootstrapIndex(ctx, db, ix, workspaceRoot, cfg, logger); err != nil {
		logger.Warn("startup index bootstrap incomplete; serving with whatever was already indexed", "error", err)
	}

	watcher, err := indexer.NewWatcher(workspaceRoot, watcherOptionsFrom(cfg), ix, logger)
	if err != nil {
		logger.Warn("filesystem watcher unavailable; incremental indexing disabled", "error", err)
		watcher = nil
	}

	coChange := buildCoChangeMatrix(ctx, workspaceRoot, cfg, logger)

	retriever := pipeline.NewStorageRetriever(db, embedder)

	caps := map[model.Capability]bool{
		pipeline.CapabilityStorage:   true,
		pipeline.CapabilityEmbedding: true,
	}
	if o.llm != nil {
		caps[pipeline.CapabilityLLMChat] = true
	}

	pl := pipeline.New(pipeline.Config{
		Retriever:    retriever,
		Packs:        db,
		Graph:        evidenceStore,
		Ledger:       db,
		Staleness:    tracker,
		LLM:          o.llm,
		Capabilities: caps,
		Budget: pipeline.GovernorBudget{
			MaxWallTime:  time.Duration(cfg.MaxLatencyMs) * time.Millisecond,
			MaxTokens:    cfg.MaxTokenBudget,
			MaxToolCalls: cfg.MaxToolCallsPerTurn,
		},
		Version:  version,
		Logger:   logger,
		CoChange: coChange,
	})

	limiter := ratelimit.New(ratelimit.Options{
		Burst:     ratelimit.TierOptions{RatePerSecond: cfg.RateLimitBurstPerSecond, Burst: cfg.RateLimitBurstCapacity},
		Sustained: ratelimit.TierOptions{RatePerSecond: cfg.RateLimitSustainedPerSecond, Burst: cfg.RateLimitSustainedCapacity},
		HourlyCap: cfg.RateLimitHourlyCap,
	})
	limited := &rateLimitedExecutor{next: pl, limiter: limiter, logger: logger}

	mcp := mcpserver.New(limited, logger, version, workspaceRoot)

	vacuumInterval := o.vacuumInterval
	if vacuumInterval <= 0 {
		vacuumInterval = time.Hour
	}
	decayInterval := o.decayInterval
	if decayInterval <= 0 {
		decayInterval = 24 * time.Hour
	}
	decayFactor := o.decayFactor
	if decayFactor <= 0 {
		decayFactor = 0.95
	}

	app := &App{
		cfg:            cfg,
		db:             db,
		ix:             ix,
		watcher:        watcher,
		pipeline:       pl,
		limited:        limited,
		mcp:            mcp,
		logger:         logger,
		version:        version,
		workspaceRoot:  workspaceRoot,
		vacuumInterval: vacuumInterval,
		decayInterval:  decayInterval,
		decayFactor:    decayFactor,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", app.handleHealthz)
	mux.HandleFunc("/statusz", app.handleStatusz)
	for _, reg := range o.routeRegistrars {
		reg(mux)
	}
	var handler http.Handler = mux
	for i := len(o.middlewares) - 1; i >= 0; i-- {
		handler = o.middlewares[i](handler)
	}
	mux.Handle("/mcp", mcptransport.NewStreamableHTTPServer(mcp.MCPServer()))

	app.httpSrv = &http.Server{
		Addr:         cfg.StatusAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return app, nil
}

// bootstrapIndex reconciles the on-disk watch cursor against the
// workspace (git-diff based when possible, full walk otherwise), reindexes
// whatever changed, and persists the advanced cursor. Non-fatal: the
// caller logs and proceeds with whatever the index already held.
func bootstrapIndex(ctx context.Context, db *storage.DB, ix *indexer.Indexer, root string, cfg config.Config, logger *slog.Logger) error {
	var state model.WatchState
	if err := db.GetState(ctx, model.StateKeyWatch, &state); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load watch state: %w", err)
		}
		state = model.WatchState{SchemaVersion: model.CurrentWatchStateSchemaVersion, WorkspaceRoot: root}
	}

	walkOpts := indexer.WalkOptions{
		IncludeGlobs:     cfg.IncludeGlobs,
		ExcludeGlobs:     cfg.ExcludeGlobs,
		MaxFileSizeBytes: indexer.DefaultMaxFileSizeBytes,
	}
	paths, newState, err := indexer.Reconcile(ctx, root, state, walkOpts)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if failed, err := ix.ReindexPaths(ctx, paths); err != nil {
		logger.Warn("reindex partially failed", "error", err, "failed_paths", failed)
	}
	if err := db.PutState(ctx, model.StateKeyWatch, newState); err != nil {
		return fmt.Errorf("persist watch state: %w", err)
	}
	return nil
}

func watcherOptionsFrom(cfg config.Config) indexer.WatcherOptions {
	defaults := indexer.DefaultWatcherOptions()
	opts := defaults
	opts.DebounceMs = cfg.WatchDebounceMs
	opts.BatchWindowMs = cfg.WatchBatchMs
	opts.StormThreshold = cfg.WatchStormThresh
	if cfg.CascadeBatchLimit > 0 {
		opts.CascadeBatchSize = cfg.CascadeBatchLimit
	}
	return opts
}

// buildCoChangeMatrix walks the commit history for co-change signal
// (spec.md §4.3). Git unavailability is non-fatal — retrieval simply runs
// without the co-change boost.
func buildCoChangeMatrix(ctx context.Context, root string, cfg config.Config, logger *slog.Logger) *retrieval.CoChangeMatrix {
	since := time.Now().Add(-coChangeHistoryWindow)
	history, err := gitutil.GetCommitHistory(ctx, root, since, coChangeMaxCommits)
	if err != nil {
		logger.Info("co-change matrix disabled: git history unavailable", "error", err)
		return nil
	}
	commits := make([][]string, 0, len(history))
	for _, c := range history {
		commits = append(commits, c.Files)
	}
	return retrieval.NewCoChangeMatrix(commits, cfg.CoChangeWeight, cfg.CoChangeMaxBoost)
}

// newEmbeddingProvider selects an embedding backend: Ollama when
// configured or auto-detected as reachable, the deterministic hash
// provider otherwise. Semantic search degrades gracefully to lexical/hash
// matching rather than failing startup.
func newEmbeddingProvider(cfg config.Config, logger *slog.Logger) embedding.Provider {
	dims := cfg.EmbeddingDimensions

	switch cfg.EmbeddingProvider {
	case "ollama":
		logger.Info("embedding provider: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
		return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims)
	case "noop":
		logger.Info("embedding provider: noop (semantic search disabled)")
		return embedding.NewNoopProvider(dims)
	case "hash":
		logger.Info("embedding provider: hash", "dimensions", dims)
		return embedding.NewHashProvider()
	case "auto":
		fallthrough
	default:
		if ollamaReachable(cfg.OllamaURL) {
			logger.Info("embedding provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
			return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims)
		}
		logger.Info("embedding provider: hash (ollama not reachable)", "dimensions", dims)
		return embedding.NewHashProvider()
	}
}

func ollamaReachable(baseURL string) bool {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(c, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ExecuteQuery satisfies QueryExecutor, letting embedding callers drive the
// pipeline directly (through the same rate limiter the MCP tools use)
// without reaching into internal packages.
func (a *App) ExecuteQuery(ctx context.Context, req model.QueryRequest) (model.QueryResponse, error) {
	return a.limited.ExecuteQuery(ctx, req)
}

// ReportOutcome satisfies QueryExecutor.
func (a *App) ReportOutcome(ctx context.Context, report model.OutcomeReport) error {
	return a.limited.ReportOutcome(ctx, report)
}

// Run starts the watcher, the background maintenance loops, and the
// status/MCP HTTP server, then blocks until ctx is canceled or the server
// fails.
func (a *App) Run(ctx context.Context) error {
	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				a.logger.Warn("filesystem watcher stopped", "error", err)
			}
		}()
	}

	go a.vacuumLoop(ctx)
	go a.decayLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("status server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown drains the server in stages: stop accepting status/HTTP
// connections, stop the filesystem watcher (letting its pending batch
// flush through the indexer's cascade queue), then close storage and the
// rate limiter's background eviction goroutines last.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("librarian shutting down")

	httpCtx, httpCancel := context.WithTimeout(ctx, shutdownHTTPTimeout)
	if err := a.httpSrv.Shutdown(httpCtx); err != nil {
		a.logger.Error("status server shutdown error", "error", err)
	}
	httpCancel()

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.logger.Warn("watcher close error", "error", err)
		}
	}

	drainCtx, drainCancel := context.WithTimeout(ctx, shutdownWatcherTimeout)
	a.ix.Shutdown(drainCtx)
	drainCancel()

	_ = a.limited.limiter.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("storage close error", "error", err)
	}

	a.logger.Info("librarian stopped")
	return nil
}

func (a *App) vacuumLoop(ctx context.Context) {
	ticker := time.NewTicker(a.vacuumInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := a.db.Vacuum(opCtx)
			cancel()
			if err != nil {
				a.logger.Warn("vacuum failed", "error", err)
				continue
			}
			a.logger.Info("vacuum completed")
		}
	}
}

func (a *App) decayLoop(ctx context.Context) {
	ticker := time.NewTicker(a.decayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := a.db.ApplyTimeDecay(opCtx, a.decayFactor)
			cancel()
			if err != nil {
				a.logger.Warn("time decay failed", "error", err)
				continue
			}
			a.logger.Info("time decay applied", "claims_updated", n)
		}
	}
}
