// Package config loads and validates application configuration from
// environment variables, layered over an optional per-workspace TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StatusAddr   string // listen address for the /healthz and /statusz mux.

	// Storage settings.
	DatabasePath string // path to the SQLite database file.

	// Embedding provider settings.
	EmbeddingProvider   string // "auto", "ollama", or "noop"
	EmbeddingModel      string
	EmbeddingDimensions int // vector dimensions; must match the chosen model's output.
	OllamaURL           string
	OllamaModel         string

	// Indexing settings.
	WatchDebounceMs   int
	WatchBatchMs      int
	WatchStormThresh  int
	CascadeBatchLimit int

	// Retrieval weights, per spec.md §4.3's co-change signal.
	CoChangeWeight   float64
	CoChangeMaxBoost float64

	// Staleness SLA settings, per spec.md §4.8.
	OpenFileSlaMs    int
	DependencySlaMs  int
	ProjectFileSlaMs int

	// Rate-limit settings, per spec.md §4.7.
	RateLimitBurstPerSecond     float64
	RateLimitBurstCapacity      float64
	RateLimitSustainedPerSecond float64
	RateLimitSustainedCapacity  float64
	RateLimitHourlyCap          float64

	// Governor / budget settings.
	MaxTokenBudget      int
	MaxLatencyMs        int
	MaxToolCallsPerTurn int

	// Operational settings.
	LogLevel            string
	WorkspaceRoot       string
	IncludeGlobs        []string
	ExcludeGlobs        []string
	MaxRequestBodyBytes int64 // maximum request body size in bytes.
}

// Load reads configuration from environment variables with sensible
// defaults, then layers a per-workspace librarian.toml file (if present at
// workspaceRoot) over fields the TOML file sets, env vars taking final
// precedence over both. Returns an error if any environment variable or
// TOML field is unparseable.
func Load(workspaceRoot string) (Config, error) {
	var errs []error
	cfg := Config{
		DatabasePath:      envStr("LIBRARIAN_DATABASE_PATH", ".librarian/index.db"),
		EmbeddingProvider: envStr("LIBRARIAN_EMBEDDING_PROVIDER", "auto"),
		EmbeddingModel:    envStr("LIBRARIAN_EMBEDDING_MODEL", "hash-384"),
		OllamaURL:         envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       envStr("OLLAMA_MODEL", "mxbai-embed-large"),
		LogLevel:          envStr("LIBRARIAN_LOG_LEVEL", "info"),
		StatusAddr:        envStr("LIBRARIAN_STATUS_ADDR", "127.0.0.1:8099"),
		WorkspaceRoot:     workspaceRoot,
	}

	if tf, err := loadWorkspaceFile(workspaceRoot); err != nil {
		errs = append(errs, err)
	} else if tf != nil {
		applyWorkspaceFile(&cfg, tf)
	}
	if v := envStrSlice("LIBRARIAN_INCLUDE_GLOBS", nil); v != nil {
		cfg.IncludeGlobs = v
	}
	if v := envStrSlice("LIBRARIAN_EXCLUDE_GLOBS", nil); v != nil {
		cfg.ExcludeGlobs = v
	}

	cfg.EmbeddingDimensions, errs = collectInt(errs, "LIBRARIAN_EMBEDDING_DIMENSIONS", fallbackInt(cfg.EmbeddingDimensions, 384))
	cfg.WatchDebounceMs, errs = collectInt(errs, "LIBRARIAN_WATCH_DEBOUNCE_MS", fallbackInt(cfg.WatchDebounceMs, 300))
	cfg.WatchBatchMs, errs = collectInt(errs, "LIBRARIAN_WATCH_BATCH_MS", fallbackInt(cfg.WatchBatchMs, 500))
	cfg.WatchStormThresh, errs = collectInt(errs, "LIBRARIAN_WATCH_STORM_THRESHOLD", fallbackInt(cfg.WatchStormThresh, 200))
	cfg.CascadeBatchLimit, errs = collectInt(errs, "LIBRARIAN_CASCADE_BATCH_LIMIT", fallbackInt(cfg.CascadeBatchLimit, 500))

	cfg.CoChangeWeight, errs = collectFloat(errs, "LIBRARIAN_CO_CHANGE_WEIGHT", fallbackFloat(cfg.CoChangeWeight, 0.6))
	cfg.CoChangeMaxBoost, errs = collectFloat(errs, "LIBRARIAN_CO_CHANGE_MAX_BOOST", fallbackFloat(cfg.CoChangeMaxBoost, 0.5))

	cfg.OpenFileSlaMs, errs = collectInt(errs, "LIBRARIAN_OPEN_FILE_SLA_MS", fallbackInt(cfg.OpenFileSlaMs, 1_000))
	cfg.DependencySlaMs, errs = collectInt(errs, "LIBRARIAN_DEPENDENCY_SLA_MS", fallbackInt(cfg.DependencySlaMs, 3_600_000))
	cfg.ProjectFileSlaMs, errs = collectInt(errs, "LIBRARIAN_PROJECT_FILE_SLA_MS", fallbackInt(cfg.ProjectFileSlaMs, 300_000))

	cfg.MaxTokenBudget, errs = collectInt(errs, "LIBRARIAN_MAX_TOKEN_BUDGET", fallbackInt(cfg.MaxTokenBudget, 8_000))
	cfg.MaxLatencyMs, errs = collectInt(errs, "LIBRARIAN_MAX_LATENCY_MS", fallbackInt(cfg.MaxLatencyMs, 30_000))
	cfg.MaxToolCallsPerTurn, errs = collectInt(errs, "LIBRARIAN_MAX_TOOL_CALLS_PER_TURN", fallbackInt(cfg.MaxToolCallsPerTurn, 12))

	var maxReqBody int
	maxReqBody, errs = collectInt(errs, "LIBRARIAN_MAX_REQUEST_BODY_BYTES", 1*1024*1024)
	cfg.MaxRequestBodyBytes = int64(maxReqBody)

	cfg.RateLimitBurstPerSecond, errs = collectFloat(errs, "LIBRARIAN_RATE_LIMIT_BURST_PER_SECOND", fallbackFloat(cfg.RateLimitBurstPerSecond, 5))
	cfg.RateLimitBurstCapacity, errs = collectFloat(errs, "LIBRARIAN_RATE_LIMIT_BURST_CAPACITY", fallbackFloat(cfg.RateLimitBurstCapacity, 20))
	cfg.RateLimitSustainedPerSecond, errs = collectFloat(errs, "LIBRARIAN_RATE_LIMIT_SUSTAINED_PER_SECOND", fallbackFloat(cfg.RateLimitSustainedPerSecond, 1))
	cfg.RateLimitSustainedCapacity, errs = collectFloat(errs, "LIBRARIAN_RATE_LIMIT_SUSTAINED_CAPACITY", fallbackFloat(cfg.RateLimitSustainedCapacity, 60))
	cfg.RateLimitHourlyCap, errs = collectFloat(errs, "LIBRARIAN_RATE_LIMIT_HOURLY_CAP", fallbackFloat(cfg.RateLimitHourlyCap, 2000))

	cfg.ReadTimeout, errs = collectDuration(errs, "LIBRARIAN_READ_TIMEOUT", 30*time.Second)
	cfg.WriteTimeout, errs = collectDuration(errs, "LIBRARIAN_WRITE_TIMEOUT", 30*time.Second)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fallbackInt(current, fallback int) int {
	if current != 0 {
		return current
	}
	return fallback
}

func fallbackFloat(current, fallback float64) float64 {
	if current != 0 {
		return current
	}
	return fallback
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectFloat parses a float env var, appending any error to the accumulator.
func collectFloat(errs []error, key string, fallback float64) (float64, []error) {
	v, err := envFloat(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectDuration parses a duration env var, appending any error to the accumulator.
func collectDuration(errs []error, key string, fallback time.Duration) (time.Duration, []error) {
	v, err := envDuration(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	var errs []error

	if c.DatabasePath == "" {
		errs = append(errs, errors.New("config: LIBRARIAN_DATABASE_PATH is required"))
	}
	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, errors.New("config: LIBRARIAN_EMBEDDING_DIMENSIONS must be positive"))
	}
	if c.MaxRequestBodyBytes <= 0 {
		errs = append(errs, errors.New("config: LIBRARIAN_MAX_REQUEST_BODY_BYTES must be positive"))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, errors.New("config: LIBRARIAN_READ_TIMEOUT must be positive"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("config: LIBRARIAN_WRITE_TIMEOUT must be positive"))
	}
	if c.WatchDebounceMs <= 0 {
		errs = append(errs, errors.New("config: LIBRARIAN_WATCH_DEBOUNCE_MS must be positive"))
	}
	if c.WatchBatchMs <= 0 {
		errs = append(errs, errors.New("config: LIBRARIAN_WATCH_BATCH_MS must be positive"))
	}
	if c.OpenFileSlaMs <= 0 || c.DependencySlaMs <= 0 || c.ProjectFileSlaMs <= 0 {
		errs = append(errs, errors.New("config: staleness SLA values must be positive"))
	}
	if c.MaxTokenBudget <= 0 {
		errs = append(errs, errors.New("config: LIBRARIAN_MAX_TOKEN_BUDGET must be positive"))
	}
	if c.RateLimitBurstCapacity <= 0 || c.RateLimitSustainedCapacity <= 0 {
		errs = append(errs, errors.New("config: rate limit capacities must be positive"))
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

// envStrSlice reads a comma-separated env var into a string slice.
// Returns fallback if the env var is empty or unset.
func envStrSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
