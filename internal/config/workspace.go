package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// workspaceFile is the shape of librarian.toml, the per-workspace tuning
// file. Every field is optional; zero values leave the env-var default in
// place.
type workspaceFile struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`

	Sla struct {
		OpenFileMs    int `toml:"open_file_ms"`
		DependencyMs  int `toml:"dependency_ms"`
		ProjectFileMs int `toml:"project_file_ms"`
	} `toml:"sla"`

	Watch struct {
		DebounceMs     int `toml:"debounce_ms"`
		BatchMs        int `toml:"batch_ms"`
		StormThreshold int `toml:"storm_threshold"`
	} `toml:"watch"`

	Retrieval struct {
		CascadeBatchLimit int     `toml:"cascade_batch_limit"`
		CoChangeWeight    float64 `toml:"co_change_weight"`
		CoChangeMaxBoost  float64 `toml:"co_change_max_boost"`
	} `toml:"retrieval"`
}

// loadWorkspaceFile reads <workspaceRoot>/librarian.toml if present. A
// missing file is not an error; this layer is optional.
func loadWorkspaceFile(workspaceRoot string) (*workspaceFile, error) {
	if workspaceRoot == "" {
		return nil, nil
	}
	path := filepath.Join(workspaceRoot, "librarian.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var wf workspaceFile
	if _, err := toml.DecodeFile(path, &wf); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &wf, nil
}

// applyWorkspaceFile copies non-zero fields from wf into cfg. Fields left
// zero in wf leave cfg's existing (env-default) value untouched; the
// subsequent env-var pass can still override whatever this sets.
func applyWorkspaceFile(cfg *Config, wf *workspaceFile) {
	if len(wf.Include) > 0 {
		cfg.IncludeGlobs = wf.Include
	}
	if len(wf.Exclude) > 0 {
		cfg.ExcludeGlobs = wf.Exclude
	}
	if wf.Sla.OpenFileMs > 0 {
		cfg.OpenFileSlaMs = wf.Sla.OpenFileMs
	}
	if wf.Sla.DependencyMs > 0 {
		cfg.DependencySlaMs = wf.Sla.DependencyMs
	}
	if wf.Sla.ProjectFileMs > 0 {
		cfg.ProjectFileSlaMs = wf.Sla.ProjectFileMs
	}
	if wf.Watch.DebounceMs > 0 {
		cfg.WatchDebounceMs = wf.Watch.DebounceMs
	}
	if wf.Watch.BatchMs > 0 {
		cfg.WatchBatchMs = wf.Watch.BatchMs
	}
	if wf.Watch.StormThreshold > 0 {
		cfg.WatchStormThresh = wf.Watch.StormThreshold
	}
	if wf.Retrieval.CascadeBatchLimit > 0 {
		cfg.CascadeBatchLimit = wf.Retrieval.CascadeBatchLimit
	}
	if wf.Retrieval.CoChangeWeight > 0 {
		cfg.CoChangeWeight = wf.Retrieval.CoChangeWeight
	}
	if wf.Retrieval.CoChangeMaxBoost > 0 {
		cfg.CoChangeMaxBoost = wf.Retrieval.CoChangeMaxBoost
	}
}
