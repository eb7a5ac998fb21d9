package indexer

import "time"

// WalkOptions controls the initial full enumeration of a workspace.
type WalkOptions struct {
	IncludeGlobs    []string
	ExcludeGlobs    []string
	MaxFileSizeBytes int64
}

// DefaultMaxFileSizeBytes skips files larger than this during walk/watch;
// oversized files are rarely source and parsing them wastes the embedding
// budget.
const DefaultMaxFileSizeBytes = 2 << 20 // 2 MiB

// WatcherOptions controls the watcher's debounce/batch/storm/cascade
// behavior, named directly after spec.md §4.5's parameters.
type WatcherOptions struct {
	DebounceMs       int
	BatchWindowMs    int
	StormThreshold   int
	CascadeDelayMs   int
	CascadeBatchSize int
	CascadeDisabled  bool
}

// DefaultWatcherOptions matches the teacher's single debounce-timer
// convention, extended with the batch window and storm threshold spec.md
// adds on top of it.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceMs:       300,
		BatchWindowMs:    2000,
		StormThreshold:   200,
		CascadeDelayMs:   1500,
		CascadeBatchSize: 50,
	}
}

func (o WatcherOptions) debounce() time.Duration     { return time.Duration(o.DebounceMs) * time.Millisecond }
func (o WatcherOptions) batchWindow() time.Duration  { return time.Duration(o.BatchWindowMs) * time.Millisecond }
func (o WatcherOptions) cascadeDelay() time.Duration { return time.Duration(o.CascadeDelayMs) * time.Millisecond }

// skipDirs names directories the walker and watcher never descend into:
// VCS metadata, dependency trees, and build output are noise for a code
// knowledge service and would otherwise dominate the index.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, "bin": true, ".librarian": true,
}
