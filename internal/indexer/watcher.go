package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// Reindexer is called once per coalesced batch of changed relative paths.
// It returns the set of paths that failed so the watcher can track
// per-path failure counts toward quarantine.
type Reindexer interface {
	ReindexPaths(ctx context.Context, paths []string) (failed []string, err error)
}

// Watcher recursively watches a workspace root, coalescing fsnotify events
// through a debounce window and then a batch window before handing the
// resulting path set to a Reindexer. Per spec.md §4.5: events for a given
// path are coalesced, reindexes for a single file are serialized (the
// watcher's event loop is single-goroutine), and a batch whose event count
// exceeds StormThreshold is dropped rather than acted on.
type Watcher struct {
	root   string
	opts   WatcherOptions
	logger *slog.Logger
	fs     *fsnotify.Watcher
	reindex Reindexer
	quarantine *Quarantine

	lastError string
}

// NewWatcher constructs a Watcher rooted at root. Call Run to start the
// event loop; Run blocks until ctx is canceled or the underlying fsnotify
// watcher is closed.
func NewWatcher(root string, opts WatcherOptions, reindex Reindexer, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:       root,
		opts:       opts,
		logger:     logger,
		fs:         fw,
		reindex:    reindex,
		quarantine: NewQuarantine(3),
	}
	if err := w.addDirs(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		base := d.Name()
		if path != root && (skipDirs[base] || (strings.HasPrefix(base, ".") && base != ".")) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil && !os.IsPermission(err) {
			w.logger.Warn("indexer: watch add failed", "path", path, "error", err)
		}
		return nil
	})
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.fs.Close() }

// LastError returns the watcher's last reconciliation error code (e.g.
// model.WatchEventStormError), or "" if none.
func (w *Watcher) LastError() string { return w.lastError }

// Run drives the debounce → batch → reindex event loop until ctx is
// canceled. Each fsnotify event resets the debounce timer; once no new
// events arrive for DebounceMs, a batch window of BatchWindowMs opens and
// further events accumulate into it. When the batch window closes, the
// accumulated path set (deduplicated) is either dropped (storm) or handed
// to the Reindexer.
func (w *Watcher) Run(ctx context.Context) error {
	var debounceTimer, batchTimer *time.Timer
	var debounceCh, batchCh <-chan time.Time
	pending := make(map[string]bool)
	eventCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				continue
			}
			pending[rel] = true
			eventCount++

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.opts.debounce())
			debounceCh = debounceTimer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("indexer: watch error", "error", err)

		case <-debounceCh:
			debounceCh = nil
			if batchTimer == nil {
				batchTimer = time.NewTimer(w.opts.batchWindow())
				batchCh = batchTimer.C
			}

		case <-batchCh:
			batchCh = nil
			batchTimer = nil
			w.flush(ctx, pending, eventCount)
			pending = make(map[string]bool)
			eventCount = 0
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]bool, eventCount int) {
	if len(pending) == 0 {
		return
	}
	if eventCount > w.opts.StormThreshold {
		w.lastError = model.WatchEventStormError
		w.logger.Warn("indexer: watch event storm, dropping batch", "events", eventCount, "threshold", w.opts.StormThreshold)
		return
	}

	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}

	failed, err := w.reindex.ReindexPaths(ctx, paths)
	if err != nil {
		w.logger.Error("indexer: reindex batch failed", "error", err)
		w.lastError = err.Error()
	} else {
		w.lastError = ""
	}
	for _, p := range failed {
		if w.quarantine.RecordFailure(p) {
			w.logger.Warn("indexer: path quarantined after repeated failures", "path", p)
		}
	}
}
