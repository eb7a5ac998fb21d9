package indexer

import (
	"context"
	"sync"
	"time"
)

// CascadeQueue delays and batches dependent-file reindex requests after a
// successful reindex of a trigger file, per spec.md §4.5's "Cascade"
// paragraph: after reindexing F, the source modules of any `imports` edge
// ending at F's module get pushed here rather than reindexed inline, so a
// single edited file doesn't synchronously fan out into an unbounded chain
// of reindexes on the same goroutine.
type CascadeQueue struct {
	mu       sync.Mutex
	opts     WatcherOptions
	pending  map[string]bool
	timer    *time.Timer
	flushFn  func(paths []string)
}

// NewCascadeQueue constructs a queue that calls flush with up to
// CascadeBatchSize paths, CascadeDelayMs after the first Enqueue since the
// last flush. A CascadeDisabled queue silently drops every Enqueue, per the
// config note that cascade reindex can be disabled.
func NewCascadeQueue(opts WatcherOptions, flush func(paths []string)) *CascadeQueue {
	return &CascadeQueue{opts: opts, pending: make(map[string]bool), flushFn: flush}
}

// Enqueue adds paths to the pending cascade set, starting (or leaving
// running) the delay timer. A no-op when the queue is disabled.
func (q *CascadeQueue) Enqueue(paths ...string) {
	if q.opts.CascadeDisabled || len(paths) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range paths {
		q.pending[p] = true
	}
	if q.timer == nil {
		q.timer = time.AfterFunc(q.opts.cascadeDelay(), q.flush)
	}
}

func (q *CascadeQueue) flush() {
	q.mu.Lock()
	all := make([]string, 0, len(q.pending))
	for p := range q.pending {
		all = append(all, p)
	}
	q.pending = make(map[string]bool)
	q.timer = nil
	q.mu.Unlock()

	batchSize := q.opts.CascadeBatchSize
	if batchSize <= 0 {
		batchSize = len(all)
	}
	for start := 0; start < len(all); start += batchSize {
		end := start + batchSize
		if end > len(all) {
			end = len(all)
		}
		q.flushFn(all[start:end])
	}
}

// Flush forces an immediate flush of whatever is pending, used in tests and
// on graceful shutdown so nothing enqueued is silently dropped.
func (q *CascadeQueue) Flush(_ context.Context) {
	q.mu.Lock()
	hasTimer := q.timer != nil
	if hasTimer {
		q.timer.Stop()
	}
	q.mu.Unlock()
	q.flush()
}
