package indexer

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCascadeQueue_BatchesWithinDelay(t *testing.T) {
	var mu sync.Mutex
	var flushed [][]string
	opts := WatcherOptions{CascadeDelayMs: 20, CascadeBatchSize: 10}
	q := NewCascadeQueue(opts, func(paths []string) {
		mu.Lock()
		flushed = append(flushed, paths)
		mu.Unlock()
	})

	q.Enqueue("a.go")
	q.Enqueue("b.go")
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 1 {
		t.Fatalf("expected a single flush batching both paths, got %d flushes: %v", len(flushed), flushed)
	}
	if len(flushed[0]) != 2 {
		t.Fatalf("expected 2 paths in the batch, got %v", flushed[0])
	}
}

func TestCascadeQueue_RespectsBatchSize(t *testing.T) {
	var mu sync.Mutex
	var flushed [][]string
	opts := WatcherOptions{CascadeDelayMs: 10, CascadeBatchSize: 2}
	q := NewCascadeQueue(opts, func(paths []string) {
		mu.Lock()
		flushed = append(flushed, paths)
		mu.Unlock()
	})

	q.Enqueue("a.go", "b.go", "c.go")
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, b := range flushed {
		if len(b) > 2 {
			t.Fatalf("expected batches capped at 2, got %v", b)
		}
		total += len(b)
	}
	if total != 3 {
		t.Fatalf("expected all 3 paths flushed across batches, got %d", total)
	}
}

func TestCascadeQueue_DisabledDropsEnqueue(t *testing.T) {
	called := false
	opts := WatcherOptions{CascadeDisabled: true, CascadeDelayMs: 10}
	q := NewCascadeQueue(opts, func(paths []string) { called = true })
	q.Enqueue("a.go")
	time.Sleep(30 * time.Millisecond)
	if called {
		t.Fatal("expected disabled cascade queue to never flush")
	}
}

func TestCascadeQueue_ForceFlush(t *testing.T) {
	var mu sync.Mutex
	var flushed []string
	opts := WatcherOptions{CascadeDelayMs: int(time.Hour.Milliseconds())}
	q := NewCascadeQueue(opts, func(paths []string) {
		mu.Lock()
		flushed = append(flushed, paths...)
		mu.Unlock()
	})
	q.Enqueue("a.go")
	q.Flush(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 1 || flushed[0] != "a.go" {
		t.Fatalf("expected forced flush to deliver a.go, got %v", flushed)
	}
}
