package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeReindexer struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakeReindexer) ReindexPaths(_ context.Context, paths []string) ([]string, error) {
	f.mu.Lock()
	cp := append([]string{}, paths...)
	f.calls = append(f.calls, cp)
	f.mu.Unlock()
	return nil, nil
}

func (f *fakeReindexer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestWatcher_DebouncesRapidEditsIntoOneBatch(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root, "a.go", "v1")

	reindexer := &fakeReindexer{}
	opts := WatcherOptions{DebounceMs: 30, BatchWindowMs: 30, StormThreshold: 100}
	w, err := NewWatcher(root, opts, reindexer, nil)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 5; i++ {
		os.WriteFile(filepath.Join(root, "a.go"), []byte("v"+string(rune('0'+i))), 0o644)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)
	if reindexer.callCount() == 0 {
		t.Fatal("expected at least one reindex batch")
	}
	if reindexer.callCount() > 2 {
		t.Fatalf("expected rapid edits coalesced into very few batches, got %d", reindexer.callCount())
	}
}

func TestWatcher_StormThresholdDropsBatch(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root, "a.go", "v1")

	reindexer := &fakeReindexer{}
	opts := WatcherOptions{DebounceMs: 10, BatchWindowMs: 10, StormThreshold: 1}
	w, err := NewWatcher(root, opts, reindexer, nil)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 10; i++ {
		os.WriteFile(filepath.Join(root, "a.go"), []byte{byte(i)}, 0o644)
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	if w.LastError() != "watch_event_storm" {
		t.Fatalf("expected storm error recorded, got %q", w.LastError())
	}
}
