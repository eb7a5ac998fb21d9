package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/storage"
)

type fakeIndexStore struct {
	files     map[string]model.File
	checksums map[string]string
	edges     []model.Edge
	embeds    map[string][]float32
	deleted   []string
}

func newFakeIndexStore() *fakeIndexStore {
	return &fakeIndexStore{
		files:     make(map[string]model.File),
		checksums: make(map[string]string),
		embeds:    make(map[string][]float32),
	}
}

func (s *fakeIndexStore) GetFileChecksum(_ context.Context, path string) (string, error) {
	c, ok := s.checksums[path]
	if !ok {
		return "", storage.ErrNotFound
	}
	return c, nil
}

func (s *fakeIndexStore) UpsertFile(_ context.Context, f model.File) error {
	s.files[f.Path] = f
	s.checksums[f.Path] = f.Checksum
	return nil
}

func (s *fakeIndexStore) DeleteFile(_ context.Context, path string) error {
	s.deleted = append(s.deleted, path)
	delete(s.files, path)
	delete(s.checksums, path)
	return nil
}

func (s *fakeIndexStore) UpsertFunction(_ context.Context, _ model.Function) error { return nil }
func (s *fakeIndexStore) UpsertModule(_ context.Context, _ model.Module) error     { return nil }

func (s *fakeIndexStore) UpsertEdges(_ context.Context, edges []model.Edge) error {
	s.edges = append(s.edges, edges...)
	return nil
}

func (s *fakeIndexStore) PutEmbedding(_ context.Context, targetID, _ string, vector []float32, _ string) error {
	s.embeds[targetID] = vector
	return nil
}

func (s *fakeIndexStore) GetKnowledgeEdgesTo(_ context.Context, nodeID string) ([]model.Edge, error) {
	var out []model.Edge
	for _, e := range s.edges {
		if e.TargetID == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestReindexPaths_NewFileIndexesEmbedsAndEdges(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root, "pkg/a.go", "package pkg\n\nimport \"fmt\"\n\nfunc Hello() {\n\tfmt.Println(\"hi\")\n}\n")

	store := newFakeIndexStore()
	ix := New(root, store, nil, nil)

	failed, err := ix.ReindexPaths(context.Background(), []string{"pkg/a.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("expected no failures, got %v", failed)
	}

	f, ok := store.files["pkg/a.go"]
	if !ok {
		t.Fatal("expected pkg/a.go to be indexed")
	}
	if f.Language != "go" {
		t.Fatalf("expected go language, got %s", f.Language)
	}
	if !contains(f.ExportedSymbols, "Hello") {
		t.Fatalf("expected Hello exported symbol, got %v", f.ExportedSymbols)
	}
	if _, ok := store.embeds["pkg/a.go"]; !ok {
		t.Fatal("expected an embedding to be stored")
	}
	if len(store.edges) == 0 {
		t.Fatal("expected at least one import edge")
	}
}

func TestReindexPaths_UnchangedChecksumSkipsReembed(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root, "a.go", "package a")

	store := newFakeIndexStore()
	ix := New(root, store, nil, nil)

	if _, err := ix.ReindexPaths(context.Background(), []string{"a.go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstEmbed := store.embeds["a.go"]
	store.embeds["a.go"] = nil // clear to detect re-embed

	if _, err := ix.ReindexPaths(context.Background(), []string{"a.go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.embeds["a.go"] != nil {
		t.Fatal("expected unchanged checksum to skip re-embedding")
	}
	_ = firstEmbed
}

func TestReindexPaths_DeletedFileRemovesFromStore(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root, "a.go", "package a")

	store := newFakeIndexStore()
	ix := New(root, store, nil, nil)
	if _, err := ix.ReindexPaths(context.Background(), []string{"a.go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.Remove(filepath.Join(root, "a.go")); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.ReindexPaths(context.Background(), []string{"a.go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.files["a.go"]; ok {
		t.Fatal("expected deleted file removed from store")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected one delete recorded, got %v", store.deleted)
	}
}

func contains(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
