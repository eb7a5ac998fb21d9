package indexer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nateschmiedehaus/librarian/internal/embedding"
	"github.com/nateschmiedehaus/librarian/internal/indexer/parse"
	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/storage"
)

// Store is the subset of *storage.DB the indexer writes through. Narrowed
// to an interface so ReindexPaths is testable without a real SQLite file.
type Store interface {
	GetFileChecksum(ctx context.Context, path string) (string, error)
	UpsertFile(ctx context.Context, f model.File) error
	DeleteFile(ctx context.Context, path string) error
	UpsertFunction(ctx context.Context, fn model.Function) error
	UpsertModule(ctx context.Context, m model.Module) error
	UpsertEdges(ctx context.Context, edges []model.Edge) error
	PutEmbedding(ctx context.Context, targetID, kind string, vector []float32, modelName string) error
	GetKnowledgeEdgesTo(ctx context.Context, nodeID string) ([]model.Edge, error)
}

var _ Store = (*storage.DB)(nil)

// Indexer implements the Reindexer interface, turning a batch of changed
// repository-relative paths into files/functions/modules/embeddings/edges
// upserted into Store. Per spec.md's data-flow note: watcher event →
// debounce/batch → checksum compare → parse → embedding → storage upsert →
// graph edges updated → cascade queue enqueues dependents.
type Indexer struct {
	root      string
	store     Store
	embedder  embedding.Provider
	logger    *slog.Logger
	cascade   *CascadeQueue
	embedKind string
}

// New constructs an Indexer rooted at root. If embedder is nil, a
// HashProvider is used so indexing never blocks on an unconfigured
// embedding backend.
func New(root string, store Store, embedder embedding.Provider, logger *slog.Logger) *Indexer {
	if embedder == nil {
		embedder = embedding.NewHashProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Indexer{root: root, store: store, embedder: embedder, logger: logger, embedKind: "file"}
	ix.cascade = NewCascadeQueue(DefaultWatcherOptions(), func(paths []string) {
		if _, err := ix.ReindexPaths(context.Background(), paths); err != nil {
			ix.logger.Warn("indexer: cascade reindex failed", "error", err)
		}
	})
	return ix
}

// ReindexPaths satisfies the Watcher's Reindexer interface. It skips any
// path whose on-disk checksum matches the stored one, so repeated storms of
// no-op events (e.g. a save that rewrites identical bytes) cost a single
// stat+hash rather than a full reparse+reembed+upsert.
func (ix *Indexer) ReindexPaths(ctx context.Context, paths []string) ([]string, error) {
	var failed []string
	var allEdges []model.Edge

	for _, rel := range paths {
		full := filepath.Join(ix.root, rel)
		info, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				if derr := ix.store.DeleteFile(ctx, rel); derr != nil {
					ix.logger.Warn("indexer: delete file failed", "path", rel, "error", derr)
				}
				continue
			}
			failed = append(failed, rel)
			continue
		}
		if info.IsDir() {
			continue
		}

		edges, err := ix.reindexFile(ctx, rel, full, info)
		if err != nil {
			ix.logger.Warn("indexer: reindex failed", "path", rel, "error", err)
			failed = append(failed, rel)
			continue
		}
		allEdges = append(allEdges, edges...)
		ix.cascade.Enqueue(ix.dependentsOf(ctx, rel)...)
	}

	if len(allEdges) > 0 {
		if err := ix.store.UpsertEdges(ctx, allEdges); err != nil {
			ix.logger.Warn("indexer: upsert edges failed", "error", err)
		}
	}
	return failed, nil
}

func (ix *Indexer) reindexFile(ctx context.Context, rel, full string, info os.FileInfo) ([]model.Edge, error) {
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	checksum := Checksum16(content)

	existing, err := ix.store.GetFileChecksum(ctx, rel)
	if err == nil && existing == checksum {
		return nil, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	result := parse.File(rel, content)
	now := time.Now().UTC()

	file := model.File{
		Path:         rel,
		Checksum:     checksum,
		SizeBytes:       info.Size(),
		LastModified:    info.ModTime().UTC(),
		LastIndexed:     now,
		Category:        categorize(rel),
		Role:            roleOf(rel),
		Language:        result.Language,
		Imports:         result.Imports,
		ExportedSymbols: result.Symbols,
	}
	if err := ix.store.UpsertFile(ctx, file); err != nil {
		return nil, err
	}

	vec, err := ix.embedder.Embed(ctx, embeddingText(file, content))
	if err != nil {
		ix.logger.Warn("indexer: embed failed", "path", rel, "error", err)
	} else if err := ix.store.PutEmbedding(ctx, rel, ix.embedKind, vec, providerName(ix.embedder)); err != nil {
		ix.logger.Warn("indexer: put embedding failed", "path", rel, "error", err)
	}

	edges := make([]model.Edge, 0, len(result.Imports))
	for _, imp := range result.Imports {
		edges = append(edges, model.Edge{
			SourceID:   rel,
			TargetID:   imp,
			Type:       model.EdgeImports,
			Weight:     1,
			Confidence: 1,
			ComputedAt: now,
		})
	}
	return edges, nil
}

// embeddingText builds the string handed to the embedding provider: path
// plus exported symbols plus a content snippet, so a hash-bucketed provider
// still captures path and symbol-name signal distinct from raw prose.
func embeddingText(f model.File, content []byte) string {
	var b strings.Builder
	b.WriteString(f.Path)
	b.WriteString(" ")
	b.WriteString(strings.Join(f.ExportedSymbols, " "))
	b.WriteString(" ")
	if len(content) > 4096 {
		content = content[:4096]
	}
	b.Write(content)
	return b.String()
}

func providerName(p embedding.Provider) string {
	switch p.(type) {
	case *embedding.HashProvider:
		return "hash"
	case *embedding.OllamaProvider:
		return "ollama"
	default:
		return "unknown"
	}
}

// categorize applies the same path heuristics spec.md's staleness SLA
// selection depends on.
func categorize(rel string) model.FileCategory {
	lower := strings.ToLower(rel)
	switch {
	case strings.Contains(lower, "vendor/") || strings.Contains(lower, "node_modules/"):
		return model.FileCategoryVendor
	case strings.Contains(lower, "_test.") || strings.Contains(lower, "/test/") || strings.Contains(lower, "/tests/"):
		return model.FileCategoryTest
	case strings.Contains(lower, "generated") || strings.HasSuffix(lower, ".pb.go"):
		return model.FileCategoryGenerated
	case strings.HasPrefix(lower, ".librarian/") || strings.Contains(lower, "/.librarian/"):
		return model.FileCategoryDependency
	default:
		return model.FileCategoryProject
	}
}

func roleOf(rel string) model.FileRole {
	base := filepath.Base(rel)
	lower := strings.ToLower(rel)
	switch {
	case base == "main.go" || strings.Contains(lower, "cmd/"):
		return model.FileRoleEntrypoint
	case strings.Contains(lower, "_test.") || strings.Contains(lower, "/test/"):
		return model.FileRoleTest
	case strings.Contains(lower, "config") || strings.HasSuffix(base, ".toml") || strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml"):
		return model.FileRoleConfig
	case strings.HasSuffix(base, ".go") || strings.HasSuffix(base, ".py") || strings.HasSuffix(base, ".ts") || strings.HasSuffix(base, ".js"):
		return model.FileRoleLibrary
	default:
		return model.FileRoleUnknown
	}
}

// dependentsOf looks up files that import rel, so a change to rel's
// exported symbols can cascade a (delayed, batched) reindex to its callers.
func (ix *Indexer) dependentsOf(ctx context.Context, rel string) []string {
	edges, err := ix.store.GetKnowledgeEdgesTo(ctx, rel)
	if err != nil {
		return nil
	}
	var deps []string
	for _, e := range edges {
		if e.Type == model.EdgeImports {
			deps = append(deps, e.SourceID)
		}
	}
	return deps
}

// Shutdown flushes any pending cascade work before the process exits.
func (ix *Indexer) Shutdown(ctx context.Context) {
	ix.cascade.Flush(ctx)
}
