package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/nateschmiedehaus/librarian/internal/embedding"
	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/retrieval"
)

// CandidateStore is the narrow storage surface StorageRetriever needs to
// build a candidate set: every function in the workspace, keyed by the
// files the indexer has already embedded.
type CandidateStore interface {
	GetFunctionsByFile(ctx context.Context, filePath string) ([]model.Function, error)
	GetFiles(ctx context.Context) ([]model.File, error)
	GetEmbeddingsByKind(ctx context.Context, kind string) (map[string][]float32, error)
}

// StorageRetriever is the default Retriever: it embeds the query intent,
// pulls every indexed function as a candidate, and scores with facet
// vectors already stored by the indexing pipeline.
type StorageRetriever struct {
	Store     CandidateStore
	Embedder  embedding.Provider
}

// NewStorageRetriever builds a Retriever over store and embedder.
func NewStorageRetriever(store CandidateStore, embedder embedding.Provider) *StorageRetriever {
	return &StorageRetriever{Store: store, Embedder: embedder}
}

func (r *StorageRetriever) Candidates(ctx context.Context, req model.QueryRequest) (retrieval.Query, []retrieval.Candidate, map[string]string, error) {
	semantic, err := r.Embedder.Embed(ctx, req.Intent)
	if err != nil {
		return retrieval.Query{}, nil, nil, &model.ProviderError{Provider: "embedding", Err: err, Retryable: true}
	}

	vectors, err := r.Store.GetEmbeddingsByKind(ctx, "function")
	if err != nil {
		return retrieval.Query{}, nil, nil, &model.StorageError{Op: "GetEmbeddingsByKind", Err: err, Retryable: true}
	}

	files, err := r.Store.GetFiles(ctx)
	if err != nil {
		return retrieval.Query{}, nil, nil, &model.StorageError{Op: "GetFiles", Err: err, Retryable: true}
	}

	keywords := strings.Fields(strings.ToLower(req.Intent))

	candidates := make([]retrieval.Candidate, 0, len(vectors))
	texts := make(map[string]string, len(vectors))
	seeds := make(map[string]bool, len(req.AffectedFiles))
	for _, f := range req.AffectedFiles {
		seeds[f] = true
	}

	for _, file := range files {
		fns, ferr := r.Store.GetFunctionsByFile(ctx, file.Path)
		if ferr != nil {
			continue
		}
		for _, fn := range fns {
			vec, ok := vectors[fn.ID]
			if !ok {
				continue
			}
			depth := -1
			if seeds[file.Path] {
				depth = 0
			}
			candidates = append(candidates, retrieval.Candidate{
				TargetID:       fn.ID,
				Facets:         retrieval.Facets{Semantic: vec, Lexical: vec, Purpose: vec},
				Keywords:       strings.Fields(strings.ToLower(fn.Name + " " + fn.Signature)),
				GraphDepth:     depth,
				IsTestOrVendor: strings.Contains(file.Path, "_test.go") || strings.Contains(file.Path, "/vendor/"),
			})
			texts[fn.ID] = fmt.Sprintf("%s: %s", fn.Name, fn.Signature)
		}
	}

	q := retrieval.Query{
		Text:     req.Intent,
		Facets:   retrieval.Facets{Semantic: semantic, Lexical: semantic, Purpose: semantic},
		Keywords: keywords,
	}
	return q, candidates, texts, nil
}

var _ Retriever = (*StorageRetriever)(nil)
