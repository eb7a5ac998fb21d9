// Package embedding provides vector embedding generation for the retrieval
// engine.
//
// Defines a Provider interface and a deterministic local implementation that
// requires no network access. An OllamaProvider adapter is also available
// for workspaces with a local Ollama daemon configured.
package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// ErrNoProvider is returned by NoopProvider to signal that no real embedding
// provider is configured. Callers should treat this as "no embedding
// available" rather than a transient failure.
var ErrNoProvider = errors.New("embedding: no provider configured (noop)")

// Provider generates vector embeddings from text.
type Provider interface {
	// Embed generates a single embedding vector from text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimensionality.
	Dimensions() int
}

// HashDimensions is the fixed output size of HashProvider's vectors.
const HashDimensions = 384

// HashProvider generates deterministic, feature-hashed bag-of-tokens
// embeddings. It has no external dependency and is always available,
// making it the default provider — workspaces without a configured LLM
// backend still get usable (if coarser) semantic scoring rather than no
// retrieval at all.
type HashProvider struct{}

// NewHashProvider creates the default deterministic local provider.
func NewHashProvider() *HashProvider { return &HashProvider{} }

// Dimensions returns HashDimensions.
func (p *HashProvider) Dimensions() int { return HashDimensions }

// Embed tokenizes text, hashes each token into one of HashDimensions
// buckets (the hashing trick), accumulates counts, and L2-normalizes the
// result. Identical text always produces an identical vector; this is not a
// substitute for a learned embedding model but gives co-occurring
// identifiers and prose a stable similarity signal.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, HashDimensions)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := h.Sum32() % HashDimensions
		sign := float32(1)
		if (h.Sum32()>>31)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}
	return l2Normalize(vec), nil
}

// EmbedBatch embeds each text independently; the hash provider has no batch
// API to exploit, so this is just a loop.
func (p *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

// tokenize lowercases and splits on non-alphanumeric runs, which is enough
// to separate identifiers, words, and punctuation in both prose and code.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func l2Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, f := range v {
		sumSquares += float64(f) * float64(f)
	}
	if sumSquares == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f / norm
	}
	return out
}

// NoopProvider returns ErrNoProvider for every call. Used when embedding is
// explicitly disabled (e.g. in tests that don't exercise retrieval).
type NoopProvider struct {
	dims int
}

// NewNoopProvider creates a provider that always errors.
func NewNoopProvider(dims int) *NoopProvider {
	return &NoopProvider{dims: dims}
}

// Dimensions returns the configured dimensionality.
func (p *NoopProvider) Dimensions() int { return p.dims }

// Embed returns ErrNoProvider.
func (p *NoopProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrNoProvider
}

// EmbedBatch returns ErrNoProvider.
func (p *NoopProvider) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrNoProvider
}
