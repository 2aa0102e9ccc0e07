package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/kailas-cloud/dossier/internal/domain"
)

// HashedEmbedder is an offline embedder for local runs and tests. Each token
// is hashed into one of dims buckets, so texts sharing words get similar
// vectors. Output is L2-normalized and deterministic.
type HashedEmbedder struct {
	dims int
}

// NewHashedEmbedder creates a hashed embedder producing dims-sized vectors.
func NewHashedEmbedder(dims int) *HashedEmbedder {
	return &HashedEmbedder{dims: max(dims, 1)}
}

// Embed implements domain.Embedder.
func (h *HashedEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, h.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum32()
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vec[int(sum%uint32(h.dims))] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: len(tokens), TotalTokens: len(tokens)}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (h *HashedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, h, texts)
}

// HealthCheck always succeeds.
func (h *HashedEmbedder) HealthCheck(context.Context) error { return nil }
