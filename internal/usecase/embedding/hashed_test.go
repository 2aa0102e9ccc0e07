package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashedEmbedder_Deterministic(t *testing.T) {
	h := NewHashedEmbedder(64)
	a, _ := h.Embed(context.Background(), "Red running shoes")
	b, _ := h.Embed(context.Background(), "red RUNNING shoes!")
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatalf("expected identical vectors at %d", i)
		}
	}
}

func TestHashedEmbedder_Normalized(t *testing.T) {
	res, _ := NewHashedEmbedder(32).Embed(context.Background(), "wool winter jacket")
	if n := math.Sqrt(cosine(res.Embedding, res.Embedding)); math.Abs(n-1) > 1e-5 {
		t.Fatalf("expected unit norm, got %f", n)
	}
	if res.TotalTokens != 3 {
		t.Errorf("expected 3 tokens, got %d", res.TotalTokens)
	}
}

func TestHashedEmbedder_SharedWordsAreCloser(t *testing.T) {
	h := NewHashedEmbedder(256)
	q, _ := h.Embed(context.Background(), "running shoes")
	near, _ := h.Embed(context.Background(), "lightweight running shoes for trails")
	far, _ := h.Embed(context.Background(), "ceramic coffee mug")

	if cosine(q.Embedding, near.Embedding) <= cosine(q.Embedding, far.Embedding) {
		t.Fatal("expected texts sharing words to score higher")
	}
}

func TestHashedEmbedder_EmptyText(t *testing.T) {
	res, err := NewHashedEmbedder(8).BatchEmbed(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range res.Embeddings[0] {
		if v != 0 {
			t.Fatal("expected zero vector for empty text")
		}
	}
}
