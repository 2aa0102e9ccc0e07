package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/store"
)

// Store runs compiled searches.
type Store interface {
	Search(ctx context.Context, req *store.SearchRequest) (*store.SearchResult, error)
}

// Router picks the partitions for a createdAt window.
type Router interface {
	Route(from, to *time.Time) ([]string, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Limits bounds result page sizes and the time one store search may take.
type Limits struct {
	DefaultSize int
	MaxSize     int
	// OperationTimeout bounds each store search; zero leaves only the caller's deadline.
	OperationTimeout time.Duration
}

// Page is one page of decoded search hits.
type Page[T any] struct {
	Items      []T
	Total      int
	Partitions []string
}
