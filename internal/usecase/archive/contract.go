package archive

import (
	"context"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
)

// Store provides the set-based operations archival needs.
type Store interface {
	AggregateByYear(ctx context.Context, partition, field string, q query.Query) (map[int]int64, error)
	Reindex(ctx context.Context, sources []string, q query.Query, dest string) (int64, error)
	DeleteByQuery(ctx context.Context, partition string, q query.Query) (int64, error)
}

// Observer receives per-year outcomes, e.g. for metrics.
type Observer interface {
	ObserveYear(collection, status string, documents int64)
}
