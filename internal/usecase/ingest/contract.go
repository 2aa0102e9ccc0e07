package ingest

import (
	"context"

	"github.com/kailas-cloud/dossier/internal/store"
)

// Writer submits one batch of documents.
type Writer interface {
	BulkWrite(ctx context.Context, partition string, docs []store.Document) ([]store.ItemResult, error)
}

// Observer receives per-batch accounting, e.g. for metrics.
type Observer interface {
	ObserveBatch(collection, outcome string, succeeded, failed int)
}

// Hook prepares a batch in place before submission. An error fails the whole batch.
type Hook[T any] func(ctx context.Context, items []T) error
