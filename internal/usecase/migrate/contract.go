package migrate

import (
	"context"

	"github.com/kailas-cloud/dossier/internal/store"
)

// Store is the subset of the document store a migration touches.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Scan(ctx context.Context, partition, afterID string, limit int) ([]store.Document, error)
	BulkWrite(ctx context.Context, partition string, docs []store.Document) ([]store.ItemResult, error)
}
