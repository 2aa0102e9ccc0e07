package provision

import (
	"context"

	"github.com/kailas-cloud/dossier/internal/store"
)

// Store creates partitions and templates.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	CreatePartition(ctx context.Context, name string, schema *store.Schema) error
	CreatePartitionTemplate(ctx context.Context, pattern string, schema *store.Schema) error
}
