// Package store defines the document store contract shared by the Mongo and
// in-memory backends.
package store

import (
	"context"
	"time"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
)

// Store is the main document store facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	PartitionManager
	Searcher
	Writer
	Archiver
	Scanner
	Close(ctx context.Context) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PartitionManager provides partition lifecycle operations.
type PartitionManager interface {
	Exists(ctx context.Context, name string) (bool, error)
	CreatePartition(ctx context.Context, name string, schema *Schema) error
	CreatePartitionTemplate(ctx context.Context, pattern string, schema *Schema) error
}

// Searcher runs compiled queries across partitions.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
}

// Writer stores batches of documents.
type Writer interface {
	BulkWrite(ctx context.Context, partition string, docs []Document) ([]ItemResult, error)
}

// Archiver provides the set-based operations the archival pipeline needs.
type Archiver interface {
	AggregateByYear(ctx context.Context, partition, field string, q query.Query) (map[int]int64, error)
	Reindex(ctx context.Context, sources []string, q query.Query, dest string) (int64, error)
	DeleteByQuery(ctx context.Context, partition string, q query.Query) (int64, error)
}

// Scanner pages through a partition ordered by document id.
type Scanner interface {
	Scan(ctx context.Context, partition, afterID string, limit int) ([]Document, error)
}

// Document is a stored document: its id and its JSON-like source.
// Source values are strings, numbers, bools, time.Time, []any, map[string]any and []float32.
type Document struct {
	ID     string
	Source map[string]any
}

// ItemResult is the outcome of one document in a bulk write, in input order.
type ItemResult struct {
	ID  string
	Err error
}

// KNN is a k-nearest-neighbour clause over a dense vector field.
type KNN struct {
	Field         string
	Vector        []float32
	K             int
	NumCandidates int
	// MinScore drops hits scoring below it when set.
	MinScore *float64
}

// SearchRequest is a compiled search against one or more partitions.
// Partition names ending in '*' are patterns resolved by the store.
type SearchRequest struct {
	Partitions []string
	Query      query.Query
	Sort       []query.Sort
	From       int
	Size       int
	KNN        *KNN
}

// Hit is a single search result.
type Hit struct {
	Partition string
	Document
	Score float64
}

// SearchResult holds hits and the total match count.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// OperationTimeout bounds a single store call.
func OperationTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
