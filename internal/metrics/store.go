package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

// StoreOperationDuration tracks document store latency per operation.
var StoreOperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dossier",
		Name:      "store_operation_duration_seconds",
		Help:      "Document store operation duration in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	},
	[]string{"op", "status"},
)

var storeMetricsRegistered bool

// RegisterStoreMetrics registers the store latency histogram.
func RegisterStoreMetrics() {
	if storeMetricsRegistered {
		return
	}
	prometheus.MustRegister(StoreOperationDuration)
	storeMetricsRegistered = true
}

// InstrumentedStore times every call of the wrapped store.
type InstrumentedStore struct {
	inner store.Store
}

var _ store.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps st.
func NewInstrumentedStore(st store.Store) *InstrumentedStore {
	return &InstrumentedStore{inner: st}
}

func observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, store.ErrPartitionNotFound):
		status = "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	default:
		status = "error"
	}
	StoreOperationDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// Ping implements store.Pinger.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Ping(ctx)
	observe(store.OpPing, start, err)
	return err //nolint:wrapcheck // transparent decorator
}

// Close closes the wrapped store.
func (s *InstrumentedStore) Close(ctx context.Context) error {
	return s.inner.Close(ctx) //nolint:wrapcheck // transparent decorator
}

// Exists implements store.PartitionManager.
func (s *InstrumentedStore) Exists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	ok, err := s.inner.Exists(ctx, name)
	observe(store.OpExists, start, err)
	return ok, err //nolint:wrapcheck // transparent decorator
}

// CreatePartition implements store.PartitionManager.
func (s *InstrumentedStore) CreatePartition(ctx context.Context, name string, schema *store.Schema) error {
	start := time.Now()
	err := s.inner.CreatePartition(ctx, name, schema)
	observe(store.OpCreate, start, err)
	return err //nolint:wrapcheck // transparent decorator
}

// CreatePartitionTemplate implements store.PartitionManager.
func (s *InstrumentedStore) CreatePartitionTemplate(ctx context.Context, pattern string, schema *store.Schema) error {
	start := time.Now()
	err := s.inner.CreatePartitionTemplate(ctx, pattern, schema)
	observe(store.OpCreateTemplate, start, err)
	return err //nolint:wrapcheck // transparent decorator
}

// Search implements store.Searcher.
func (s *InstrumentedStore) Search(ctx context.Context, req *store.SearchRequest) (*store.SearchResult, error) {
	start := time.Now()
	res, err := s.inner.Search(ctx, req)
	observe(store.OpSearch, start, err)
	return res, err //nolint:wrapcheck // transparent decorator
}

// BulkWrite implements store.Writer.
func (s *InstrumentedStore) BulkWrite(ctx context.Context, partition string, docs []store.Document) ([]store.ItemResult, error) {
	start := time.Now()
	res, err := s.inner.BulkWrite(ctx, partition, docs)
	observe(store.OpBulk, start, err)
	return res, err //nolint:wrapcheck // transparent decorator
}

// AggregateByYear implements store.Archiver.
func (s *InstrumentedStore) AggregateByYear(ctx context.Context, partition, field string, q query.Query) (map[int]int64, error) {
	start := time.Now()
	res, err := s.inner.AggregateByYear(ctx, partition, field, q)
	observe(store.OpAggregate, start, err)
	return res, err //nolint:wrapcheck // transparent decorator
}

// Reindex implements store.Archiver.
func (s *InstrumentedStore) Reindex(ctx context.Context, sources []string, q query.Query, dest string) (int64, error) {
	start := time.Now()
	n, err := s.inner.Reindex(ctx, sources, q, dest)
	observe(store.OpReindex, start, err)
	return n, err //nolint:wrapcheck // transparent decorator
}

// DeleteByQuery implements store.Archiver.
func (s *InstrumentedStore) DeleteByQuery(ctx context.Context, partition string, q query.Query) (int64, error) {
	start := time.Now()
	n, err := s.inner.DeleteByQuery(ctx, partition, q)
	observe(store.OpDeleteByQuery, start, err)
	return n, err //nolint:wrapcheck // transparent decorator
}

// Scan implements store.Scanner.
func (s *InstrumentedStore) Scan(ctx context.Context, partition, afterID string, limit int) ([]store.Document, error) {
	start := time.Now()
	docs, err := s.inner.Scan(ctx, partition, afterID, limit)
	observe(store.OpScan, start, err)
	return docs, err //nolint:wrapcheck // transparent decorator
}
