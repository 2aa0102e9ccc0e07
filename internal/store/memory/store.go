// Package memory is an in-process document store that evaluates compiled
// queries directly. It backs tests and the "memory" store driver.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

type partition struct {
	schema *store.Schema
	docs   map[string]map[string]any
}

// Store is a goroutine-safe in-memory store.Store.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	templates  map[string]*store.Schema
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		partitions: make(map[string]*partition),
		templates:  make(map[string]*store.Schema),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// Exists reports whether a partition exists.
func (s *Store) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.partitions[name]
	return ok, nil
}

// CreatePartition creates an empty partition.
func (s *Store) CreatePartition(_ context.Context, name string, schema *store.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partitions[name]; ok {
		return &store.Error{Op: store.OpCreate, Err: fmt.Errorf("%s: %w", name, store.ErrPartitionExists)}
	}
	s.partitions[name] = &partition{schema: schema, docs: make(map[string]map[string]any)}
	return nil
}

// CreatePartitionTemplate registers the schema used for partitions created
// lazily under pattern.
func (s *Store) CreatePartitionTemplate(_ context.Context, pattern string, schema *store.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[pattern] = schema
	return nil
}

// Search evaluates req across the resolved partitions.
func (s *Store) Search(ctx context.Context, req *store.SearchRequest) (*store.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap(store.OpSearch, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names, err := s.resolve(req.Partitions)
	if err != nil {
		return nil, store.Wrap(store.OpSearch, err)
	}

	var hits []store.Hit
	if req.KNN != nil {
		hits, err = s.knn(names, req)
	} else {
		hits, err = s.filter(names, req.Query)
		sortHits(hits, req.Sort)
	}
	if err != nil {
		return nil, store.Wrap(store.OpSearch, err)
	}

	total := len(hits)
	from := min(max(req.From, 0), total)
	end := total
	if req.Size > 0 {
		end = min(from+req.Size, total)
	}
	return &store.SearchResult{Total: total, Hits: hits[from:end]}, nil
}

func (s *Store) filter(names []string, q query.Query) ([]store.Hit, error) {
	var hits []store.Hit
	for _, name := range names {
		for id, src := range s.partitions[name].docs {
			ok, err := matches(q, src)
			if err != nil {
				return nil, err
			}
			if ok {
				hits = append(hits, store.Hit{
					Partition: name,
					Document:  store.Document{ID: id, Source: clone(src)},
				})
			}
		}
	}
	return hits, nil
}

// knn scores every document, keeps the top K and applies the query as a post-filter.
func (s *Store) knn(names []string, req *store.SearchRequest) ([]store.Hit, error) {
	k := req.KNN
	var scored []store.Hit
	for _, name := range names {
		for id, src := range s.partitions[name].docs {
			vals := lookup(src, k.Field)
			if len(vals) != 1 {
				continue
			}
			vec, ok := vectorOf(vals[0])
			if !ok {
				continue
			}
			scored = append(scored, store.Hit{
				Partition: name,
				Document:  store.Document{ID: id, Source: src},
				Score:     cosine(k.Vector, vec),
			})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if k.K > 0 && len(scored) > k.K {
		scored = scored[:k.K]
	}

	out := scored[:0]
	for _, h := range scored {
		if k.MinScore != nil && h.Score < *k.MinScore {
			continue
		}
		ok, err := matches(req.Query, h.Source)
		if err != nil {
			return nil, err
		}
		if ok {
			h.Source = clone(h.Source)
			out = append(out, h)
		}
	}
	return out, nil
}

// BulkWrite upserts docs, creating the partition when missing.
func (s *Store) BulkWrite(ctx context.Context, name string, docs []store.Document) ([]store.ItemResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap(store.OpBulk, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partitionFor(name)
	results := make([]store.ItemResult, len(docs))
	for i, d := range docs {
		results[i].ID = d.ID
		if d.ID == "" || d.Source == nil {
			results[i].Err = fmt.Errorf("document %d: %w", i, store.ErrInvalidDocument)
			continue
		}
		p.docs[d.ID] = clone(d.Source)
	}
	return results, nil
}

// Reindex copies the documents matching q from sources into dest.
func (s *Store) Reindex(ctx context.Context, sources []string, q query.Query, dest string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, store.Wrap(store.OpReindex, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.resolve(sources)
	if err != nil {
		return 0, store.Wrap(store.OpReindex, err)
	}
	hits, err := s.filter(names, q)
	if err != nil {
		return 0, store.Wrap(store.OpReindex, err)
	}
	p := s.partitionFor(dest)
	for _, h := range hits {
		p.docs[h.ID] = h.Source
	}
	return int64(len(hits)), nil
}

// DeleteByQuery removes the documents matching q.
func (s *Store) DeleteByQuery(ctx context.Context, name string, q query.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, store.Wrap(store.OpDeleteByQuery, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[name]
	if !ok {
		return 0, &store.Error{Op: store.OpDeleteByQuery, Err: fmt.Errorf("%s: %w", name, store.ErrPartitionNotFound)}
	}
	var deleted int64
	for id, src := range p.docs {
		ok, err := matches(q, src)
		if err != nil {
			return deleted, store.Wrap(store.OpDeleteByQuery, err)
		}
		if ok {
			delete(p.docs, id)
			deleted++
		}
	}
	return deleted, nil
}

// AggregateByYear counts matching documents per calendar year of field.
func (s *Store) AggregateByYear(ctx context.Context, name, field string, q query.Query) (map[int]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap(store.OpAggregate, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[name]
	if !ok {
		return nil, &store.Error{Op: store.OpAggregate, Err: fmt.Errorf("%s: %w", name, store.ErrPartitionNotFound)}
	}
	counts := make(map[int]int64)
	for _, src := range p.docs {
		ok, err := matches(q, src)
		if err != nil {
			return nil, store.Wrap(store.OpAggregate, err)
		}
		if !ok {
			continue
		}
		for _, v := range lookup(src, field) {
			if t, ok := v.(time.Time); ok {
				counts[t.UTC().Year()]++
				break
			}
		}
	}
	return counts, nil
}

// Scan returns up to limit documents with ids greater than afterID, ordered by id.
func (s *Store) Scan(ctx context.Context, name, afterID string, limit int) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap(store.OpScan, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[name]
	if !ok {
		return nil, &store.Error{Op: store.OpScan, Err: fmt.Errorf("%s: %w", name, store.ErrPartitionNotFound)}
	}
	ids := slices.Sorted(maps.Keys(p.docs))
	var out []store.Document
	for _, id := range ids {
		if id <= afterID {
			continue
		}
		out = append(out, store.Document{ID: id, Source: clone(p.docs[id])})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Schema returns the schema a partition was created with.
func (s *Store) Schema(name string) (*store.Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partitions[name]
	if !ok {
		return nil, false
	}
	return p.schema, true
}

// Count returns the number of documents in a partition.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.partitions[name]; ok {
		return len(p.docs)
	}
	return 0
}

// partitionFor returns the named partition, creating it from a matching
// template when missing. Callers hold the write lock.
func (s *Store) partitionFor(name string) *partition {
	if p, ok := s.partitions[name]; ok {
		return p
	}
	var schema *store.Schema
	for pattern, sc := range s.templates {
		if strings.HasPrefix(name, strings.TrimSuffix(pattern, "*")) {
			schema = sc
			break
		}
	}
	p := &partition{schema: schema, docs: make(map[string]map[string]any)}
	s.partitions[name] = p
	return p
}

// resolve expands patterns. A missing concrete partition is an error; a
// pattern matching nothing resolves to no partitions.
func (s *Store) resolve(names []string) ([]string, error) {
	var out []string
	for _, n := range names {
		if prefix, ok := strings.CutSuffix(n, "*"); ok {
			var matched []string
			for name := range s.partitions {
				if strings.HasPrefix(name, prefix) {
					matched = append(matched, name)
				}
			}
			slices.Sort(matched)
			out = append(out, matched...)
			continue
		}
		if _, ok := s.partitions[n]; !ok {
			return nil, fmt.Errorf("%s: %w", n, store.ErrPartitionNotFound)
		}
		out = append(out, n)
	}
	return out, nil
}

func sortHits(hits []store.Hit, sorts []query.Sort) {
	sort.SliceStable(hits, func(i, j int) bool {
		for _, srt := range sorts {
			a, b := first(hits[i].Source, srt.Field), first(hits[j].Source, srt.Field)
			c, ok := compare(a, b)
			if !ok || c == 0 {
				continue
			}
			if srt.Order == query.Asc {
				return c < 0
			}
			return c > 0
		}
		return hits[i].ID < hits[j].ID
	})
}

func first(src map[string]any, path string) any {
	if vals := lookup(src, path); len(vals) > 0 {
		return vals[0]
	}
	return nil
}

func clone(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []float32:
		return slices.Clone(t)
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	}
	return v
}
