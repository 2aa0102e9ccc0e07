package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/product"
	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

// textFields are searched by free-text terms.
var textFields = []string{"name", "description", "variants.color"}

// Semantic search defaults.
const (
	DefaultK             = 10
	DefaultNumCandidates = 100
	embeddingField       = "embedding"
)

// VariantFilter matches products having one variant with all supplied values.
type VariantFilter struct {
	SKU   string
	Size  string
	Color string
}

// ProductFilter is the caller's product search request.
type ProductFilter struct {
	Query         string
	Category      string
	MinPrice      *float64
	MaxPrice      *float64
	CreatedAtFrom *time.Time
	CreatedAtTo   *time.Time
	Variant       VariantFilter
	From          int
	Size          int
	Sort          string
}

// SemanticFilter is a k-NN product search with optional post-filters.
type SemanticFilter struct {
	Query         string
	Category      string
	MinPrice      *float64
	MaxPrice      *float64
	CreatedAtFrom *time.Time
	CreatedAtTo   *time.Time
	K             int
	NumCandidates int
	Similarity    *float64
}

// CompileProducts validates f and builds its query.
func CompileProducts(f *ProductFilter, lim Limits) (*Compiled, error) {
	sorts, err := sortBy(f.Sort)
	if err != nil {
		return nil, err
	}
	from, size, err := pageBounds(f.From, f.Size, lim)
	if err != nil {
		return nil, err
	}

	b := NewBuilder()
	for _, term := range strings.Fields(f.Query) {
		b.Clause(query.Match{Fields: textFields, Text: term})
	}
	b.Term("category", f.Category).
		NumberRange("price", f.MinPrice, f.MaxPrice).
		DateRange("createdAt", f.CreatedAtFrom, f.CreatedAtTo).
		Clause(variantQuery(f.Variant))

	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &Compiled{Query: q, Sort: sorts, From: from, Size: size}, nil
}

func variantQuery(v VariantFilter) query.Query {
	inner := NewBuilder().
		Term("sku", v.SKU).
		Term("size", v.Size).
		Term("color", v.Color)
	if len(inner.must) == 0 {
		return nil
	}
	return query.Nested{Path: "variants", Query: query.And(inner.must...)}
}

// CompileSemantic validates f and builds its post-filter.
func CompileSemantic(f *SemanticFilter) (query.Query, error) {
	if strings.TrimSpace(f.Query) == "" {
		return nil, domain.ErrQueryRequired
	}
	if f.K < 0 || f.NumCandidates < 0 {
		return nil, domain.NewFieldError("k", "must not be negative")
	}
	return NewBuilder().
		Term("category", f.Category).
		NumberRange("price", f.MinPrice, f.MaxPrice).
		DateRange("createdAt", f.CreatedAtFrom, f.CreatedAtTo).
		Build()
}

// Products searches the product collection.
type Products struct {
	store      Store
	router     Router
	embed      Embedder
	limits     Limits
	k          int
	candidates int
	logger     *zap.Logger
}

// NewProducts creates a product search service.
func NewProducts(st Store, router Router, embed Embedder, limits Limits, logger *zap.Logger) *Products {
	return &Products{
		store:      st,
		router:     router,
		embed:      embed,
		limits:     limits,
		k:          DefaultK,
		candidates: DefaultNumCandidates,
		logger:     logger.Named("search.products"),
	}
}

// WithKNNDefaults overrides k and numCandidates used when a request omits them.
func (s *Products) WithKNNDefaults(k, candidates int) *Products {
	if k > 0 {
		s.k = k
	}
	if candidates > 0 {
		s.candidates = candidates
	}
	return s
}

// Search runs a filtered keyword search.
func (s *Products) Search(ctx context.Context, f *ProductFilter) (*Page[product.Product], error) {
	c, err := CompileProducts(f, s.limits)
	if err != nil {
		return nil, err
	}
	partitions, err := s.router.Route(f.CreatedAtFrom, f.CreatedAtTo)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	s.logger.Debug("search",
		zap.Strings("partitions", partitions),
		zap.String("query", query.String(c.Query)),
	)
	opCtx, cancel := store.OperationTimeout(ctx, s.limits.OperationTimeout)
	defer cancel()
	res, err := s.store.Search(opCtx, &store.SearchRequest{
		Partitions: partitions,
		Query:      c.Query,
		Sort:       c.Sort,
		From:       c.From,
		Size:       c.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return decodePage(res, partitions, decodeProduct)
}

// SemanticSearch embeds the query text and runs a k-NN search.
func (s *Products) SemanticSearch(ctx context.Context, f *SemanticFilter) (*Page[product.Product], error) {
	filter, err := CompileSemantic(f)
	if err != nil {
		return nil, err
	}
	partitions, err := s.router.Route(f.CreatedAtFrom, f.CreatedAtTo)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	emb, err := s.embed.Embed(ctx, f.Query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	k := f.K
	if k == 0 {
		k = s.k
	}
	candidates := max(f.NumCandidates, k)
	if f.NumCandidates == 0 {
		candidates = max(s.candidates, k)
	}

	opCtx, cancel := store.OperationTimeout(ctx, s.limits.OperationTimeout)
	defer cancel()
	res, err := s.store.Search(opCtx, &store.SearchRequest{
		Partitions: partitions,
		Query:      filter,
		Size:       k,
		KNN: &store.KNN{
			Field:         embeddingField,
			Vector:        emb.Embedding,
			K:             k,
			NumCandidates: candidates,
			MinScore:      f.Similarity,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return decodePage(res, partitions, decodeProduct)
}

// decodeProduct drops the stored vector from responses.
func decodeProduct(src map[string]any) (product.Product, error) {
	p, err := product.FromSource(src)
	p.Embedding = nil
	return p, err
}
