package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain/application"
	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

// ApplicationFilter is the caller's application search request.
type ApplicationFilter struct {
	Product       string
	Transaction   string
	Channel       string
	Status        string
	User          string
	CreatedAtFrom *time.Time
	CreatedAtTo   *time.Time
	Client        ClientFilter
	Roles         []application.Role
	From          int
	Size          int
	Sort          string
}

// Compiled is a validated, backend-neutral search.
type Compiled struct {
	Query query.Query
	Sort  []query.Sort
	From  int
	Size  int
}

// ApplicationCompiler turns application filters into a query for one document shape.
type ApplicationCompiler struct {
	Scheme RoleScheme
	// FoldHeader compares channel, status and user case-insensitively.
	FoldHeader bool
	Limits     Limits
}

// Compile validates f and builds its query. Invalid input fails before any store call.
func (c ApplicationCompiler) Compile(f *ApplicationFilter) (*Compiled, error) {
	sorts, err := sortBy(f.Sort)
	if err != nil {
		return nil, err
	}
	from, size, err := pageBounds(f.From, f.Size, c.Limits)
	if err != nil {
		return nil, err
	}

	header := (*Builder).Term
	if c.FoldHeader {
		header = (*Builder).TermFold
	}
	b := NewBuilder().
		Term("product", f.Product).
		Term("transaction", f.Transaction)
	header(b, "channel", f.Channel)
	header(b, "status", f.Status)
	header(b, "user", f.User)
	b.DateRange("createdAt", f.CreatedAtFrom, f.CreatedAtTo)

	client, err := c.Scheme.Query(f.Client.Terms(), f.Roles)
	if err != nil {
		return nil, err
	}
	q, err := b.Clause(client).Build()
	if err != nil {
		return nil, err
	}
	return &Compiled{Query: q, Sort: sorts, From: from, Size: size}, nil
}

// Applications searches one application collection and decodes hits into T.
type Applications[T any] struct {
	store    Store
	router   Router
	compiler ApplicationCompiler
	decode   func(map[string]any) (T, error)
	logger   *zap.Logger
}

// NewApplications creates an application search service.
func NewApplications[T any](
	st Store, router Router, compiler ApplicationCompiler,
	decode func(map[string]any) (T, error), logger *zap.Logger,
) *Applications[T] {
	return &Applications[T]{
		store:    st,
		router:   router,
		compiler: compiler,
		decode:   decode,
		logger:   logger.Named("search.applications"),
	}
}

// Search compiles f, routes it and decodes one page of results.
func (s *Applications[T]) Search(ctx context.Context, f *ApplicationFilter) (*Page[T], error) {
	c, err := s.compiler.Compile(f)
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
	opCtx, cancel := store.OperationTimeout(ctx, s.compiler.Limits.OperationTimeout)
	defer cancel()
	res, err := s.store.Search(opCtx, &store.SearchRequest{
		Partitions: partitions,
		Query:      c.Query,
		Sort:       c.Sort,
		From:       c.From,
		Size:       c.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("search applications: %w", err)
	}
	return decodePage(res, partitions, s.decode)
}

func decodePage[T any](res *store.SearchResult, partitions []string, decode func(map[string]any) (T, error)) (*Page[T], error) {
	page := &Page[T]{Total: res.Total, Partitions: partitions, Items: make([]T, 0, len(res.Hits))}
	for _, h := range res.Hits {
		item, err := decode(h.Source)
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", h.ID, err)
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}
