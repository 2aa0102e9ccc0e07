package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/search/query"
)

// Builder accumulates Must clauses from optional filters. Blank values are
// skipped; the first validation error sticks and is returned by Build.
type Builder struct {
	must []query.Query
	err  error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Term adds an exact-match clause.
func (b *Builder) Term(field, value string) *Builder {
	if v := strings.TrimSpace(value); v != "" {
		b.must = append(b.must, query.Term{Field: field, Value: v})
	}
	return b
}

// TermFold adds a case-insensitive clause.
func (b *Builder) TermFold(field, value string) *Builder {
	if v := strings.TrimSpace(value); v != "" {
		b.must = append(b.must, foldTerm(field, v))
	}
	return b
}

// DateRange adds an inclusive range on a timestamp field.
func (b *Builder) DateRange(field string, from, to *time.Time) *Builder {
	if from == nil && to == nil {
		return b
	}
	if from != nil && to != nil && from.After(*to) {
		b.fail(domain.NewFieldError(field, "from is after to"))
		return b
	}
	r := query.Range{Field: field}
	if from != nil {
		r.GTE = from.UTC()
	}
	if to != nil {
		r.LTE = to.UTC()
	}
	b.must = append(b.must, r)
	return b
}

// NumberRange adds an inclusive range on a numeric field.
func (b *Builder) NumberRange(field string, lo, hi *float64) *Builder {
	if lo == nil && hi == nil {
		return b
	}
	if lo != nil && hi != nil && *lo > *hi {
		b.fail(domain.NewFieldError(field, "minimum is above maximum"))
		return b
	}
	r := query.Range{Field: field}
	if lo != nil {
		r.GTE = *lo
	}
	if hi != nil {
		r.LTE = *hi
	}
	b.must = append(b.must, r)
	return b
}

// Clause adds a prebuilt clause. Nil is ignored.
func (b *Builder) Clause(q query.Query) *Builder {
	if q != nil {
		b.must = append(b.must, q)
	}
	return b
}

// Build returns MatchAll when no clause was added and Bool{Must} otherwise.
func (b *Builder) Build() (query.Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.must) == 0 {
		return query.MatchAll{}, nil
	}
	return query.And(b.must...), nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func foldTerm(field, value string) query.Term {
	return query.Term{Field: field, Value: strings.ToLower(value), CaseInsensitive: true}
}

// sortBy parses a sort token into a createdAt sort.
func sortBy(token string) ([]query.Sort, error) {
	order, err := query.ParseOrder(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSort, err)
	}
	return []query.Sort{{Field: "createdAt", Order: order}}, nil
}

// pageBounds clamps size into [1, max] and rejects a negative offset.
func pageBounds(from, size int, lim Limits) (int, int, error) {
	if from < 0 {
		return 0, 0, domain.NewFieldError("from", "must not be negative")
	}
	if size <= 0 {
		size = lim.DefaultSize
	}
	if lim.MaxSize > 0 && size > lim.MaxSize {
		size = lim.MaxSize
	}
	return from, max(size, 1), nil
}
