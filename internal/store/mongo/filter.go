package mongo

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

// makeFilter translates a query tree into a MongoDB filter document.
// Dotted paths match through arrays; Nested becomes $elemMatch so that all
// sub-clauses hold on the same element.
func makeFilter(q query.Query) (bson.M, error) {
	switch n := q.(type) {
	case nil, query.MatchAll:
		return bson.M{}, nil
	case query.Term:
		if s, ok := n.Value.(string); ok && n.CaseInsensitive {
			return bson.M{n.Field: exactFold(s)}, nil
		}
		return bson.M{n.Field: n.Value}, nil
	case query.Terms:
		return bson.M{n.Field: bson.M{"$in": bson.A(n.Values)}}, nil
	case query.Range:
		cond := bson.M{}
		for op, v := range map[string]any{"$gt": n.GT, "$gte": n.GTE, "$lt": n.LT, "$lte": n.LTE} {
			if v != nil {
				cond[op] = v
			}
		}
		if len(cond) == 0 {
			return bson.M{}, nil
		}
		return bson.M{n.Field: cond}, nil
	case query.Bool:
		return makeBool(n)
	case query.Nested:
		inner, err := makeFilter(n.Query)
		if err != nil {
			return nil, err
		}
		return bson.M{n.Path: bson.M{"$elemMatch": inner}}, nil
	case query.Match:
		return makeMatch(n), nil
	default:
		return nil, fmt.Errorf("%w: %T", store.ErrUnsupportedQuery, q)
	}
}

func makeBool(n query.Bool) (bson.M, error) {
	need := n.MinimumShouldMatch
	if need == 0 && len(n.Must) == 0 && len(n.Should) > 0 {
		need = 1
	}
	if need > 1 {
		return nil, fmt.Errorf("%w: minimum_should_match %d", store.ErrUnsupportedQuery, need)
	}

	and := bson.A{}
	for _, c := range n.Must {
		f, err := makeFilter(c)
		if err != nil {
			return nil, err
		}
		if len(f) > 0 {
			and = append(and, f)
		}
	}
	if need == 1 && len(n.Should) > 0 {
		or := bson.A{}
		for _, c := range n.Should {
			f, err := makeFilter(c)
			if err != nil {
				return nil, err
			}
			or = append(or, f)
		}
		and = append(and, bson.M{"$or": or})
	}

	switch len(and) {
	case 0:
		return bson.M{}, nil
	case 1:
		return and[0].(bson.M), nil
	}
	return bson.M{"$and": and}, nil
}

// makeMatch matches any whole token of the text in any field, ignoring case.
func makeMatch(n query.Match) bson.M {
	words := strings.FieldsFunc(strings.ToLower(n.Text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return bson.M{}
	}
	or := bson.A{}
	for _, w := range words {
		re := bson.M{"$regex": `\b` + regexp.QuoteMeta(w) + `\b`, "$options": "i"}
		for _, f := range n.Fields {
			or = append(or, bson.M{f: re})
		}
	}
	if len(or) == 1 {
		return or[0].(bson.M)
	}
	return bson.M{"$or": or}
}

func exactFold(s string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(s) + "$", "$options": "i"}
}

// makeSort returns a sort document with _id as the final tie breaker.
func makeSort(sorts []query.Sort) bson.D {
	d := bson.D{}
	for _, s := range sorts {
		dir := -1
		if s.Order == query.Asc {
			dir = 1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return append(d, bson.E{Key: "_id", Value: 1})
}
