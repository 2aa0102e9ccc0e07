package memory

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

// matches evaluates q against a document source.
func matches(q query.Query, src map[string]any) (bool, error) {
	switch n := q.(type) {
	case nil, query.MatchAll:
		return true, nil
	case query.Term:
		for _, v := range lookup(src, n.Field) {
			if equal(v, n.Value, n.CaseInsensitive) {
				return true, nil
			}
		}
		return false, nil
	case query.Terms:
		for _, v := range lookup(src, n.Field) {
			for _, want := range n.Values {
				if equal(v, want, false) {
					return true, nil
				}
			}
		}
		return false, nil
	case query.Range:
		for _, v := range lookup(src, n.Field) {
			if inRange(v, n) {
				return true, nil
			}
		}
		return false, nil
	case query.Bool:
		return matchBool(n, src)
	case query.Nested:
		for _, el := range lookup(src, n.Path) {
			m, ok := el.(map[string]any)
			if !ok {
				continue
			}
			ok, err := matches(n.Query, m)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case query.Match:
		want := tokens(n.Text)
		if len(want) == 0 {
			return true, nil
		}
		for _, f := range n.Fields {
			for _, v := range lookup(src, f) {
				s, ok := v.(string)
				if !ok {
					continue
				}
				for have := range tokens(s) {
					if _, hit := want[have]; hit {
						return true, nil
					}
				}
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: %T", store.ErrUnsupportedQuery, q)
	}
}

func matchBool(n query.Bool, src map[string]any) (bool, error) {
	for _, c := range n.Must {
		ok, err := matches(c, src)
		if err != nil || !ok {
			return false, err
		}
	}

	need := n.MinimumShouldMatch
	if need == 0 && len(n.Must) == 0 && len(n.Should) > 0 {
		need = 1
	}
	if need == 0 {
		return true, nil
	}
	hits := 0
	for _, c := range n.Should {
		ok, err := matches(c, src)
		if err != nil {
			return false, err
		}
		if ok {
			hits++
			if hits >= need {
				return true, nil
			}
		}
	}
	return false, nil
}

// lookup resolves a dotted path, flattening arrays met on the way.
func lookup(src map[string]any, path string) []any {
	cur := []any{src}
	for _, part := range strings.Split(path, ".") {
		var next []any
		for _, c := range cur {
			m, ok := c.(map[string]any)
			if !ok {
				continue
			}
			v, ok := m[part]
			if !ok || v == nil {
				continue
			}
			if arr, ok := v.([]any); ok {
				next = append(next, arr...)
				continue
			}
			next = append(next, v)
		}
		cur = next
	}
	return cur
}

func equal(have, want any, fold bool) bool {
	if hs, ok := have.(string); ok {
		ws, ok := want.(string)
		if !ok {
			return false
		}
		if fold {
			return strings.EqualFold(hs, ws)
		}
		return hs == ws
	}
	if ht, ok := have.(time.Time); ok {
		wt, ok := want.(time.Time)
		return ok && ht.Equal(wt)
	}
	if hf, ok := toFloat(have); ok {
		wf, ok := toFloat(want)
		return ok && hf == wf
	}
	return have == want
}

func inRange(v any, r query.Range) bool {
	bounds := []struct {
		bound any
		ok    func(c int) bool
	}{
		{r.GT, func(c int) bool { return c > 0 }},
		{r.GTE, func(c int) bool { return c >= 0 }},
		{r.LT, func(c int) bool { return c < 0 }},
		{r.LTE, func(c int) bool { return c <= 0 }},
	}
	for _, b := range bounds {
		if b.bound == nil {
			continue
		}
		c, ok := compare(v, b.bound)
		if !ok || !b.ok(c) {
			return false
		}
	}
	return true
}

// compare orders two times, two numbers or two strings.
func compare(a, b any) (int, bool) {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[t] = struct{}{}
	}
	return out
}

// cosine returns the cosine similarity of a and b, 0 when either has zero norm.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func vectorOf(v any) ([]float32, bool) {
	switch vec := v.(type) {
	case []float32:
		return vec, true
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(vec))
		for i, e := range vec {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = float32(f)
		}
		return out, true
	}
	return nil, false
}
