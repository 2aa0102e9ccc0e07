// Package query defines the backend-neutral boolean query tree produced by the
// search compilers and consumed by store implementations.
package query

import (
	"fmt"
	"strings"
)

// Query is a node of the query tree. The set of node types is closed:
// MatchAll, Term, Terms, Range, Bool, Nested and Match.
type Query interface {
	isQuery()
}

// MatchAll matches every document.
type MatchAll struct{}

// Term matches documents whose field equals Value exactly.
// CaseInsensitive compares strings after case folding.
type Term struct {
	Field           string
	Value           any
	CaseInsensitive bool
}

// Terms matches documents whose field equals any of Values.
type Terms struct {
	Field  string
	Values []any
}

// Range matches a field against independent bounds. Nil bounds are absent.
// Bound values are time.Time or numbers.
type Range struct {
	Field string
	GT    any
	GTE   any
	LT    any
	LTE   any
}

// Bool combines clauses. Every Must clause has to match; at least
// MinimumShouldMatch Should clauses have to match.
type Bool struct {
	Must               []Query
	Should             []Query
	MinimumShouldMatch int
}

// Nested matches when at least one element of the array at Path satisfies
// Query on its own. Field names inside Query are relative to the element.
type Nested struct {
	Path  string
	Query Query
}

// Match is a case-insensitive token match: Text must occur in at least one of Fields.
type Match struct {
	Fields []string
	Text   string
}

func (MatchAll) isQuery() {}
func (Term) isQuery()     {}
func (Terms) isQuery()    {}
func (Range) isQuery()    {}
func (Bool) isQuery()     {}
func (Nested) isQuery()   {}
func (Match) isQuery()    {}

// And returns a Bool requiring all clauses.
func And(clauses ...Query) Bool {
	return Bool{Must: clauses}
}

// Or returns a Bool requiring at least one clause.
func Or(clauses ...Query) Bool {
	return Bool{Should: clauses, MinimumShouldMatch: 1}
}

// IsMatchAll reports whether q is a bare MatchAll.
func IsMatchAll(q Query) bool {
	_, ok := q.(MatchAll)
	return ok
}

// String renders q in a compact, stable form for logs and tests.
func String(q Query) string {
	var b strings.Builder
	write(&b, q)
	return b.String()
}

func write(b *strings.Builder, q Query) {
	switch n := q.(type) {
	case nil:
		b.WriteString("<nil>")
	case MatchAll:
		b.WriteString("match_all")
	case Term:
		op := "="
		if n.CaseInsensitive {
			op = "~="
		}
		fmt.Fprintf(b, "%s%s%v", n.Field, op, n.Value)
	case Terms:
		fmt.Fprintf(b, "%s in %v", n.Field, n.Values)
	case Range:
		fmt.Fprintf(b, "range(%s", n.Field)
		for _, bound := range []struct {
			op string
			v  any
		}{{">", n.GT}, {">=", n.GTE}, {"<", n.LT}, {"<=", n.LTE}} {
			if bound.v != nil {
				fmt.Fprintf(b, " %s%v", bound.op, bound.v)
			}
		}
		b.WriteString(")")
	case Bool:
		b.WriteString("bool(")
		writeGroup(b, "must", n.Must)
		if len(n.Should) > 0 {
			if len(n.Must) > 0 {
				b.WriteString(" ")
			}
			writeGroup(b, fmt.Sprintf("should>=%d", n.MinimumShouldMatch), n.Should)
		}
		b.WriteString(")")
	case Nested:
		fmt.Fprintf(b, "nested(%s: ", n.Path)
		write(b, n.Query)
		b.WriteString(")")
	case Match:
		fmt.Fprintf(b, "match(%s: %q)", strings.Join(n.Fields, ","), n.Text)
	default:
		fmt.Fprintf(b, "<%T>", q)
	}
}

func writeGroup(b *strings.Builder, name string, clauses []Query) {
	if len(clauses) == 0 {
		return
	}
	b.WriteString(name)
	b.WriteString("[")
	for i, c := range clauses {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, c)
	}
	b.WriteString("]")
}
