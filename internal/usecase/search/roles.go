package search

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/application"
	"github.com/kailas-cloud/dossier/internal/domain/search/query"
)

// ClientFilter holds the per-client filter values. All supplied values must
// hold on the same client.
type ClientFilter struct {
	Email      string
	FirstName  string
	LastName   string
	NationalID string
	ClientID   string
}

// ClientTerm is one field/value requirement on a client, relative to the client object.
type ClientTerm struct {
	Field string
	Value string
	Fold  bool
}

// Terms returns the supplied values in a fixed field order. Names and email
// compare case-insensitively; identifiers compare exactly.
func (f ClientFilter) Terms() []ClientTerm {
	var out []ClientTerm
	add := func(field, value string, fold bool) {
		if v := strings.TrimSpace(value); v != "" {
			out = append(out, ClientTerm{Field: field, Value: v, Fold: fold})
		}
	}
	add("firstName", f.FirstName, true)
	add("lastName", f.LastName, true)
	add("nationalId", f.NationalID, false)
	add("clientId", f.ClientID, false)
	add("email", f.Email, true)
	return out
}

// RoleQuery builds the sub-query matching a single client with the given terms.
type RoleQuery func(terms []ClientTerm) query.Query

// RoleScheme maps each role to the way it is laid out in a document shape.
type RoleScheme map[application.Role]RoleQuery

// TaggedClients is the scheme of the current shape: a single clients array
// whose elements carry their role.
func TaggedClients() RoleScheme {
	scheme := make(RoleScheme, len(application.Roles))
	for _, role := range application.Roles {
		scheme[role] = func(terms []ClientTerm) query.Query {
			clauses := termQueries("", terms)
			clauses = append(clauses, query.Term{Field: "role", Value: string(role)})
			return query.Nested{Path: "clients", Query: query.And(clauses...)}
		}
	}
	return scheme
}

// LegacyApplicants is the scheme of the legacy shape: a main applicant object
// and a coApplicants array, each with a client and an optional spouse.
func LegacyApplicants() RoleScheme {
	return RoleScheme{
		application.RoleMainClient: func(terms []ClientTerm) query.Query {
			return query.And(termQueries("mainApplicant.client.", terms)...)
		},
		application.RoleSpouse: func(terms []ClientTerm) query.Query {
			return query.Or(
				query.And(termQueries("mainApplicant.spouse.", terms)...),
				query.Nested{Path: "coApplicants", Query: query.And(termQueries("spouse.", terms)...)},
			)
		},
		application.RoleCoApplicant: func(terms []ClientTerm) query.Query {
			return query.Nested{Path: "coApplicants", Query: query.And(termQueries("client.", terms)...)}
		},
	}
}

// Query returns the single clause for a client filter across roles, or nil
// when no client value was supplied. No roles means MainClient; duplicates
// are collapsed keeping first-occurrence order.
func (s RoleScheme) Query(terms []ClientTerm, roles []application.Role) (query.Query, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if len(roles) == 0 {
		roles = []application.Role{application.RoleMainClient}
	}

	seen := make(map[application.Role]bool, len(roles))
	perRole := make([]query.Query, 0, len(roles))
	for _, r := range roles {
		if seen[r] {
			continue
		}
		seen[r] = true
		build, ok := s[r]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, r)
		}
		perRole = append(perRole, build(terms))
	}

	if len(perRole) == 1 {
		return perRole[0], nil
	}
	return query.Or(perRole...), nil
}

func termQueries(prefix string, terms []ClientTerm) []query.Query {
	out := make([]query.Query, 0, len(terms))
	for _, t := range terms {
		if t.Fold {
			out = append(out, foldTerm(prefix+t.Field, t.Value))
			continue
		}
		out = append(out, query.Term{Field: prefix + t.Field, Value: t.Value})
	}
	return out
}
