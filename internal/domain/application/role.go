package application

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/dossier/internal/domain"
)

// Role tags a client within an application.
type Role string

// Client roles.
const (
	RoleMainClient  Role = "MainClient"
	RoleSpouse      Role = "Spouse"
	RoleCoApplicant Role = "CoApplicant"
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleMainClient, RoleSpouse, RoleCoApplicant}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidRole, s)
}

// ParseRoles parses a list of role names. Duplicates are collapsed keeping
// first-occurrence order.
func ParseRoles(names []string) ([]Role, error) {
	out := make([]Role, 0, len(names))
	seen := make(map[Role]bool, len(names))
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return nil, err
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}
