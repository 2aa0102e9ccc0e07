package query

import (
	"errors"
	"fmt"
	"strings"
)

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ErrInvalidOrder is returned for sort tokens other than asc/desc.
var ErrInvalidOrder = errors.New("sort parameter must be either 'asc' or 'desc'")

// ParseOrder parses a caller-supplied sort token. An empty token selects Desc;
// any other unknown token is rejected rather than defaulted.
func ParseOrder(token string) (Order, error) {
	switch strings.TrimSpace(token) {
	case "":
		return Desc, nil
	case string(Asc):
		return Asc, nil
	case string(Desc):
		return Desc, nil
	default:
		return "", fmt.Errorf("%w, got %q", ErrInvalidOrder, token)
	}
}

// Sort orders search hits by a single field.
type Sort struct {
	Field string
	Order Order
}
