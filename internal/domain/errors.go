package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSort signals a sort token other than asc/desc.
	ErrInvalidSort = errors.New("invalid sort")
	// ErrInvalidFilter signals a malformed search filter (inverted range, bad paging).
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidRole signals an unknown sub-entity role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrMalformedInput signals an ingestion stream that could not be decoded.
	ErrMalformedInput = errors.New("malformed input")
	// ErrQueryRequired signals a semantic search without query text.
	ErrQueryRequired = errors.New("query is required")
	// ErrRoutingInvariant signals a date range that selects no partition at all.
	ErrRoutingInvariant = errors.New("routing invariant violated")
	// ErrArchiveFailed signals an archival run in which no year succeeded.
	ErrArchiveFailed = errors.New("archive failed")
	// ErrUnknownCollection signals a collection name with no configured partitions.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// FieldError wraps ErrInvalidFilter with the offending request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidFilter.Error(), e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidFilter }

// NewFieldError creates an invalid filter error for a request field.
func NewFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
