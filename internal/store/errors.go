package store

import "errors"

// Sentinel errors for document store operations.
var (
	ErrPartitionNotFound = errors.New("store: partition not found")
	ErrPartitionExists   = errors.New("store: partition already exists")
	ErrInvalidDocument   = errors.New("store: invalid document")
	ErrUnsupportedQuery  = errors.New("store: unsupported query")
	ErrInvalidSchema     = errors.New("store: invalid schema")
)

// Op names attached to store errors for diagnostics.
const (
	OpExists         = "exists"
	OpCreate         = "create_partition"
	OpCreateTemplate = "create_template"
	OpSearch         = "search"
	OpBulk           = "bulk"
	OpReindex        = "reindex"
	OpDeleteByQuery  = "delete_by_query"
	OpAggregate      = "aggregate_by_year"
	OpScan           = "scan"
	OpPing           = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err and an *Error otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
