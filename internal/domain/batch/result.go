// Package batch describes the outcome of a batched ingestion run.
package batch

import (
	"fmt"
	"strings"
)

// FailureKind classifies why a batch did not fully succeed.
type FailureKind string

// Batch failure kinds.
const (
	// FailureTransport means the store call itself failed; every item counts as failed.
	FailureTransport FailureKind = "transport"
	// FailureItems means the call succeeded but some items were rejected.
	FailureItems FailureKind = "items"
	// FailurePrepare means the pre-submit hook failed; nothing was sent.
	FailurePrepare FailureKind = "prepare"
)

// Failure is the record of one failing batch.
type Failure struct {
	Batch  int         `json:"batch"`
	Kind   FailureKind `json:"kind"`
	Failed int         `json:"failed"`
	Reason string      `json:"reason"`
}

func (f Failure) String() string {
	return fmt.Sprintf("batch %d: %s", f.Batch, f.Reason)
}

// Summary aggregates per-batch accounting over a whole run.
type Summary struct {
	TotalProcessed int       `json:"totalProcessed"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	Batches        int       `json:"batches"`
	Errors         []Failure `json:"errors,omitempty"`
}

// Record adds the outcome of one batch.
func (s *Summary) Record(size, succeeded int, failure *Failure) {
	s.Batches++
	s.TotalProcessed += size
	s.Succeeded += succeeded
	s.Failed += size - succeeded
	if failure != nil {
		s.Errors = append(s.Errors, *failure)
	}
}

// Success reports whether anything was ingested, or nothing was attempted.
func (s Summary) Success() bool {
	return s.Succeeded > 0 || s.Batches == 0
}

// Message is the human-readable outcome line.
func (s Summary) Message() string {
	switch {
	case s.Failed == 0:
		return fmt.Sprintf("Successfully ingested %d documents in %d batches", s.Succeeded, s.Batches)
	case s.Succeeded > 0:
		return fmt.Sprintf("Partially completed: %d ingested, %d failed across %d batches", s.Succeeded, s.Failed, s.Batches)
	default:
		return fmt.Sprintf("Failed to ingest: %d failures across %d batches", s.Failed, s.Batches)
	}
}

// Reasons joins the failure reasons for logs.
func (s Summary) Reasons() string {
	parts := make([]string, 0, len(s.Errors))
	for _, f := range s.Errors {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "; ")
}
