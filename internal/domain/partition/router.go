package partition

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain"
)

// Clock returns the current time.
type Clock func() time.Time

// Router selects the partitions a date-bounded query must touch.
type Router struct {
	scheme         Scheme
	retentionYears int
	now            Clock
	logger         *zap.Logger
}

// NewRouter creates a router for scheme. A nil clock uses time.Now.
func NewRouter(scheme Scheme, retentionYears int, now Clock, logger *zap.Logger) *Router {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{scheme: scheme, retentionYears: retentionYears, now: now, logger: logger}
}

// Cutoff returns the retention boundary for the current clock reading.
func (r *Router) Cutoff() time.Time {
	return Cutoff(r.now(), r.retentionYears)
}

// Route returns the partitions for a createdAt filter with optional bounds.
// Schemes without cold storage always route to the hot partition.
func (r *Router) Route(from, to *time.Time) ([]string, error) {
	if !r.scheme.Archived() {
		return []string{r.scheme.Hot}, nil
	}

	cutoff := r.Cutoff()
	needsHot := to == nil || !to.Before(cutoff)
	needsCold := from == nil || from.Before(cutoff)

	switch {
	case needsHot && needsCold:
		return []string{r.scheme.Hot, r.scheme.ColdPattern()}, nil
	case needsHot:
		return []string{r.scheme.Hot}, nil
	case needsCold:
		return []string{r.scheme.ColdPattern()}, nil
	}

	r.logger.Error("date range selects no partition",
		zap.Timep("from", from),
		zap.Timep("to", to),
		zap.Time("cutoff", cutoff),
	)
	return nil, fmt.Errorf("route %s: from %s to %s: %w",
		r.scheme.Hot, from.Format(time.RFC3339), to.Format(time.RFC3339), domain.ErrRoutingInvariant)
}
