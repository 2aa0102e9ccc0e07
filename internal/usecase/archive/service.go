// Package archive relocates documents older than the retention cutoff from
// the hot partition into per-year cold partitions.
package archive

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/partition"
	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

const dateField = "createdAt"

// Status is the outcome of archiving one year.
type Status string

// Year statuses.
const (
	StatusOK Status = "ok"
	// StatusCopyFailed means the copy failed; the hot partition is untouched.
	StatusCopyFailed Status = "copy_failed"
	// StatusDuplicated means the copy succeeded but the delete failed: the
	// year's documents now exist in both partitions.
	StatusDuplicated Status = "duplicated"
	// StatusSkipped means the run was cancelled before the year started.
	StatusSkipped Status = "skipped"
)

// YearResult is the outcome of one year.
type YearResult struct {
	Year      int    `json:"year"`
	Partition string `json:"partition"`
	Found     int64  `json:"found"`
	Copied    int64  `json:"copied"`
	Deleted   int64  `json:"deleted"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`

	err error
}

// Report summarizes an archival run.
type Report struct {
	Collection     string       `json:"collection"`
	Cutoff         time.Time    `json:"cutoff"`
	Years          []YearResult `json:"years"`
	TotalDeleted   int64        `json:"totalDeleted"`
	YearsProcessed int          `json:"yearsProcessed"`
	Failures       int          `json:"failures"`
}

// Succeeded counts the years archived without error.
func (r *Report) Succeeded() int {
	n := 0
	for _, y := range r.Years {
		if y.Status == StatusOK {
			n++
		}
	}
	return n
}

// Duplicated lists the years left in both partitions.
func (r *Report) Duplicated() []int {
	var out []int
	for _, y := range r.Years {
		if y.Status == StatusDuplicated {
			out = append(out, y.Year)
		}
	}
	return out
}

// Config selects the collection and run parameters.
type Config struct {
	Collection     string
	Scheme         partition.Scheme
	RetentionYears int
	// Concurrency bounds the years processed at once; 1 is sequential.
	Concurrency      int
	OperationTimeout time.Duration
}

// Service runs archival for one collection.
type Service struct {
	store    Store
	cfg      Config
	now      partition.Clock
	observer Observer
	logger   *zap.Logger
}

// New creates an archival service. A nil clock uses time.Now.
func New(st Store, cfg Config, now partition.Clock, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	cfg.Concurrency = max(cfg.Concurrency, 1)
	return &Service{
		store:  st,
		cfg:    cfg,
		now:    now,
		logger: logger.Named("archive").With(zap.String("collection", cfg.Collection)),
	}
}

// WithObserver sets the per-year observer.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// Run archives every year with documents older than the cutoff. Years are
// independent: a failing year never stops the others. The run fails only
// when years were found and none of them succeeded.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	cutoff := partition.Cutoff(s.now(), s.cfg.RetentionYears)
	report := &Report{Collection: s.cfg.Collection, Cutoff: cutoff, Years: []YearResult{}}

	years, counts, err := s.discover(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("discover years: %w", err)
	}
	if len(years) == 0 {
		s.logger.Info("nothing to archive", zap.Time("cutoff", cutoff))
		return report, nil
	}
	s.logger.Info("archiving", zap.Ints("years", years), zap.Time("cutoff", cutoff))

	results := make([]YearResult, len(years))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, year := range years {
		g.Go(func() error {
			results[i] = s.archiveYear(ctx, year, counts[year], cutoff)
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for _, r := range results {
		report.YearsProcessed++
		report.TotalDeleted += r.Deleted
		if r.Status != StatusOK {
			report.Failures++
			merr = multierror.Append(merr, fmt.Errorf("year %d (%s): %w", r.Year, r.Status, r.err))
		}
		if s.observer != nil {
			s.observer.ObserveYear(s.cfg.Collection, string(r.Status), max(r.Copied, r.Deleted))
		}
	}
	report.Years = results

	s.logger.Info("archive finished",
		zap.Int("years", report.YearsProcessed),
		zap.Int("failures", report.Failures),
		zap.Int64("deleted", report.TotalDeleted),
	)
	if report.Succeeded() == 0 {
		return report, fmt.Errorf("%w: %w", domain.ErrArchiveFailed, merr.ErrorOrNil())
	}
	return report, nil
}

// discover returns the years holding documents older than cutoff, ascending.
func (s *Service) discover(ctx context.Context, cutoff time.Time) ([]int, map[int]int64, error) {
	opCtx, cancel := store.OperationTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	old := query.And(query.Range{Field: dateField, LT: cutoff})
	counts, err := s.store.AggregateByYear(opCtx, s.cfg.Scheme.Hot, dateField, old)
	if err != nil {
		return nil, nil, err
	}
	years := make([]int, 0, len(counts))
	for y, n := range counts {
		if n > 0 {
			years = append(years, y)
		}
	}
	slices.Sort(years)
	return years, counts, nil
}

// archiveYear copies one year's window to its cold partition, then removes
// it from the hot partition. The delete runs only after a successful copy.
func (s *Service) archiveYear(ctx context.Context, year int, found int64, cutoff time.Time) YearResult {
	dest := s.cfg.Scheme.ColdFor(year)
	res := YearResult{Year: year, Partition: dest, Found: found}
	log := s.logger.With(zap.Int("year", year), zap.String("partition", dest))

	if err := ctx.Err(); err != nil {
		return res.fail(StatusSkipped, err)
	}

	start, end := partition.YearWindow(year, cutoff)
	window := query.And(query.Range{Field: dateField, GTE: start, LT: end})

	copyCtx, cancel := store.OperationTimeout(ctx, s.cfg.OperationTimeout)
	copied, err := s.store.Reindex(copyCtx, []string{s.cfg.Scheme.Hot}, window, dest)
	cancel()
	if err != nil {
		log.Warn("copy failed, hot partition untouched", zap.Error(err))
		return res.fail(StatusCopyFailed, err)
	}
	res.Copied = copied
	if copied != found {
		log.Warn("copied count differs from discovered count",
			zap.Int64("found", found), zap.Int64("copied", copied))
	}

	delCtx, cancel := store.OperationTimeout(ctx, s.cfg.OperationTimeout)
	deleted, err := s.store.DeleteByQuery(delCtx, s.cfg.Scheme.Hot, window)
	cancel()
	if err != nil {
		log.Error("delete failed after copy, documents are duplicated",
			zap.Int64("copied", copied), zap.Error(err))
		return res.fail(StatusDuplicated, err)
	}
	res.Deleted = deleted
	res.Status = StatusOK
	log.Info("year archived", zap.Int64("copied", copied), zap.Int64("deleted", deleted))
	return res
}

func (r YearResult) fail(status Status, err error) YearResult {
	r.Status = status
	r.err = err
	r.Error = err.Error()
	return r
}
