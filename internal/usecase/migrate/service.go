// Package migrate copies legacy applications into the current partition,
// converting each one on the way.
package migrate

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain/application"
	"github.com/kailas-cloud/dossier/internal/domain/batch"
	"github.com/kailas-cloud/dossier/internal/store"
	"github.com/kailas-cloud/dossier/internal/usecase/ingest"
)

const defaultPageSize = 500

// Config names the partitions involved.
type Config struct {
	Source      string
	Destination string
	// PageSize is both the scan page and the write batch size.
	PageSize         int
	OperationTimeout time.Duration
}

// Service runs migrations.
type Service struct {
	store    Store
	cfg      Config
	observer ingest.Observer
	logger   *zap.Logger
}

// New creates a migration service.
func New(st Store, cfg Config, logger *zap.Logger) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &Service{store: st, cfg: cfg, logger: logger.Named("migrate")}
}

// WithObserver forwards batch accounting to o.
func (s *Service) WithObserver(o ingest.Observer) *Service {
	s.observer = o
	return s
}

// Run migrates every document of the source partition. Documents are written
// by id, so running it again overwrites instead of duplicating.
func (s *Service) Run(ctx context.Context) (batch.Summary, error) {
	for _, name := range []string{s.cfg.Source, s.cfg.Destination} {
		if err := s.requirePartition(ctx, name); err != nil {
			return batch.Summary{}, err
		}
	}

	var scanErr error
	pipeline := ingest.New(s.store, ingest.Config{
		Collection: s.cfg.Destination,
		Partition:  s.cfg.Destination,
		Capacity:   s.cfg.PageSize,
	}, ingest.RawDocument, s.logger)
	if s.observer != nil {
		pipeline.WithObserver(s.observer)
	}

	summary, err := pipeline.Run(ctx, s.migrated(ctx, &scanErr))
	if err != nil {
		return summary, err
	}
	if scanErr != nil {
		return summary, fmt.Errorf("scan %s: %w", s.cfg.Source, scanErr)
	}
	s.logger.Info("migration finished",
		zap.String("source", s.cfg.Source),
		zap.String("destination", s.cfg.Destination),
		zap.Int("migrated", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) requirePartition(ctx context.Context, name string) error {
	opCtx, cancel := store.OperationTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()
	ok, err := s.store.Exists(opCtx, name)
	if err != nil {
		return fmt.Errorf("check partition %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, store.ErrPartitionNotFound)
	}
	return nil
}

// migrated pages through the source by id. A scan failure ends the sequence
// and is reported through errp rather than as malformed input.
func (s *Service) migrated(ctx context.Context, errp *error) iter.Seq2[store.Document, error] {
	return func(yield func(store.Document, error) bool) {
		after := ""
		for {
			opCtx, cancel := store.OperationTimeout(ctx, s.cfg.OperationTimeout)
			page, err := s.store.Scan(opCtx, s.cfg.Source, after, s.cfg.PageSize)
			cancel()
			if err != nil {
				*errp = err
				return
			}
			for _, d := range page {
				if !yield(store.Document{ID: d.ID, Source: application.Migrate(d.Source)}, nil) {
					return
				}
			}
			if len(page) < s.cfg.PageSize {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}
