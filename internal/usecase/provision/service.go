// Package provision creates the hot partition of a collection and registers
// the template its cold partitions are created from.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/partition"
	"github.com/kailas-cloud/dossier/internal/store"
)

// Collection is one provisionable collection.
type Collection struct {
	Name   string
	Scheme partition.Scheme
	Schema *store.Schema
}

// Result reports what Init did.
type Result struct {
	Created bool
	Message string
}

// Service provisions collections.
type Service struct {
	store       Store
	collections map[string]Collection
	timeout     time.Duration
	logger      *zap.Logger
}

// New creates a provisioning service.
func New(st Store, collections []Collection, timeout time.Duration, logger *zap.Logger) *Service {
	m := make(map[string]Collection, len(collections))
	for _, c := range collections {
		m[c.Name] = c
	}
	return &Service{store: st, collections: m, timeout: timeout, logger: logger.Named("provision")}
}

// Init creates the hot partition of a collection. An existing partition is
// left untouched and reported as success.
func (s *Service) Init(ctx context.Context, name string) (Result, error) {
	col, ok := s.collections[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, name)
	}
	hot := col.Scheme.Hot

	exists, err := s.exists(ctx, hot)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return Result{Message: fmt.Sprintf("Partition '%s' already exists", hot)}, nil
	}

	opCtx, cancel := store.OperationTimeout(ctx, s.timeout)
	err = s.store.CreatePartition(opCtx, hot, col.Schema)
	cancel()
	switch {
	case errors.Is(err, store.ErrPartitionExists):
		return Result{Message: fmt.Sprintf("Partition '%s' already exists", hot)}, nil
	case err != nil:
		return Result{}, fmt.Errorf("create partition %s: %w", hot, err)
	}

	if col.Scheme.Archived() {
		opCtx, cancel := store.OperationTimeout(ctx, s.timeout)
		err := s.store.CreatePartitionTemplate(opCtx, col.Scheme.ColdPattern(), col.Schema)
		cancel()
		if err != nil {
			return Result{}, fmt.Errorf("register template %s: %w", col.Scheme.ColdPattern(), err)
		}
	}

	s.logger.Info("partition created",
		zap.String("collection", name),
		zap.String("partition", hot),
		zap.Bool("archived", col.Scheme.Archived()),
	)
	return Result{Created: true, Message: fmt.Sprintf("Created partition '%s'", hot)}, nil
}

func (s *Service) exists(ctx context.Context, name string) (bool, error) {
	opCtx, cancel := store.OperationTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.store.Exists(opCtx, name)
	if err != nil {
		return false, fmt.Errorf("check partition %s: %w", name, err)
	}
	return ok, nil
}
