// Package ingest streams documents into a partition in bounded batches with
// per-batch accounting.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/batch"
	"github.com/kailas-cloud/dossier/internal/store"
)

// Batch outcomes reported to the Observer.
const (
	OutcomeOK        = "ok"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
	OutcomeTransport = "transport_error"
)

// Config selects where and how a pipeline writes.
type Config struct {
	Collection string
	Partition  string
	Capacity   int
	// OperationTimeout bounds one batch: the hook and the write together.
	// Zero means no deadline beyond the caller's.
	OperationTimeout time.Duration
}

// Pipeline reads a source sequentially and writes fixed-capacity batches.
// At most one batch is held in memory.
type Pipeline[T any] struct {
	writer   Writer
	cfg      Config
	toDoc    func(T) store.Document
	hook     Hook[T]
	observer Observer
	logger   *zap.Logger
}

// New creates a pipeline. Capacity below 1 is treated as 1.
func New[T any](writer Writer, cfg Config, toDoc func(T) store.Document, logger *zap.Logger) *Pipeline[T] {
	cfg.Capacity = max(cfg.Capacity, 1)
	return &Pipeline[T]{
		writer: writer,
		cfg:    cfg,
		toDoc:  toDoc,
		logger: logger.Named("ingest").With(zap.String("collection", cfg.Collection)),
	}
}

// WithHook sets the pre-submit hook.
func (p *Pipeline[T]) WithHook(h Hook[T]) *Pipeline[T] {
	p.hook = h
	return p
}

// WithObserver sets the batch observer.
func (p *Pipeline[T]) WithObserver(o Observer) *Pipeline[T] {
	p.observer = o
	return p
}

// Run consumes src until it ends. A malformed element stops reading: the
// pending partial batch is still written, then the summary is returned with
// ErrMalformedInput. Batch failures never abort the run.
func (p *Pipeline[T]) Run(ctx context.Context, src iter.Seq2[T, error]) (batch.Summary, error) {
	var (
		summary batch.Summary
		pending = make([]T, 0, p.cfg.Capacity)
		start   = time.Now()
	)

	for item, err := range src {
		if err != nil {
			p.flush(ctx, &summary, pending)
			p.logger.Warn("malformed input, stopped reading",
				zap.Int("batches", summary.Batches),
				zap.Error(err),
			)
			return summary, fmt.Errorf("%w: %w", domain.ErrMalformedInput, err)
		}
		pending = append(pending, item)
		if len(pending) < p.cfg.Capacity {
			continue
		}
		p.flush(ctx, &summary, pending)
		pending = pending[:0]
		if err := ctx.Err(); err != nil {
			return summary, err
		}
	}
	p.flush(ctx, &summary, pending)

	p.logger.Info("ingest finished",
		zap.Int("processed", summary.TotalProcessed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("batches", summary.Batches),
		zap.Duration("duration", time.Since(start)),
	)
	return summary, nil
}

// flush writes one batch and records its outcome. Empty batches are not counted.
func (p *Pipeline[T]) flush(ctx context.Context, summary *batch.Summary, items []T) {
	if len(items) == 0 {
		return
	}
	seq := summary.Batches + 1
	size := len(items)

	ctx, cancel := store.OperationTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()

	if p.hook != nil {
		if err := p.hook(ctx, items); err != nil {
			p.record(summary, size, 0, OutcomeFailed, &batch.Failure{
				Batch: seq, Kind: batch.FailurePrepare, Failed: size, Reason: err.Error(),
			})
			p.logger.Error("batch preparation failed", zap.Int("batch", seq), zap.Error(err))
			return
		}
	}

	docs := make([]store.Document, size)
	for i, it := range items {
		docs[i] = p.toDoc(it)
	}

	results, err := p.writer.BulkWrite(ctx, p.cfg.Partition, docs)
	if err != nil {
		p.record(summary, size, 0, OutcomeTransport, &batch.Failure{
			Batch: seq, Kind: batch.FailureTransport, Failed: size, Reason: transportReason(err),
		})
		p.logger.Error("batch write failed", zap.Int("batch", seq), zap.Int("size", size), zap.Error(err))
		return
	}

	failed := 0
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}
	if failed == 0 {
		p.record(summary, size, size, OutcomeOK, nil)
		p.logger.Debug("batch written", zap.Int("batch", seq), zap.Int("size", size))
		return
	}

	outcome := OutcomePartial
	if failed == size {
		outcome = OutcomeFailed
	}
	p.record(summary, size, size-failed, outcome, &batch.Failure{
		Batch: seq, Kind: batch.FailureItems, Failed: failed,
		Reason: fmt.Sprintf("%d of %d items failed, first: %v", failed, size, firstErr),
	})
	p.logger.Warn("batch had item errors",
		zap.Int("batch", seq),
		zap.Int("failed", failed),
		zap.Int("size", size),
		zap.NamedError("first", firstErr),
	)
}

func (p *Pipeline[T]) record(summary *batch.Summary, size, ok int, outcome string, f *batch.Failure) {
	summary.Record(size, ok, f)
	if p.observer != nil {
		p.observer.ObserveBatch(p.cfg.Collection, outcome, ok, size-ok)
	}
}

func transportReason(err error) string {
	var se *store.Error
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}
