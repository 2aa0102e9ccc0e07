package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/batch"
	"github.com/kailas-cloud/dossier/internal/domain/product"
	"github.com/kailas-cloud/dossier/internal/store"
	"github.com/kailas-cloud/dossier/internal/store/memory"
)

type writeFunc func(ctx context.Context, partition string, docs []store.Document) ([]store.ItemResult, error)

type mockWriter struct {
	fn      writeFunc
	batches [][]string
}

func (m *mockWriter) BulkWrite(ctx context.Context, partition string, docs []store.Document) ([]store.ItemResult, error) {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	m.batches = append(m.batches, ids)
	if m.fn != nil {
		return m.fn(ctx, partition, docs)
	}
	return make([]store.ItemResult, len(docs)), nil
}

type observation struct {
	outcome   string
	succeeded int
	failed    int
}

type mockObserver struct{ seen []observation }

func (m *mockObserver) ObserveBatch(_, outcome string, succeeded, failed int) {
	m.seen = append(m.seen, observation{outcome, succeeded, failed})
}

func docs(ids ...string) iter.Seq2[store.Document, error] {
	return func(yield func(store.Document, error) bool) {
		for _, id := range ids {
			if !yield(store.Document{ID: id, Source: map[string]any{"id": id}}, nil) {
				return
			}
		}
	}
}

func failAfter(n int, err error) iter.Seq2[store.Document, error] {
	return func(yield func(store.Document, error) bool) {
		for i := range n {
			id := fmt.Sprintf("d%d", i)
			if !yield(store.Document{ID: id, Source: map[string]any{}}, nil) {
				return
			}
		}
		yield(store.Document{}, err)
	}
}

func newPipeline(w Writer, capacity int) *Pipeline[store.Document] {
	return New(w, Config{Collection: "test", Partition: "p", Capacity: capacity}, RawDocument, zap.NewNop())
}

func TestRun_TransportFailureIsolatedToBatch(t *testing.T) {
	w := &mockWriter{}
	w.fn = func(_ context.Context, _ string, d []store.Document) ([]store.ItemResult, error) {
		if len(w.batches) == 1 {
			return nil, &store.Error{Op: store.OpBulk, Err: errors.New("connection reset")}
		}
		return make([]store.ItemResult, len(d)), nil
	}
	obs := &mockObserver{}

	sum, err := newPipeline(w, 2).WithObserver(obs).Run(context.Background(), docs("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.TotalProcessed)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 2, sum.Batches)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, 1, sum.Errors[0].Batch)
	assert.Equal(t, batch.FailureTransport, sum.Errors[0].Kind)
	assert.Equal(t, "connection reset", sum.Errors[0].Reason)
	assert.True(t, sum.Success())
	assert.Equal(t, "Partially completed: 1 ingested, 2 failed across 2 batches", sum.Message())

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, w.batches)
	assert.Equal(t, []observation{{OutcomeTransport, 0, 2}, {OutcomeOK, 1, 0}}, obs.seen)
}

func TestRun_ItemErrorsSplitCounts(t *testing.T) {
	w := &mockWriter{fn: func(_ context.Context, _ string, d []store.Document) ([]store.ItemResult, error) {
		res := make([]store.ItemResult, len(d))
		res[1].Err = errors.New("mapper_parsing_exception")
		return res, nil
	}}

	sum, err := newPipeline(w, 3).Run(context.Background(), docs("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, batch.FailureItems, sum.Errors[0].Kind)
	assert.Contains(t, sum.Errors[0].Reason, "mapper_parsing_exception")
}

func TestRun_TotalFailure(t *testing.T) {
	w := &mockWriter{fn: func(context.Context, string, []store.Document) ([]store.ItemResult, error) {
		return nil, errors.New("down")
	}}
	sum, err := newPipeline(w, 2).Run(context.Background(), docs("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.False(t, sum.Success())
	assert.Equal(t, 4, sum.Failed)
	assert.Len(t, sum.Errors, 2)
	assert.Equal(t, "Failed to ingest: 4 failures across 2 batches", sum.Message())
}

func TestRun_Empty(t *testing.T) {
	w := &mockWriter{}
	sum, err := newPipeline(w, 2).Run(context.Background(), docs())
	require.NoError(t, err)
	assert.True(t, sum.Success())
	assert.Zero(t, sum.Batches)
	assert.Empty(t, w.batches)
}

func TestRun_MalformedFlushesPartialBatch(t *testing.T) {
	w := &mockWriter{}
	bad := errors.New("unexpected token at offset 120")

	sum, err := newPipeline(w, 2).Run(context.Background(), failAfter(3, bad))
	require.ErrorIs(t, err, domain.ErrMalformedInput)
	require.ErrorIs(t, err, bad)

	assert.Equal(t, [][]string{{"d0", "d1"}, {"d2"}}, w.batches)
	assert.Equal(t, 3, sum.Succeeded)
	assert.Equal(t, 2, sum.Batches)
}

func TestRun_MalformedFirstElement(t *testing.T) {
	w := &mockWriter{}
	sum, err := newPipeline(w, 2).Run(context.Background(), failAfter(0, errors.New("not an array")))
	require.ErrorIs(t, err, domain.ErrMalformedInput)
	assert.Zero(t, sum.Batches)
	assert.Empty(t, w.batches)
}

func TestRun_HookFailureFailsBatch(t *testing.T) {
	w := &mockWriter{}
	calls := 0
	hook := func(_ context.Context, items []store.Document) error {
		calls++
		if calls == 2 {
			return domain.ErrRateLimited
		}
		for i := range items {
			items[i].Source["prepared"] = true
		}
		return nil
	}

	p := newPipeline(w, 1).WithHook(hook)
	sum, err := p.Run(context.Background(), docs("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, 2, sum.Errors[0].Batch)
	assert.Equal(t, batch.FailurePrepare, sum.Errors[0].Kind)
	assert.Equal(t, [][]string{{"a"}, {"c"}}, w.batches)
}

func TestRun_HungBatchTimesOut(t *testing.T) {
	w := &mockWriter{}
	w.fn = func(ctx context.Context, _ string, d []store.Document) ([]store.ItemResult, error) {
		if len(w.batches) == 1 {
			<-ctx.Done()
			return nil, &store.Error{Op: store.OpBulk, Err: ctx.Err()}
		}
		return make([]store.ItemResult, len(d)), nil
	}
	p := New(w, Config{
		Collection:       "test",
		Partition:        "p",
		Capacity:         2,
		OperationTimeout: 20 * time.Millisecond,
	}, RawDocument, zap.NewNop())

	type result struct {
		sum batch.Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		sum, err := p.Run(context.Background(), docs("a", "b", "c"))
		done <- result{sum, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run blocked on a hung batch")
	}
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.sum.Batches)
	assert.Equal(t, 1, res.sum.Succeeded)
	assert.Equal(t, 2, res.sum.Failed)
	require.Len(t, res.sum.Errors, 1)
	assert.Equal(t, batch.FailureTransport, res.sum.Errors[0].Kind)
	assert.Equal(t, context.DeadlineExceeded.Error(), res.sum.Errors[0].Reason)
}

func TestRun_HungHookTimesOut(t *testing.T) {
	w := &mockWriter{}
	calls := 0
	hook := func(ctx context.Context, _ []store.Document) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
	p := New(w, Config{
		Collection:       "test",
		Partition:        "p",
		Capacity:         1,
		OperationTimeout: 20 * time.Millisecond,
	}, RawDocument, zap.NewNop()).WithHook(hook)

	sum, err := p.Run(context.Background(), docs("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Batches)
	assert.Equal(t, 1, sum.Succeeded)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, batch.FailurePrepare, sum.Errors[0].Kind)
	assert.Equal(t, [][]string{{"b"}}, w.batches)
}

func TestRun_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &mockWriter{fn: func(_ context.Context, _ string, d []store.Document) ([]store.ItemResult, error) {
		cancel()
		return make([]store.ItemResult, len(d)), nil
	}}
	sum, err := newPipeline(w, 1).Run(ctx, docs("a", "b"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Batches)
}

type vecEmbedder struct{ texts []string }

func (e *vecEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.texts = append(e.texts, text)
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
}

func TestProducts_EmbeddedAndNormalized(t *testing.T) {
	st := memory.New()
	emb := &vecEmbedder{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	p := New(st, Config{Collection: "products", Partition: "products", Capacity: 50},
		ProductDocument(func() time.Time { return now }), zap.NewNop()).
		WithHook(EmbedProducts(emb))

	src := func(yield func(product.Product, error) bool) {
		yield(product.Product{Name: "Hat", Category: "hats"}, nil)
	}
	sum, err := p.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, []string{"Hat. Category: hats. Tags: . Colors: . Sizes: "}, emb.texts)

	res, err := st.Search(context.Background(), &store.SearchRequest{Partitions: []string{"products"}})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.NotEmpty(t, res.Hits[0].ID)
	assert.Equal(t, now, res.Hits[0].Source["createdAt"])
	assert.NotNil(t, res.Hits[0].Source["embedding"])
}
