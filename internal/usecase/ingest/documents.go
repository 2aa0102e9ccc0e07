package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/application"
	"github.com/kailas-cloud/dossier/internal/domain/product"
	"github.com/kailas-cloud/dossier/internal/store"
)

// ProductDocument converts products, filling a missing id and createdAt from now.
func ProductDocument(now func() time.Time) func(product.Product) store.Document {
	return func(p product.Product) store.Document {
		p.Normalize(now())
		return store.Document{ID: p.ID, Source: p.Source()}
	}
}

// ApplicationDocument converts a current-shape application.
func ApplicationDocument(a application.Application) store.Document {
	return store.Document{ID: a.ID, Source: a.Source()}
}

// LegacyDocument converts a legacy application.
func LegacyDocument(l application.Legacy) store.Document {
	return store.Document{ID: l.ID, Source: l.Source()}
}

// RawDocument passes an already converted document through.
func RawDocument(d store.Document) store.Document { return d }

// EmbedProducts vectorizes every product of a batch in one provider call.
func EmbedProducts(e domain.Embedder) Hook[product.Product] {
	return func(ctx context.Context, items []product.Product) error {
		texts := make([]string, len(items))
		for i := range items {
			texts[i] = items[i].EmbeddingText()
		}
		res, err := domain.BatchEmbed(ctx, e, texts)
		if err != nil {
			return fmt.Errorf("embed products: %w", err)
		}
		for i := range items {
			items[i].Embedding = res.Embeddings[i]
		}
		return nil
	}
}
