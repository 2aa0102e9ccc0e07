// Package app is the composition root shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/config"
	"github.com/kailas-cloud/dossier/internal/domain"
	kvredis "github.com/kailas-cloud/dossier/internal/kv/redis"
	"github.com/kailas-cloud/dossier/internal/metrics"
	"github.com/kailas-cloud/dossier/internal/store"
	"github.com/kailas-cloud/dossier/internal/store/memory"
	"github.com/kailas-cloud/dossier/internal/store/mongo"
	chiTransport "github.com/kailas-cloud/dossier/internal/transport/chi"
)

// App holds the connected dependencies and the use cases built on them.
type App struct {
	Store    store.Store
	Embedder domain.Embedder
	Services chiTransport.Services

	cache  *kvredis.Store
	logger *zap.Logger
}

// New connects the store and the optional cache, builds the embedder chain
// and wires every use case.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterStoreMetrics()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Store: st, logger: logger}

	if len(cfg.Cache.Addrs) > 0 {
		a.cache, err = openCache(ctx, cfg.Cache, logger)
		if err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
	}

	a.Embedder = buildEmbedder(cfg, a.cache, logger)
	a.Services, err = NewServices(cfg, st, a.Embedder, nil, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Services.Health = newHealth(st, a.cache, a.Embedder)
	return a, nil
}

// Close releases the store and cache connections.
func (a *App) Close(ctx context.Context) {
	if a.cache != nil {
		a.cache.Close()
	}
	if err := a.Store.Close(ctx); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("using the in-memory store; data is lost on exit")
		return metrics.NewInstrumentedStore(memory.New()), nil
	case "mongo":
		st, err := mongo.New(ctx, mongo.Config{URI: cfg.Store.URI, Database: cfg.Store.Database}, logger)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		timeout := time.Duration(cfg.Store.ReadinessTimeoutSec) * time.Second
		if err := st.WaitForReady(ctx, timeout); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("mongo not ready: %w", err)
		}
		logger.Info("connected to document store", zap.String("database", cfg.Store.Database))
		return metrics.NewInstrumentedStore(st), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openCache connects the embedding cache. An unreachable cache is not fatal:
// the client reconnects and the health check reports it as degraded.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (*kvredis.Store, error) {
	c, err := kvredis.NewStore(kvredis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	if err := c.WaitForReady(ctx, 5*time.Second); err != nil {
		logger.Warn("embedding cache not ready", zap.Strings("addrs", cfg.Addrs), zap.Error(err))
	}
	return c, nil
}
