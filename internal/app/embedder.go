package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/config"
	"github.com/kailas-cloud/dossier/internal/domain"
	kvredis "github.com/kailas-cloud/dossier/internal/kv/redis"
	"github.com/kailas-cloud/dossier/internal/metrics"
	"github.com/kailas-cloud/dossier/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/dossier/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/dossier/internal/usecase/embedding"
)

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented.
// The rate limit sits outermost so cache hits never spend tokens.
func buildEmbedder(cfg *config.Config, cache *kvredis.Store, logger *zap.Logger) domain.Embedder {
	ec := cfg.Embedding

	var base domain.Embedder
	switch ec.Provider {
	case "openai":
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Logger:     logger.Named("openai"),
		})
	default:
		base = embeddinguc.NewHashedEmbedder(ec.Dimensions)
	}

	embedder := base
	if cache != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(base, cache, ec.Model, ttl, metrics.EmbeddingCacheTotal, logger.Named("embcache"))
	}

	limiter := embeddinguc.NewRateLimiter(embeddinguc.RateLimitConfig{
		RequestsPerSecond: ec.RateLimit.RequestsPerSecond,
		BurstSize:         ec.RateLimit.Burst,
		MaxWait:           time.Duration(ec.RateLimit.MaxWaitMS) * time.Millisecond,
	})

	logger.Info("embedder created",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions),
		zap.Bool("cached", cache != nil),
		zap.Float64("rate_limit_rps", ec.RateLimit.RequestsPerSecond),
	)
	return embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, limiter, logger.Named("embedding"))
}
