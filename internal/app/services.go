package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/config"
	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/application"
	"github.com/kailas-cloud/dossier/internal/domain/partition"
	kvredis "github.com/kailas-cloud/dossier/internal/kv/redis"
	"github.com/kailas-cloud/dossier/internal/metrics"
	"github.com/kailas-cloud/dossier/internal/store"
	chiTransport "github.com/kailas-cloud/dossier/internal/transport/chi"
	archiveuc "github.com/kailas-cloud/dossier/internal/usecase/archive"
	healthuc "github.com/kailas-cloud/dossier/internal/usecase/health"
	"github.com/kailas-cloud/dossier/internal/usecase/ingest"
	migrateuc "github.com/kailas-cloud/dossier/internal/usecase/migrate"
	provisionuc "github.com/kailas-cloud/dossier/internal/usecase/provision"
	searchuc "github.com/kailas-cloud/dossier/internal/usecase/search"
)

const healthTimeout = 3 * time.Second

// Schemes returns the partition scheme of every collection by name.
func Schemes(cfg *config.Config) map[string]partition.Scheme {
	scheme := func(p config.PartitionConfig) partition.Scheme {
		return partition.Scheme{Hot: p.Hot, ColdPrefix: p.ColdPrefix}
	}
	return map[string]partition.Scheme{
		domain.CollectionProducts:       scheme(cfg.Collections.Products),
		domain.CollectionApplications:   scheme(cfg.Collections.Applications),
		domain.CollectionApplicationsV2: scheme(cfg.Collections.ApplicationsV2),
	}
}

// NewServices wires every use case on top of st and emb. A nil clock uses
// time.Now. Health is left to the caller, which knows the live dependencies.
func NewServices(
	cfg *config.Config, st store.Store, emb domain.Embedder, now partition.Clock, logger *zap.Logger,
) (chiTransport.Services, error) {
	if now == nil {
		now = time.Now
	}
	schemes := Schemes(cfg)
	products := schemes[domain.CollectionProducts]
	legacy := schemes[domain.CollectionApplications]
	current := schemes[domain.CollectionApplicationsV2]

	productSchema, err := provisionuc.ProductSchema(cfg.Embedding.Dimensions)
	if err != nil {
		return chiTransport.Services{}, fmt.Errorf("product schema: %w", err)
	}

	opTimeout := cfg.Store.OperationTimeout()
	limits := searchuc.Limits{
		DefaultSize:      cfg.Search.DefaultPageSize,
		MaxSize:          cfg.Search.MaxPageSize,
		OperationTimeout: opTimeout,
	}
	retention := cfg.Archive.RetentionYears
	observer := metrics.PipelineObserver{}

	productsRouter := partition.NewRouter(products, retention, now, logger.Named("router.products"))
	legacyRouter := partition.NewRouter(legacy, retention, now, logger.Named("router.applications"))
	currentRouter := partition.NewRouter(current, retention, now, logger.Named("router.applications_v2"))

	archive := func(name string, scheme partition.Scheme) *archiveuc.Service {
		return archiveuc.New(st, archiveuc.Config{
			Collection:       name,
			Scheme:           scheme,
			RetentionYears:   retention,
			Concurrency:      cfg.Archive.Concurrency,
			OperationTimeout: time.Duration(cfg.Archive.OperationTimeoutSec) * time.Second,
		}, now, logger).WithObserver(observer)
	}

	return chiTransport.Services{
		Provision: provisionuc.New(st, []provisionuc.Collection{
			{Name: domain.CollectionProducts, Scheme: products, Schema: productSchema},
			{Name: domain.CollectionApplications, Scheme: legacy, Schema: provisionuc.LegacyApplicationSchema()},
			{Name: domain.CollectionApplicationsV2, Scheme: current, Schema: provisionuc.ApplicationSchema()},
		}, opTimeout, logger),

		Products: searchuc.NewProducts(st, productsRouter, emb, limits, logger).
			WithKNNDefaults(cfg.Search.DefaultK, cfg.Search.DefaultCandidate),
		ProductIngest: ingest.New(st, ingest.Config{
			Collection:       domain.CollectionProducts,
			Partition:        products.Hot,
			Capacity:         cfg.Ingest.ProductBatchSize,
			OperationTimeout: opTimeout,
		}, ingest.ProductDocument(now), logger).
			WithHook(ingest.EmbedProducts(emb)).
			WithObserver(observer),
		ProductArchive:  archive(domain.CollectionProducts, products),
		ProductsRouting: productsRouter,

		Legacy: searchuc.NewApplications(st, legacyRouter, searchuc.ApplicationCompiler{
			Scheme: searchuc.LegacyApplicants(),
			Limits: limits,
		}, application.LegacyFromSource, logger),
		LegacyIngest: ingest.New(st, ingest.Config{
			Collection:       domain.CollectionApplications,
			Partition:        legacy.Hot,
			Capacity:         cfg.Ingest.ApplicationBatchSize,
			OperationTimeout: opTimeout,
		}, ingest.LegacyDocument, logger).WithObserver(observer),

		Applications: searchuc.NewApplications(st, currentRouter, searchuc.ApplicationCompiler{
			Scheme:     searchuc.TaggedClients(),
			FoldHeader: true,
			Limits:     limits,
		}, application.FromSource, logger),
		ApplicationIngest: ingest.New(st, ingest.Config{
			Collection:       domain.CollectionApplicationsV2,
			Partition:        current.Hot,
			Capacity:         cfg.Ingest.ApplicationBatchSize,
			OperationTimeout: opTimeout,
		}, ingest.ApplicationDocument, logger).WithObserver(observer),
		ApplicationArchive:  archive(domain.CollectionApplicationsV2, current),
		ApplicationsRouting: currentRouter,
		Migrate: migrateuc.New(st, migrateuc.Config{
			Source:           legacy.Hot,
			Destination:      current.Hot,
			PageSize:         cfg.Ingest.MigrationPageSize,
			OperationTimeout: opTimeout,
		}, logger).WithObserver(observer),

		Health: healthuc.New(healthTimeout, healthuc.Component{Name: "store", Critical: true, Pinger: st}),
	}, nil
}

// newHealth probes the store (critical), the embedding cache and the provider.
func newHealth(st store.Store, cache *kvredis.Store, emb domain.Embedder) *healthuc.Service {
	components := []healthuc.Component{{Name: "store", Critical: true, Pinger: st}}
	if cache != nil {
		components = append(components, healthuc.Component{Name: "cache", Pinger: cache})
	}
	if hc, ok := emb.(domain.HealthChecker); ok {
		components = append(components, healthuc.Component{
			Name:   "embedding",
			Pinger: healthuc.PingerFunc(func(ctx context.Context) error { return hc.HealthCheck(ctx) }),
		})
	}
	return healthuc.New(healthTimeout, components...)
}
