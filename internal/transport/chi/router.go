package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/metrics"
)

// NewRouter mounts every route of s behind the shared middleware stack.
func NewRouter(s *Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed", "")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/products", func(r chi.Router) {
		r.Post("/init", s.InitProducts)
		r.Post("/seed", s.SeedProducts)
		r.Post("/search", s.SearchProducts)
		r.Post("/semantic-search", s.SemanticSearchProducts)
		r.Post("/archive", s.ArchiveProducts)
		r.Get("/partitions", s.RouteProducts)
	})

	r.Route("/api/applications", func(r chi.Router) {
		r.Post("/init", s.InitApplications)
		r.Post("/seed", s.SeedApplications)
		r.Post("/search", s.SearchApplications)

		r.Route("/v2", func(r chi.Router) {
			r.Post("/init", s.InitApplicationsV2)
			r.Post("/seed", s.SeedApplicationsV2)
			r.Post("/search", s.SearchApplicationsV2)
			r.Post("/migrate", s.Migrate)
			r.Post("/archive", s.ArchiveApplicationsV2)
			r.Get("/partitions", s.RouteApplicationsV2)
		})
	})

	return r
}
