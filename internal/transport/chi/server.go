// Package chi serves the dossier HTTP API.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/application"
	"github.com/kailas-cloud/dossier/internal/domain/batch"
	"github.com/kailas-cloud/dossier/internal/domain/product"
	logpkg "github.com/kailas-cloud/dossier/internal/logger"
	"github.com/kailas-cloud/dossier/internal/transport/jsonstream"
	archiveuc "github.com/kailas-cloud/dossier/internal/usecase/archive"
	healthuc "github.com/kailas-cloud/dossier/internal/usecase/health"
	"github.com/kailas-cloud/dossier/internal/usecase/ingest"
	migrateuc "github.com/kailas-cloud/dossier/internal/usecase/migrate"
	provisionuc "github.com/kailas-cloud/dossier/internal/usecase/provision"
	searchuc "github.com/kailas-cloud/dossier/internal/usecase/search"
)

const defaultMaxBody = 32 << 20

// Router resolves the partitions of a createdAt window.
type Router interface {
	Route(from, to *time.Time) ([]string, error)
}

// Services are the use cases behind the HTTP API.
type Services struct {
	Provision *provisionuc.Service
	Health    *healthuc.Service

	Products        *searchuc.Products
	ProductIngest   *ingest.Pipeline[product.Product]
	ProductArchive  *archiveuc.Service
	ProductsRouting Router

	Legacy       *searchuc.Applications[application.Legacy]
	LegacyIngest *ingest.Pipeline[application.Legacy]

	Applications        *searchuc.Applications[application.Application]
	ApplicationIngest   *ingest.Pipeline[application.Application]
	ApplicationArchive  *archiveuc.Service
	ApplicationsRouting Router
	Migrate             *migrateuc.Service
}

// Server holds the HTTP handlers.
type Server struct {
	svc     Services
	maxBody int64
	logger  *zap.Logger
}

// NewServer creates an HTTP API server. maxBody caps seed request bodies in
// bytes; 0 uses 32 MiB.
func NewServer(svc Services, maxBody int64, logger *zap.Logger) *Server {
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &Server{svc: svc, maxBody: maxBody, logger: logger.Named("http")}
}

// InitProducts handles POST /api/products/init.
func (s *Server) InitProducts(w http.ResponseWriter, r *http.Request) {
	s.initCollection(w, r, domain.CollectionProducts)
}

// InitApplications handles POST /api/applications/init.
func (s *Server) InitApplications(w http.ResponseWriter, r *http.Request) {
	s.initCollection(w, r, domain.CollectionApplications)
}

// InitApplicationsV2 handles POST /api/applications/v2/init.
func (s *Server) InitApplicationsV2(w http.ResponseWriter, r *http.Request) {
	s.initCollection(w, r, domain.CollectionApplicationsV2)
}

func (s *Server) initCollection(w http.ResponseWriter, r *http.Request, name string) {
	res, err := s.svc.Provision.Init(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
		s.logger.Info("collection provisioned", zap.String("collection", name))
	}
	writeJSON(w, status, MessageResponse{Success: true, Message: res.Message})
}

// SeedProducts handles POST /api/products/seed.
func (s *Server) SeedProducts(w http.ResponseWriter, r *http.Request) {
	seed(s, w, r, s.svc.ProductIngest)
}

// SeedApplications handles POST /api/applications/seed.
func (s *Server) SeedApplications(w http.ResponseWriter, r *http.Request) {
	seed(s, w, r, s.svc.LegacyIngest)
}

// SeedApplicationsV2 handles POST /api/applications/v2/seed.
func (s *Server) SeedApplicationsV2(w http.ResponseWriter, r *http.Request) {
	seed(s, w, r, s.svc.ApplicationIngest)
}

// seed streams a JSON array body through p.
func seed[T any](s *Server, w http.ResponseWriter, r *http.Request, p *ingest.Pipeline[T]) {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	summary, err := p.Run(r.Context(), jsonstream.Array[T](body))
	if err != nil {
		s.writeSummaryError(w, r, summary, err)
		return
	}
	writeJSON(w, ingestStatus(summary), ingestResponse(summary))
}

// Migrate handles POST /api/applications/v2/migrate.
func (s *Server) Migrate(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Migrate.Run(r.Context())
	if err != nil {
		s.writeSummaryError(w, r, summary, err)
		return
	}
	writeJSON(w, ingestStatus(summary), ingestResponse(summary))
}

// ingestStatus is 200 unless every attempted document failed.
func ingestStatus(s batch.Summary) int {
	if s.Success() {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// writeSummaryError reports an aborted run together with what it had written.
func (s *Server) writeSummaryError(w http.ResponseWriter, r *http.Request, summary batch.Summary, err error) {
	if summary.Batches == 0 {
		s.handleDomainError(w, r, err)
		return
	}
	logpkg.FromContext(r.Context()).Warn("ingest stopped early", zap.Error(err))
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrMalformedInput) {
		status = http.StatusBadRequest
	}
	resp := ingestResponse(summary)
	resp.Success = false
	resp.Error = err.Error()
	writeJSON(w, status, resp)
}

// SearchProducts handles POST /api/products/search.
func (s *Server) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req ProductSearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	page, err := s.svc.Products.Search(r.Context(), req.filter())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductPage{
		Success:    true,
		Products:   page.Items,
		Total:      page.Total,
		Partitions: page.Partitions,
	})
}

// SemanticSearchProducts handles POST /api/products/semantic-search.
func (s *Server) SemanticSearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SemanticSearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	page, err := s.svc.Products.SemanticSearch(r.Context(), req.filter())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductPage{
		Success:    true,
		Products:   page.Items,
		Total:      page.Total,
		Partitions: page.Partitions,
	})
}

// SearchApplications handles POST /api/applications/search.
func (s *Server) SearchApplications(w http.ResponseWriter, r *http.Request) {
	searchApplications(s, w, r, s.svc.Legacy)
}

// SearchApplicationsV2 handles POST /api/applications/v2/search.
func (s *Server) SearchApplicationsV2(w http.ResponseWriter, r *http.Request) {
	searchApplications(s, w, r, s.svc.Applications)
}

func searchApplications[T any](s *Server, w http.ResponseWriter, r *http.Request, svc *searchuc.Applications[T]) {
	var req ApplicationSearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := req.filter()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	page, err := svc.Search(r.Context(), f)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplicationPage[T]{
		Success:      true,
		Applications: page.Items,
		Total:        page.Total,
		Partitions:   page.Partitions,
	})
}

// ArchiveProducts handles POST /api/products/archive.
func (s *Server) ArchiveProducts(w http.ResponseWriter, r *http.Request) {
	s.archive(w, r, s.svc.ProductArchive)
}

// ArchiveApplicationsV2 handles POST /api/applications/v2/archive.
func (s *Server) ArchiveApplicationsV2(w http.ResponseWriter, r *http.Request) {
	s.archive(w, r, s.svc.ApplicationArchive)
}

func (s *Server) archive(w http.ResponseWriter, r *http.Request, svc *archiveuc.Service) {
	report, err := svc.Run(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ArchiveResponse{
			Success: true,
			Message: archiveMessage(report),
			Report:  report,
		})
	case report != nil:
		logpkg.FromContext(r.Context()).Error("archive failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ArchiveResponse{
			Message: archiveMessage(report),
			Error:   err.Error(),
			Report:  report,
		})
	default:
		s.handleDomainError(w, r, err)
	}
}

func archiveMessage(r *archiveuc.Report) string {
	switch {
	case r.YearsProcessed == 0:
		return "No documents to archive"
	case r.Failures == 0:
		return fmt.Sprintf("Archived %d documents across %d years", r.TotalDeleted, r.YearsProcessed)
	default:
		return fmt.Sprintf("Archived %d of %d years; %d failed", r.Succeeded(), r.YearsProcessed, r.Failures)
	}
}

// RouteProducts handles GET /api/products/partitions.
func (s *Server) RouteProducts(w http.ResponseWriter, r *http.Request) {
	s.route(w, r, s.svc.ProductsRouting)
}

// RouteApplicationsV2 handles GET /api/applications/v2/partitions.
func (s *Server) RouteApplicationsV2(w http.ResponseWriter, r *http.Request) {
	s.route(w, r, s.svc.ApplicationsRouting)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request, router Router) {
	var from, to *time.Time
	if err := runtime.BindQueryParameter("form", true, false, "from", r.URL.Query(), &from); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Invalid format for parameter from: "+err.Error(), "")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", r.URL.Query(), &to); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Invalid format for parameter to: "+err.Error(), "")
		return
	}
	if from != nil && to != nil && from.After(*to) {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "from must not be after to", "")
		return
	}
	partitions, err := router.Route(from, to)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RouteResponse{Success: true, From: from, To: to, Partitions: partitions})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// decode reads a JSON body into dst, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error(), "")
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error", "")
}
