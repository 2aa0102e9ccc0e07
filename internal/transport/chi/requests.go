package chi

import (
	"time"

	"github.com/kailas-cloud/dossier/internal/domain/application"
	"github.com/kailas-cloud/dossier/internal/domain/batch"
	"github.com/kailas-cloud/dossier/internal/domain/product"
	archiveuc "github.com/kailas-cloud/dossier/internal/usecase/archive"
	searchuc "github.com/kailas-cloud/dossier/internal/usecase/search"
)

// VariantRequest filters on a single product variant.
type VariantRequest struct {
	SKU   string `json:"sku"`
	Size  string `json:"size"`
	Color string `json:"color"`
}

// ProductSearchRequest is the body of POST /api/products/search.
type ProductSearchRequest struct {
	Query         string         `json:"query"`
	Category      string         `json:"category"`
	MinPrice      *float64       `json:"minPrice"`
	MaxPrice      *float64       `json:"maxPrice"`
	CreatedAtFrom *time.Time     `json:"createdAtFrom"`
	CreatedAtTo   *time.Time     `json:"createdAtTo"`
	Variant       VariantRequest `json:"variant"`
	From          int            `json:"from"`
	Size          int            `json:"size"`
	Sort          string         `json:"sort"`
}

func (r *ProductSearchRequest) filter() *searchuc.ProductFilter {
	return &searchuc.ProductFilter{
		Query:         r.Query,
		Category:      r.Category,
		MinPrice:      r.MinPrice,
		MaxPrice:      r.MaxPrice,
		CreatedAtFrom: r.CreatedAtFrom,
		CreatedAtTo:   r.CreatedAtTo,
		Variant: searchuc.VariantFilter{
			SKU:   r.Variant.SKU,
			Size:  r.Variant.Size,
			Color: r.Variant.Color,
		},
		From: r.From,
		Size: r.Size,
		Sort: r.Sort,
	}
}

// SemanticSearchRequest is the body of POST /api/products/semantic-search.
type SemanticSearchRequest struct {
	Query         string     `json:"query"`
	Category      string     `json:"category"`
	MinPrice      *float64   `json:"minPrice"`
	MaxPrice      *float64   `json:"maxPrice"`
	CreatedAtFrom *time.Time `json:"createdAtFrom"`
	CreatedAtTo   *time.Time `json:"createdAtTo"`
	K             int        `json:"k"`
	NumCandidates int        `json:"numCandidates"`
	Similarity    *float64   `json:"similarity"`
}

func (r *SemanticSearchRequest) filter() *searchuc.SemanticFilter {
	return &searchuc.SemanticFilter{
		Query:         r.Query,
		Category:      r.Category,
		MinPrice:      r.MinPrice,
		MaxPrice:      r.MaxPrice,
		CreatedAtFrom: r.CreatedAtFrom,
		CreatedAtTo:   r.CreatedAtTo,
		K:             r.K,
		NumCandidates: r.NumCandidates,
		Similarity:    r.Similarity,
	}
}

// ApplicationSearchRequest is the body of both application search routes.
type ApplicationSearchRequest struct {
	Product       string     `json:"product"`
	Transaction   string     `json:"transaction"`
	Channel       string     `json:"channel"`
	Status        string     `json:"status"`
	User          string     `json:"user"`
	CreatedAtFrom *time.Time `json:"createdAtFrom"`
	CreatedAtTo   *time.Time `json:"createdAtTo"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	NationalID    string     `json:"nationalId"`
	ClientID      string     `json:"clientId"`
	Roles         []string   `json:"roles"`
	From          int        `json:"from"`
	Size          int        `json:"size"`
	Sort          string     `json:"sort"`
}

func (r *ApplicationSearchRequest) filter() (*searchuc.ApplicationFilter, error) {
	roles, err := application.ParseRoles(r.Roles)
	if err != nil {
		return nil, err
	}
	return &searchuc.ApplicationFilter{
		Product:       r.Product,
		Transaction:   r.Transaction,
		Channel:       r.Channel,
		Status:        r.Status,
		User:          r.User,
		CreatedAtFrom: r.CreatedAtFrom,
		CreatedAtTo:   r.CreatedAtTo,
		Client: searchuc.ClientFilter{
			Email:      r.Email,
			FirstName:  r.FirstName,
			LastName:   r.LastName,
			NationalID: r.NationalID,
			ClientID:   r.ClientID,
		},
		Roles: roles,
		From:  r.From,
		Size:  r.Size,
		Sort:  r.Sort,
	}, nil
}

// MessageResponse is the body of init and other status-only routes.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// IngestResponse reports a seed or migration run.
type IngestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	batch.Summary
}

func ingestResponse(s batch.Summary) IngestResponse {
	return IngestResponse{Success: s.Success(), Message: s.Message(), Summary: s}
}

// ProductPage is the body of product searches.
type ProductPage struct {
	Success    bool              `json:"success"`
	Products   []product.Product `json:"products"`
	Total      int               `json:"total"`
	Partitions []string          `json:"partitions"`
}

// ApplicationPage is the body of application searches.
type ApplicationPage[T any] struct {
	Success      bool     `json:"success"`
	Applications []T      `json:"applications"`
	Total        int      `json:"total"`
	Partitions   []string `json:"partitions"`
}

// ArchiveResponse reports an archival run.
type ArchiveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	*archiveuc.Report
}

// RouteResponse lists the partitions a date window routes to.
type RouteResponse struct {
	Success    bool       `json:"success"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Partitions []string   `json:"partitions"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
