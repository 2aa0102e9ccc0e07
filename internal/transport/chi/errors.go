package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/store"
	"github.com/kailas-cloud/dossier/internal/transport/jsonstream"
)

// Error codes carried in error bodies.
const (
	CodeBadRequest        = "bad_request"
	CodeValidationFailed  = "validation_failed"
	CodeUnauthorized      = "unauthorized"
	CodeNotFound          = "not_found"
	CodePartitionNotFound = "partition_not_found"
	CodeRateLimited       = "rate_limited"
	CodeEmbeddingProvider = "embedding_provider_error"
	CodeStoreError        = "store_error"
	CodeArchiveFailed     = "archive_failed"
	CodeInternalError     = "internal_error"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrInvalidSort, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(domain.ErrInvalidRole, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(domain.ErrQueryRequired, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(domain.ErrMalformedInput, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(jsonstream.ErrNotArray, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(domain.ErrUnknownCollection, http.StatusNotFound, CodeNotFound),
	sentinelHandler(store.ErrPartitionNotFound, http.StatusNotFound, CodePartitionNotFound),
	sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
	sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider),
	storeErrorHandler,
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Caller input errors carry their full text, which never includes store internals.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if status == http.StatusBadRequest || status == http.StatusNotFound {
			msg = err.Error()
		}
		writeError(w, status, code, msg, "")
		return true
	}
}

// storeErrorHandler reports store faults with the raw store text in the error field.
func storeErrorHandler(w http.ResponseWriter, err error) bool {
	var se *store.Error
	if !errors.As(err, &se) {
		return false
	}
	writeError(w, http.StatusBadGateway, CodeStoreError, "document store error", se.Error())
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, detail string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
		Error:   detail,
	})
}
