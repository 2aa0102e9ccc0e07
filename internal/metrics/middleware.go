package metrics

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/dossier/internal/domain"
)

const noCollection = "none"

// HTTP metrics are labelled by the collection and operation a route serves
// rather than the raw path, e.g. collection="applications-v2" operation="seed".
var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dossier",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by collection and operation",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 120},
		},
		[]string{"collection", "operation", "method"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by collection, operation and status",
		},
		[]string{"collection", "operation", "method", "status"},
	)

	httpRequestBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dossier",
			Subsystem: "http",
			Name:      "request_body_bytes",
			Help:      "Request body bytes read, dominated by seed uploads",
			Buckets:   prometheus.ExponentialBuckets(256, 8, 9),
		},
		[]string{"collection", "operation"},
	)
)

var httpMetricsRegistered bool

// RegisterHTTPMetrics registers the HTTP metrics once.
func RegisterHTTPMetrics() {
	if httpMetricsRegistered {
		return
	}
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, httpRequestBytes)
	httpMetricsRegistered = true
}

// Middleware records latency, status and body size per collection operation.
// It must sit on the root router so the full route pattern is known afterwards.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			body := &countingBody{ReadCloser: r.Body}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = body
			}
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			collection, operation := routeLabels(routePattern(r))
			httpRequestDuration.WithLabelValues(collection, operation, r.Method).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(collection, operation, r.Method, strconv.Itoa(ww.status)).Inc()
			if body.n > 0 {
				httpRequestBytes.WithLabelValues(collection, operation).Observe(float64(body.n))
			}
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

// routeLabels maps a route pattern to the collection and operation it serves:
// /api/products/seed is (products, seed), /api/applications/v2/archive is
// (applications-v2, archive), /health is (none, health).
func routeLabels(pattern string) (collection, operation string) {
	if pattern == "" {
		return noCollection, "unknown"
	}
	rest, ok := strings.CutPrefix(pattern, "/api/")
	if !ok {
		return noCollection, strings.Trim(pattern, "/")
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == domain.CollectionApplications && parts[1] == "v2":
		return domain.CollectionApplicationsV2, parts[2]
	case len(parts) == 2:
		return parts[0], parts[1]
	default:
		return noCollection, rest
	}
}

type countingBody struct {
	io.ReadCloser
	n int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	return n, err //nolint:wrapcheck // io.EOF must pass through unwrapped
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}
