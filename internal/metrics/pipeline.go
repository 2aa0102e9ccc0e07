package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and archival Prometheus metrics.
var (
	IngestBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Name:      "ingest_batches_total",
			Help:      "Ingested batches by outcome",
		},
		[]string{"collection", "outcome"},
	)

	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Name:      "ingest_documents_total",
			Help:      "Ingested documents by result",
		},
		[]string{"collection", "result"},
	)

	ArchiveYearsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Name:      "archive_years_total",
			Help:      "Archived years by status",
		},
		[]string{"collection", "status"},
	)

	ArchiveDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Name:      "archive_documents_total",
			Help:      "Documents moved to cold partitions by archival",
		},
		[]string{"collection"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingestion and archival metrics.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestBatchesTotal)
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(ArchiveYearsTotal)
	prometheus.MustRegister(ArchiveDocumentsTotal)
	pipelineMetricsRegistered = true
}

// PipelineObserver feeds ingestion and archival accounting into Prometheus.
type PipelineObserver struct{}

// ObserveBatch records one ingested batch.
func (PipelineObserver) ObserveBatch(collection, outcome string, succeeded, failed int) {
	IngestBatchesTotal.WithLabelValues(collection, outcome).Inc()
	IngestDocumentsTotal.WithLabelValues(collection, "succeeded").Add(float64(succeeded))
	IngestDocumentsTotal.WithLabelValues(collection, "failed").Add(float64(failed))
}

// ObserveYear records one archived year and the documents it moved.
func (PipelineObserver) ObserveYear(collection, status string, documents int64) {
	ArchiveYearsTotal.WithLabelValues(collection, status).Inc()
	ArchiveDocumentsTotal.WithLabelValues(collection).Add(float64(documents))
}
