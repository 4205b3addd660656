package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailfold_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailfold_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Ingestion metrics
	IngestResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailfold_ingest_results_total",
			Help: "Ingestion outcomes by result",
		},
		[]string{"outcome"}, // "created", "completed", "duplicate"
	)

	IngestRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailfold_ingest_rejections_total",
			Help: "Webhook deliveries rejected before storage",
		},
		[]string{"reason"}, // "malformed", "scope_not_found", "scope_disabled", "storage"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailfold_ingest_duration_seconds",
			Help:    "Time spent ingesting one inbound event",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// Attachment metrics
	AttachmentsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailfold_attachments_persisted_total",
			Help: "Attachment blobs persisted successfully",
		},
	)

	AttachmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailfold_attachment_failures_total",
			Help: "Attachment persistence failures (non-fatal)",
		},
		[]string{"stage"}, // "blob" or "metadata"
	)
)
