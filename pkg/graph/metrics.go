package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for graph assembly.
var (
	expansionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_expansions_total",
		Help: "Entity expansions by kind and outcome (done, rejected, failed)",
	}, []string{"kind", "result"})

	expansionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notion_expansion_duration_seconds",
		Help:    "Duration of one entity expansion including its subgraph",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})

	attachmentDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_attachment_downloads_total",
		Help: "Attachment downloads by outcome",
	}, []string{"result"})

	attachmentBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notion_attachment_bytes_total",
		Help: "Bytes of attachment content stored",
	})

	entityErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_entity_errors_total",
		Help: "Errors recorded against pages and collections by kind",
	}, []string{"kind"})
)

const (
	kindPage       = "page"
	kindCollection = "collection"

	resultDone     = "done"
	resultRejected = "rejected"
	resultFailed   = "failed"
)
