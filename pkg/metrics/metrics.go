// Package metrics exposes the Prometheus registry the engine's metrics live in
// and helpers to serve or summarize them. Metrics are declared with promauto in
// the packages that own them.
package metrics

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Registry is the registerer all notion_* metrics are created in.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry holds.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Prefix is shared by every metric of the engine.
const Prefix = "notion_"

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Snapshot sums every counter whose name starts with Prefix across its label
// sets. Histograms contribute their sample count under "<name>_count".
func Snapshot(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, Prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[name] += m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[name] += m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[name+"_count"] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}

// Names returns the sorted keys of a snapshot.
func Names(snapshot map[string]float64) []string {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metrics Documentation
//
// Transport (pkg/client):
//   - notion_requests_total{endpoint, class} (Counter): exchanges by endpoint and outcome class
//   - notion_request_duration_seconds{endpoint} (Histogram): exchange duration
//
// Retry (pkg/client):
//   - notion_retries_total{error_class} (Counter): retry attempts by class
//   - notion_retry_backoff_seconds{error_class} (Histogram): waits before retrying
//   - notion_retry_exhausted_total{error_class} (Counter): requests that spent the attempt budget
//
// Rate limit (pkg/ratelimit):
//   - notion_rate_limit_hits_total (Counter): 429 responses seen
//   - notion_rate_limit_pause_seconds (Histogram): pauses applied
//
// Registry (pkg/registry):
//   - notion_registry_claims_total{backend, result} (Counter): claims won, rejected or failed
//
// Fan-out (pkg/fanout):
//   - notion_fanout_tasks_total{result} (Counter): pool tasks by outcome
//   - notion_fanout_active_tasks (Gauge): tasks in flight
//
// Graph (pkg/graph):
//   - notion_expansions_total{kind, result} (Counter): page/collection expansions
//   - notion_expansion_duration_seconds{kind} (Histogram): expansion time including subgraph
//   - notion_attachment_downloads_total{result} (Counter): attachment downloads
//   - notion_attachment_bytes_total (Counter): attachment bytes stored
//   - notion_entity_errors_total{kind} (Counter): errors recorded on entities
//
// Example Prometheus Queries:
//
//   # Duplicate discovery rate
//   sum(rate(notion_registry_claims_total{result="rejected"}[5m])) /
//   sum(rate(notion_registry_claims_total[5m]))
//
//   # Rate limit pressure
//   rate(notion_rate_limit_hits_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(notion_request_duration_seconds_bucket[5m]))
