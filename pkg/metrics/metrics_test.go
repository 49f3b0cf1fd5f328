package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notion_test_requests_total"}, []string{"class"})
	requests.WithLabelValues("").Add(3)
	requests.WithLabelValues("timeout").Add(2)

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "notion_test_duration_seconds"})
	duration.Observe(0.2)
	duration.Observe(0.4)

	active := prometheus.NewGauge(prometheus.GaugeOpts{Name: "notion_test_active"})
	active.Set(4)

	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "unrelated_total"})
	other.Inc()

	reg.MustRegister(requests, duration, active, other)

	snap, err := Snapshot(reg)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	want := map[string]float64{
		"notion_test_requests_total":         5,
		"notion_test_duration_seconds_count": 2,
		"notion_test_active":                 4,
	}
	for name, v := range want {
		if snap[name] != v {
			t.Errorf("%s = %v, want %v", name, snap[name], v)
		}
	}
	if _, ok := snap["unrelated_total"]; ok {
		t.Error("metrics without the notion_ prefix should be skipped")
	}

	names := Names(snap)
	if len(names) != 3 || names[0] != "notion_test_active" {
		t.Errorf("Names() = %v", names)
	}
}

func TestHandler(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "notion_handler_test_total"})
	if err := Registry.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer Registry.Unregister(c)
	c.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "notion_handler_test_total 1") {
		t.Errorf("exposition missing counter:\n%s", body)
	}
}
