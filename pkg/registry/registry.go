// Package registry provides the per-run claim set that gives exactly-once fetch
// semantics per object id. The first caller to claim an id owns its expansion;
// every later claim on the same id fails for the rest of the run.
package registry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for claim operations.
var (
	// ClaimsTotal tracks claim attempts by result (won, rejected, error).
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notion_registry_claims_total",
			Help: "Total number of registry claim attempts by result",
		},
		[]string{"backend", "result"},
	)
)

// Registry is a set-once claim set scoped to one run.
type Registry interface {
	// Claim atomically marks id as claimed. It returns true only for the first caller.
	Claim(ctx context.Context, id string) (bool, error)

	// AllClaimed returns every claimed id, in no particular order.
	AllClaimed(ctx context.Context) ([]string, error)

	// Discard releases the registry at run end.
	Discard(ctx context.Context) error
}

func recordClaim(backend string, won bool, err error) {
	switch {
	case err != nil:
		ClaimsTotal.WithLabelValues(backend, "error").Inc()
	case won:
		ClaimsTotal.WithLabelValues(backend, "won").Inc()
	default:
		ClaimsTotal.WithLabelValues(backend, "rejected").Inc()
	}
}
