// Package fanout runs a function over a set of items on a bounded worker pool
// and collects every outcome, successful or not.
package fanout

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxWorkers caps concurrent tasks per fan-out.
const DefaultMaxWorkers = 50

var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_fanout_tasks_total",
		Help: "Fan-out tasks by outcome",
	}, []string{"result"})

	activeTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notion_fanout_active_tasks",
		Help: "Fan-out tasks currently running",
	})
)

// Result is the outcome of one task. Index is the item's position in the input.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Workers returns the pool size for n items: min(limit, n), at least 1.
func Workers(limit, n int) int {
	if limit <= 0 {
		limit = DefaultMaxWorkers
	}
	if n < limit {
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// Map applies fn to every item with at most Workers(limit, len(items)) tasks in
// flight and returns results in input order. A failing task never cancels its
// siblings; its error is reported in its own Result.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	start := time.Now()
	workers := Workers(limit, len(items))
	var done, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(workers)

	for i, item := range items {
		g.Go(func() error {
			results[i].Index = i
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				failed.Add(1)
				tasksTotal.WithLabelValues("cancelled").Inc()
				return nil
			}

			activeTasks.Inc()
			value, err := fn(ctx, item)
			activeTasks.Dec()

			results[i].Value = value
			results[i].Err = err
			if err != nil {
				failed.Add(1)
				tasksTotal.WithLabelValues("error").Inc()
			} else {
				tasksTotal.WithLabelValues("ok").Inc()
			}

			// Progress logging every 50 tasks
			if n := done.Add(1); n%50 == 0 {
				log.Debug().
					Int64("done", n).
					Int("total", len(items)).
					Float64("progress_pct", float64(n)/float64(len(items))*100).
					Msg("Fan-out progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Debug().
		Int("tasks", len(items)).
		Int("workers", workers).
		Int64("failed", failed.Load()).
		Dur("duration", time.Since(start)).
		Msg("Fan-out complete")

	return results
}

// Each is Map for tasks without a value.
func Each[T any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) error) []error {
	results := Map(ctx, items, limit, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	errs := make([]error, len(results))
	for i, r := range results {
		errs[i] = r.Err
	}
	return errs
}
