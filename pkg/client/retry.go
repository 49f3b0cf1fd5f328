package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/notion-graph/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	notionRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	notionRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notion_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	notionRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic. Delays are fixed, not
// exponential; rate-limit delays come from the server.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// Backoff is the fixed delay after malformed payloads, network and status errors.
	Backoff time.Duration

	// TimeoutBackoff is the fixed delay after a timeout.
	TimeoutBackoff time.Duration

	// RateLimitMargin is added to the server's Retry-After.
	RateLimitMargin time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     4,
		Backoff:         5 * time.Second,
		TimeoutBackoff:  10 * time.Second,
		RateLimitMargin: 2 * time.Second,
	}
}

// backoffFor returns the fixed delay for a transient class.
func (c RetryConfig) backoffFor(class ErrorClass) time.Duration {
	if class == ErrorClassTimeout {
		return c.TimeoutBackoff
	}
	return c.Backoff
}

// Executor wraps a Transport with the bounded retry policy.
type Executor struct {
	transport Transport
	config    RetryConfig
	limiter   *ratelimit.Tracker
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a retry executor. A nil limiter gets a private tracker.
func NewExecutor(transport Transport, cfg RetryConfig, limiter *ratelimit.Tracker) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	logger := log.With().Str("component", "notion-retry").Logger()
	if limiter == nil {
		limiter = ratelimit.NewTracker(logger)
	}
	return &Executor{
		transport: transport,
		config:    cfg,
		limiter:   limiter,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Limiter returns the shared rate limit tracker.
func (e *Executor) Limiter() *ratelimit.Tracker {
	return e.limiter
}

// SetSleepFunc replaces the wait used for backoff and pauses (for testing).
func (e *Executor) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	e.sleep = fn
}

// Execute runs req until it succeeds, fails terminally, or the attempt budget is spent.
// NotFound and Forbidden propagate on first sight; transient failures surface only as
// ErrRetriesExhausted.
func (e *Executor) Execute(ctx context.Context, req Request) ([]byte, error) {
	var lastErr error
	var lastClass ErrorClass

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		if wait := e.limiter.Remaining(); wait > 0 {
			if err := e.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
			}
		}

		out := e.transport.Do(ctx, req)
		if out.Class == ErrorClassNone {
			if attempt > 1 {
				e.logger.Info().
					Str("endpoint", req.Endpoint).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return out.Body, nil
		}

		lastErr = out.Err
		lastClass = out.Class

		if !shouldRetry(out.Class) {
			return nil, out.Err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}

		// If this was the last attempt, don't wait
		if attempt >= e.config.MaxAttempts {
			break
		}

		notionRetriesTotal.WithLabelValues(string(out.Class)).Inc()

		if out.Class == ErrorClassRateLimit {
			pause := out.RetryAfter + e.config.RateLimitMargin
			notionRetryBackoffSeconds.WithLabelValues(string(out.Class)).Observe(pause.Seconds())
			// The pause is applied at the top of the next attempt, for every worker
			e.limiter.Pause(pause)
			continue
		}

		backoff := e.config.backoffFor(out.Class)
		notionRetryBackoffSeconds.WithLabelValues(string(out.Class)).Observe(backoff.Seconds())

		e.logger.Debug().
			Str("endpoint", req.Endpoint).
			Str("error_class", string(out.Class)).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		if err := e.sleep(ctx, backoff); err != nil {
			e.logger.Warn().
				Str("error_class", string(out.Class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
	}

	notionRetryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	e.logger.Warn().
		Str("endpoint", req.Endpoint).
		Str("error_class", string(lastClass)).
		Int("max_attempts", e.config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, e.config.MaxAttempts, lastErr)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
