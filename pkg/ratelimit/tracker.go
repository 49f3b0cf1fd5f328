package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	notionRateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notion_rate_limit_hits_total",
		Help: "Total number of 429 responses observed",
	})

	notionRateLimitPauseSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notion_rate_limit_pause_seconds",
		Help:    "Pause durations requested by rate limit responses",
		Buckets: []float64{1, 2, 5, 10, 30, 60},
	})
)

// Tracker holds the pause state for one run.
type Tracker struct {
	mu     sync.Mutex
	state  RateLimitState
	now    func() time.Time
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		now:    time.Now,
		logger: logger,
	}
}

// Pause records a rate-limit response asking for a delay of d.
// The pause only ever extends; a shorter request never cuts an existing pause.
func (t *Tracker) Pause(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	until := now.Add(d)
	if until.After(t.state.PausedUntil) {
		t.state.PausedUntil = until
	}
	t.state.LastRetryAfter = d
	t.state.Hits++
	t.state.LastUpdate = now

	notionRateLimitHitsTotal.Inc()
	notionRateLimitPauseSeconds.Observe(d.Seconds())

	t.logger.Warn().
		Dur("pause", d).
		Time("paused_until", t.state.PausedUntil).
		Int("hits", t.state.Hits).
		Msg("Rate limited - pausing requests")
}

// Remaining returns how long a request must still wait.
func (t *Tracker) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.TimeUntilResume(t.now())
}

// State returns a snapshot of the current state.
func (t *Tracker) State() RateLimitState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
