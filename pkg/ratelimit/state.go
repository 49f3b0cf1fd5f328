// Package ratelimit tracks 429 responses from the Notion API and gates requests.
// When any worker is told to back off, every worker sharing the tracker waits out
// the same pause before its next attempt.
package ratelimit

import (
	"time"
)

// RateLimitState is the current pause state shared by all workers of a run.
type RateLimitState struct {
	// PausedUntil is the moment requests may resume.
	PausedUntil time.Time

	// LastRetryAfter is the last pause requested, including any margin.
	LastRetryAfter time.Duration

	// Hits counts rate-limit responses observed during the run.
	Hits int

	// LastUpdate is when this state last changed.
	LastUpdate time.Time
}

// IsPaused returns true if requests should currently wait.
func (s *RateLimitState) IsPaused(now time.Time) bool {
	return now.Before(s.PausedUntil)
}

// TimeUntilResume returns the remaining pause, or 0 if none.
func (s *RateLimitState) TimeUntilResume(now time.Time) time.Duration {
	d := s.PausedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
