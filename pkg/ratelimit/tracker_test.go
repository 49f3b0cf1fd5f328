package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker(now time.Time) (*Tracker, *time.Time) {
	clock := now
	tr := NewTracker(zerolog.Nop())
	tr.now = func() time.Time { return clock }
	return tr, &clock
}

func TestTracker_NoPauseInitially(t *testing.T) {
	tr, _ := newTestTracker(time.Unix(1000, 0))

	if got := tr.Remaining(); got != 0 {
		t.Errorf("Remaining() = %v, want 0", got)
	}
	if hits := tr.State().Hits; hits != 0 {
		t.Errorf("Hits = %d, want 0", hits)
	}
}

func TestTracker_Pause(t *testing.T) {
	tr, clock := newTestTracker(time.Unix(1000, 0))

	tr.Pause(5 * time.Second)
	if got := tr.Remaining(); got != 5*time.Second {
		t.Errorf("Remaining() = %v, want 5s", got)
	}

	*clock = clock.Add(2 * time.Second)
	if got := tr.Remaining(); got != 3*time.Second {
		t.Errorf("Remaining() after 2s = %v, want 3s", got)
	}

	*clock = clock.Add(10 * time.Second)
	if got := tr.Remaining(); got != 0 {
		t.Errorf("Remaining() after expiry = %v, want 0", got)
	}
}

func TestTracker_PauseNeverShrinks(t *testing.T) {
	tr, _ := newTestTracker(time.Unix(1000, 0))

	tr.Pause(10 * time.Second)
	tr.Pause(1 * time.Second)

	if got := tr.Remaining(); got != 10*time.Second {
		t.Errorf("Remaining() = %v, want 10s", got)
	}
	state := tr.State()
	if state.Hits != 2 {
		t.Errorf("Hits = %d, want 2", state.Hits)
	}
	if state.LastRetryAfter != 1*time.Second {
		t.Errorf("LastRetryAfter = %v, want 1s", state.LastRetryAfter)
	}
}

func TestTracker_ConcurrentPause(t *testing.T) {
	tr := NewTracker(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Pause(time.Second)
			_ = tr.Remaining()
		}()
	}
	wg.Wait()

	if hits := tr.State().Hits; hits != 50 {
		t.Errorf("Hits = %d, want 50", hits)
	}
}

func TestRateLimitState_TimeUntilResume(t *testing.T) {
	now := time.Unix(1000, 0)
	tests := []struct {
		name     string
		until    time.Time
		expected time.Duration
		paused   bool
	}{
		{name: "future", until: now.Add(3 * time.Second), expected: 3 * time.Second, paused: true},
		{name: "past", until: now.Add(-3 * time.Second), expected: 0, paused: false},
		{name: "zero", until: time.Time{}, expected: 0, paused: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := RateLimitState{PausedUntil: tt.until}
			if got := s.TimeUntilResume(now); got != tt.expected {
				t.Errorf("TimeUntilResume() = %v, want %v", got, tt.expected)
			}
			if got := s.IsPaused(now); got != tt.paused {
				t.Errorf("IsPaused() = %v, want %v", got, tt.paused)
			}
		})
	}
}
