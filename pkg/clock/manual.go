package clock

import (
	"sync"
	"time"
)

// Manual is a Clock whose time only moves when the test says so.
//
// It is safe for concurrent use, but tests should avoid advancing it from
// multiple goroutines if they care about a reproducible order of observations.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a Manual clock starting at the given instant.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d. Negative durations are ignored so the
// clock stays monotonic.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set jumps the clock to an absolute instant. Unlike Advance it may move time
// backward; use it only to establish an initial state.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
