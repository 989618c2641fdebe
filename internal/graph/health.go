package graph

import (
	"sync"
	"time"
)

// SessionHealth tracks process-wide fetch health for one import session:
// the time of the last successful fetch anywhere in the session, and the
// number of back-to-back page failures. It is constructed per session so
// tests can use isolated instances, and is safe for concurrent use.
type SessionHealth struct {
	mu                  sync.Mutex
	lastSuccess         time.Time
	consecutiveFailures int
}

// NewSessionHealth creates a SessionHealth with the stall clock started now.
func NewSessionHealth() *SessionHealth {
	return &SessionHealth{lastSuccess: time.Now()}
}

// RecordSuccess resets the stall clock.
func (h *SessionHealth) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSuccess = time.Now()
}

// RecordPageFailure increments the consecutive page failure counter and
// returns the new count.
func (h *SessionHealth) RecordPageFailure() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	return h.consecutiveFailures
}

// RecordPageSuccess resets the consecutive page failure counter.
func (h *SessionHealth) RecordPageSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures = 0
}

// ConsecutiveFailures returns the current back-to-back page failure count.
func (h *SessionHealth) ConsecutiveFailures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveFailures
}

// Stalled reports whether no fetch has succeeded within the given duration.
func (h *SessionHealth) Stalled(timeout time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Since(h.lastSuccess) > timeout
}

// SinceLastSuccess returns the elapsed time since the last successful fetch.
func (h *SessionHealth) SinceLastSuccess() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Since(h.lastSuccess)
}
