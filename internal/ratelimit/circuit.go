package ratelimit

import (
	"sync"
	"time"
)

// CircuitState is one of the three states a per-provider breaker cycles
// through, per spec.md §4.7.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitOptions configures one breaker's thresholds.
type CircuitOptions struct {
	FailureThreshold int
	FailureWindowMs  int
	OpenDurationMs   int
	SuccessThreshold int
}

// DefaultCircuitOptions mirror the teacher's conservative defaults for a
// single upstream provider dependency.
func DefaultCircuitOptions() CircuitOptions {
	return CircuitOptions{
		FailureThreshold: 5,
		FailureWindowMs:  30_000,
		OpenDurationMs:   10_000,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker tracks one provider's health and blocks calls while open.
// Thresholds adapt to the recent failure mix: rate-limit failures shrink the
// effective token rate of the caller's limiter (via ShrinkFactor), while
// general failures lower the failure threshold, tripping open sooner the
// next time around.
type CircuitBreaker struct {
	opts CircuitOptions

	mu               sync.Mutex
	state            CircuitState
	failures         []time.Time
	consecutiveOK    int
	openedAt         time.Time
	halfOpenInFlight bool

	rateLimitFailures int
	generalFailures   int
}

// NewCircuitBreaker constructs a breaker starting in the closed state.
func NewCircuitBreaker(opts CircuitOptions) *CircuitBreaker {
	return &CircuitBreaker{opts: opts, state: CircuitClosed}
}

// Allow reports whether a call may proceed, transitioning open→half-open
// once OpenDurationMs has elapsed.
func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(c.openedAt) >= time.Duration(c.opts.OpenDurationMs)*time.Millisecond {
			c.state = CircuitHalfOpen
			c.halfOpenInFlight = false
			return c.admitHalfOpen()
		}
		return false
	case CircuitHalfOpen:
		return c.admitHalfOpen()
	default:
		return true
	}
}

// admitHalfOpen must be called with c.mu held; admits exactly one in-flight
// probe at a time.
func (c *CircuitBreaker) admitHalfOpen() bool {
	if c.halfOpenInFlight {
		return false
	}
	c.halfOpenInFlight = true
	return true
}

// RecordSuccess reports a successful call, closing the breaker after
// SuccessThreshold consecutive successes in the half-open state.
func (c *CircuitBreaker) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case CircuitHalfOpen:
		c.consecutiveOK++
		c.halfOpenInFlight = false
		if c.consecutiveOK >= c.opts.SuccessThreshold {
			c.state = CircuitClosed
			c.failures = nil
			c.consecutiveOK = 0
		}
	case CircuitClosed:
		c.pruneFailures(time.Now())
	}
}

// RecordFailure reports a failed call. isRateLimit distinguishes a
// rate-limit failure (shrinks future token throughput) from a general
// failure (lowers the threshold, tripping open sooner).
func (c *CircuitBreaker) RecordFailure(isRateLimit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if isRateLimit {
		c.rateLimitFailures++
	} else {
		c.generalFailures++
	}

	if c.state == CircuitHalfOpen {
		c.halfOpenInFlight = false
		c.trip(now)
		return
	}

	c.failures = append(c.failures, now)
	c.pruneFailures(now)

	threshold := c.effectiveThreshold()
	if len(c.failures) >= threshold {
		c.trip(now)
	}
}

// effectiveThreshold lowers FailureThreshold when general (non-rate-limit)
// failures dominate the breaker's failure mix, per spec.md's
// adaptive-threshold note. The mix counters are lifetime totals; they are
// never reset or windowed.
// Must be called with c.mu held.
func (c *CircuitBreaker) effectiveThreshold() int {
	total := c.rateLimitFailures + c.generalFailures
	if total == 0 {
		return c.opts.FailureThreshold
	}
	generalRatio := float64(c.generalFailures) / float64(total)
	if generalRatio > 0.7 && c.opts.FailureThreshold > 1 {
		return c.opts.FailureThreshold - 1
	}
	return c.opts.FailureThreshold
}

// ShrinkFactor returns a [0,1] multiplier a caller should apply to its
// token-bucket rate when rate-limit failures dominate the lifetime failure
// mix.
func (c *CircuitBreaker) ShrinkFactor() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.rateLimitFailures + c.generalFailures
	if total == 0 {
		return 1.0
	}
	rlRatio := float64(c.rateLimitFailures) / float64(total)
	if rlRatio > 0.5 {
		return 0.5
	}
	return 1.0
}

// trip must be called with c.mu held.
func (c *CircuitBreaker) trip(now time.Time) {
	c.state = CircuitOpen
	c.openedAt = now
	c.consecutiveOK = 0
}

// pruneFailures drops failure timestamps outside FailureWindowMs. Must be
// called with c.mu held.
func (c *CircuitBreaker) pruneFailures(now time.Time) {
	cutoff := now.Add(-time.Duration(c.opts.FailureWindowMs) * time.Millisecond)
	kept := c.failures[:0]
	for _, f := range c.failures {
		if f.After(cutoff) {
			kept = append(kept, f)
		}
	}
	c.failures = kept
}

// State returns the breaker's current state.
func (c *CircuitBreaker) State() CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
