package ratelimit

import (
	"context"
	"time"
)

// TierOptions configures one token-bucket tier's rate and burst capacity.
type TierOptions struct {
	RatePerSecond float64
	Burst         float64
}

// Options configures the composite Limiter's two token-bucket tiers plus the
// hourly sliding window, per spec.md §4.7's "burst/sustained/hourly" description.
type Options struct {
	Burst     TierOptions
	Sustained TierOptions
	HourlyCap float64
}

// DefaultOptions are conservative single-workspace defaults: generous burst
// for interactive use, a sustained ceiling to bound background indexing
// load, and an hourly cap as a backstop against runaway callers.
func DefaultOptions() Options {
	return Options{
		Burst:     TierOptions{RatePerSecond: 5, Burst: 20},
		Sustained: TierOptions{RatePerSecond: 1, Burst: 60},
		HourlyCap: 2000,
	}
}

// Result is the outcome of an Allow call.
type Result struct {
	Allowed       bool
	RetryAfter    time.Duration
	LimitedByTier string // "burst", "sustained", "hourly", or "" if allowed
}

// Limiter composes burst and sustained token buckets with an hourly sliding
// window. A single key (e.g. a caller ID or "workspace") is checked against
// all three tiers; the request is denied if any tier is exhausted.
type Limiter struct {
	burst     *tokenBucket
	sustained *tokenBucket
	hourly    *slidingWindow
	hourlyCap float64
}

// New constructs a composite Limiter from opts.
func New(opts Options) *Limiter {
	return &Limiter{
		burst:     newTokenBucket(opts.Burst.RatePerSecond, opts.Burst.Burst),
		sustained: newTokenBucket(opts.Sustained.RatePerSecond, opts.Sustained.Burst),
		hourly:    newSlidingWindow(time.Hour),
		hourlyCap: opts.HourlyCap,
	}
}

// Allow checks whether op may proceed for key, consuming its cost from every
// tier it passes. The first exhausted tier determines RetryAfter.
func (l *Limiter) Allow(_ context.Context, op Operation, key string) Result {
	cost := CostOf(op)

	if ok, deficit := l.burst.allow(key, cost); !ok {
		return Result{Allowed: false, LimitedByTier: "burst", RetryAfter: retryAfterFor(deficit, l.burst.rate)}
	}
	if ok, deficit := l.sustained.allow(key, cost); !ok {
		return Result{Allowed: false, LimitedByTier: "sustained", RetryAfter: retryAfterFor(deficit, l.sustained.rate)}
	}
	if !l.hourly.allow(key, cost, l.hourlyCap) {
		return Result{Allowed: false, LimitedByTier: "hourly", RetryAfter: time.Hour}
	}
	return Result{Allowed: true}
}

func retryAfterFor(deficit, rate float64) time.Duration {
	if rate <= 0 {
		return time.Minute
	}
	seconds := deficit / rate
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds * float64(time.Second))
}

// Close releases background eviction goroutines.
func (l *Limiter) Close() error {
	_ = l.burst.Close()
	_ = l.sustained.Close()
	return nil
}
