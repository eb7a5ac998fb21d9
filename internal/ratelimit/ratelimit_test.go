package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowsWithinBurst(t *testing.T) {
	l := New(Options{Burst: TierOptions{RatePerSecond: 1, Burst: 5}, Sustained: TierOptions{RatePerSecond: 10, Burst: 100}, HourlyCap: 1000})
	defer l.Close()

	for i := 0; i < 5; i++ {
		res := l.Allow(context.Background(), OperationQuery, "k")
		if !res.Allowed {
			t.Fatalf("expected request %d allowed within burst", i)
		}
	}
	res := l.Allow(context.Background(), OperationQuery, "k")
	if res.Allowed {
		t.Fatal("expected burst exhausted")
	}
	if res.LimitedByTier != "burst" {
		t.Fatalf("expected burst tier to deny, got %s", res.LimitedByTier)
	}
}

func TestLimiter_HigherCostOperationExhaustsFaster(t *testing.T) {
	l := New(Options{Burst: TierOptions{RatePerSecond: 1, Burst: 10}, Sustained: TierOptions{RatePerSecond: 10, Burst: 100}, HourlyCap: 1000})
	defer l.Close()

	res := l.Allow(context.Background(), OperationBootstrap, "k")
	if !res.Allowed {
		t.Fatal("expected first bootstrap (cost 10) allowed")
	}
	res = l.Allow(context.Background(), OperationQuery, "k")
	if res.Allowed {
		t.Fatal("expected bucket exhausted after a cost-10 operation against burst-10")
	}
}

func TestLimiter_HourlyCapDenies(t *testing.T) {
	l := New(Options{Burst: TierOptions{RatePerSecond: 100, Burst: 1000}, Sustained: TierOptions{RatePerSecond: 100, Burst: 1000}, HourlyCap: 2})
	defer l.Close()

	if !l.Allow(context.Background(), OperationQuery, "k").Allowed {
		t.Fatal("expected first query allowed")
	}
	if !l.Allow(context.Background(), OperationQuery, "k").Allowed {
		t.Fatal("expected second query allowed")
	}
	res := l.Allow(context.Background(), OperationQuery, "k")
	if res.Allowed || res.LimitedByTier != "hourly" {
		t.Fatalf("expected third query denied by hourly cap, got %+v", res)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(Options{Burst: TierOptions{RatePerSecond: 1, Burst: 1}, Sustained: TierOptions{RatePerSecond: 10, Burst: 100}, HourlyCap: 1000})
	defer l.Close()

	if !l.Allow(context.Background(), OperationQuery, "a").Allowed {
		t.Fatal("expected key a allowed")
	}
	if !l.Allow(context.Background(), OperationQuery, "b").Allowed {
		t.Fatal("expected key b allowed independently of key a")
	}
}

func TestCircuitBreaker_TripsAfterFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 3, FailureWindowMs: 60_000, OpenDurationMs: 50, SuccessThreshold: 1})
	for i := 0; i < 3; i++ {
		cb.RecordFailure(false)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected circuit open after threshold failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("expected open circuit to deny calls")
	}
}

func TestCircuitBreaker_HalfOpenAdmitsOneThenCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 1, FailureWindowMs: 60_000, OpenDurationMs: 10, SuccessThreshold: 1})
	cb.RecordFailure(false)
	if cb.State() != CircuitOpen {
		t.Fatal("expected open after one failure at threshold 1")
	}
	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expected half-open to admit first probe")
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open state, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("expected half-open to deny a second concurrent probe")
	}
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after success threshold met, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 1, FailureWindowMs: 60_000, OpenDurationMs: 10, SuccessThreshold: 1})
	cb.RecordFailure(false)
	time.Sleep(20 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("expected half-open probe admitted")
	}
	cb.RecordFailure(false)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected re-open after half-open failure, got %s", cb.State())
	}
}

func TestCircuitBreaker_RateLimitFailuresShrinkFactor(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitOptions())
	for i := 0; i < 3; i++ {
		cb.RecordFailure(true)
	}
	if cb.ShrinkFactor() >= 1.0 {
		t.Fatal("expected shrink factor reduced after rate-limit-dominated failures")
	}
}

func TestCostOf_KnownAndDefaultOperations(t *testing.T) {
	if CostOf(OperationBootstrap) != 10 {
		t.Fatal("expected bootstrap cost 10")
	}
	if CostOf(OperationAudit) != 5 {
		t.Fatal("expected audit cost 5")
	}
	if CostOf(Operation("unknown")) != 1 {
		t.Fatal("expected default cost 1 for unlisted operation")
	}
}
