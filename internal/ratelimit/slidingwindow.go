package ratelimit

import (
	"sync"
	"time"
)

// slidingWindow counts weighted events per key over a trailing window,
// keeping each event with its own timestamp and pruning expired ones when
// the key is next touched, so old events age out without a per-key
// background sweep. Used alongside the token-bucket tiers for the hourly limit, where a
// pure refill-rate bucket would let a key "catch up" across an idle period
// in a way a true rolling hourly count should not.
type slidingWindow struct {
	window time.Duration

	mu     sync.Mutex
	events map[string][]windowEvent
}

type windowEvent struct {
	at   time.Time
	cost float64
}

func newSlidingWindow(window time.Duration) *slidingWindow {
	return &slidingWindow{window: window, events: make(map[string][]windowEvent)}
}

// allow reports whether adding cost to key's rolling total would still stay
// within limit, and if so, records the event.
func (w *slidingWindow) allow(key string, cost, limit float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-w.window)
	events := w.events[key]
	kept := events[:0]
	var total float64
	for _, e := range events {
		if e.at.After(cutoff) {
			kept = append(kept, e)
			total += e.cost
		}
	}

	if total+cost > limit {
		w.events[key] = kept
		return false
	}
	kept = append(kept, windowEvent{at: now, cost: cost})
	w.events[key] = kept
	return true
}
