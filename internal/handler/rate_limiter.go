package handler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is a per-IP token bucket in front of the HTTP routes. It only guards
// against request floods; payout eligibility is decided by the service blocklist.
type Throttle struct {
	mu      sync.Mutex
	buckets map[string]*throttleEntry
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
}

type throttleEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewThrottle returns nil when rps <= 0, which disables throttling.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 {
		return nil
	}
	return &Throttle{
		buckets: make(map[string]*throttleEntry),
		rate:    rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
	}
}

// Allow reports whether key may proceed and, if not, when to retry.
func (t *Throttle) Allow(key string) (bool, time.Duration) {
	if t == nil {
		return true, 0
	}
	now := time.Now()

	t.mu.Lock()
	ent, ok := t.buckets[key]
	if !ok {
		ent = &throttleEntry{lim: rate.NewLimiter(t.rate, t.burst)}
		t.buckets[key] = ent
	}
	ent.lastSeen = now
	t.mu.Unlock()

	r := ent.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup forgets keys idle for longer than idleTTL.
func (t *Throttle) Cleanup() {
	if t == nil {
		return
	}
	cutoff := time.Now().Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, ent := range t.buckets {
		if ent.lastSeen.Before(cutoff) {
			delete(t.buckets, k)
		}
	}
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (t *Throttle) StartJanitor(ctx context.Context, every time.Duration) {
	if t == nil || every <= 0 {
		return
	}
	tick := time.NewTicker(every)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				t.Cleanup()
			}
		}
	}()
}
