package bliss

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLoginLimiter(max int, window time.Duration) (*LoginLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLoginLimiter(max, window)
	l.now = clock.Now
	return l, clock
}

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	limiter, _ := newTestLoginLimiter(2, time.Minute)
	ip := "203.0.113.10"

	for i := 0; i < 2; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
		limiter.Record(ip)
	}
	if limiter.Check(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestLoginLimiterResetsAfterWindow(t *testing.T) {
	limiter, clock := newTestLoginLimiter(1, time.Minute)
	ip := "203.0.113.20"

	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected attempt to be blocked")
	}

	clock.Advance(61 * time.Second)
	if !limiter.Check(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	limiter, _ := newTestLoginLimiter(1, time.Minute)

	limiter.Record("203.0.113.30")
	if !limiter.Check("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Check("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestLoginLimiterResetAndSweep(t *testing.T) {
	limiter, clock := newTestLoginLimiter(1, time.Minute)

	limiter.Record("203.0.113.40")
	limiter.Reset("203.0.113.40")
	if !limiter.Check("203.0.113.40") {
		t.Fatalf("expected reset ip to be allowed")
	}

	limiter.Record("203.0.113.41")
	clock.Advance(2 * time.Minute)
	limiter.Sweep()
	if len(limiter.attempts) != 0 {
		t.Fatalf("expected sweep to drop expired ips, got %d", len(limiter.attempts))
	}
}

func TestWriteLimiterBurst(t *testing.T) {
	w := NewWriteLimiter(time.Hour, 2)

	if !w.Allow("198.51.100.1") || !w.Allow("198.51.100.1") {
		t.Fatalf("expected burst of two to be allowed")
	}
	if w.Allow("198.51.100.1") {
		t.Fatalf("expected third write to be throttled")
	}
	if !w.Allow("198.51.100.2") {
		t.Fatalf("expected other ip to be allowed")
	}
}
