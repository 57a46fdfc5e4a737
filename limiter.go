package bliss

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits login attempts per IP address.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

// NewLoginLimiter creates a LoginLimiter that allows max failed attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

// Check returns true if the IP has not exceeded the rate limit.
// It does not record an attempt; call Record separately on failure.
func (l *LoginLimiter) Check(ip string) bool {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.attempts[ip], cutoff)
	if len(kept) == 0 {
		delete(l.attempts, ip)
	} else {
		l.attempts[ip] = kept
	}
	return len(kept) < l.max
}

// Record registers a failed login attempt for the given IP.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], l.now())
	l.mu.Unlock()
}

// Reset forgets the IP's failures after a successful login.
func (l *LoginLimiter) Reset(ip string) {
	l.mu.Lock()
	delete(l.attempts, ip)
	l.mu.Unlock()
}

// Sweep drops IPs whose attempts have all expired.
func (l *LoginLimiter) Sweep() {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, hits := range l.attempts {
		if kept := prune(hits, cutoff); len(kept) == 0 {
			delete(l.attempts, ip)
		} else {
			l.attempts[ip] = kept
		}
	}
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// WriteLimiter throttles anonymous writes (comments, likes, signups) with a
// token bucket per IP.
type WriteLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	every    time.Duration
	burst    int
	idle     time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewWriteLimiter allows one write per every with the given burst.
func NewWriteLimiter(every time.Duration, burst int) *WriteLimiter {
	return &WriteLimiter{
		limiters: make(map[string]*visitor),
		every:    every,
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Allow reports whether ip may perform a write now.
func (w *WriteLimiter) Allow(ip string) bool {
	w.mu.Lock()
	v, ok := w.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(w.every), w.burst)}
		w.limiters[ip] = v
	}
	v.lastSeen = time.Now()
	w.mu.Unlock()
	return v.limiter.Allow()
}

// Sweep drops visitors idle for longer than ten minutes.
func (w *WriteLimiter) Sweep() {
	cutoff := time.Now().Add(-w.idle)
	w.mu.Lock()
	defer w.mu.Unlock()
	for ip, v := range w.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(w.limiters, ip)
		}
	}
}
