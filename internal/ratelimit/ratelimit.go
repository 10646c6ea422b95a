// Package ratelimit enforces per-route-class, per-client request quotas
// using fixed windows with asymmetric penalties for abusive traffic.
//
// Each (route class, client IP) key owns one bucket. Admission reserves a
// base cost of 1 under the store lock, so concurrent requests from the same
// key serialize against the same counter instead of racing a check with a
// later increment. After the response is known, requests that drew a status
// in the flagged-failure set are charged an extra penalty, making credential
// guessing and malformed-request probing ten times as expensive as ordinary
// traffic.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// baseCost is reserved for every admitted request.
	baseCost = 1

	// penaltyCost is the extra charge for a response in the flagged-failure
	// set, bringing the total for such a request to 10.
	penaltyCost = 9

	// DefaultWindow is the accounting window when none is configured.
	DefaultWindow = time.Minute
)

// Limits carries the configured quota per route class, in requests per window.
type Limits struct {
	Default    int
	AdminRead  int
	AdminWrite int
	Media      int
}

// DefaultLimits returns the limits used when the environment does not
// override them.
func DefaultLimits() Limits {
	return Limits{
		Default:    120,
		AdminRead:  300,
		AdminWrite: 60,
		Media:      600,
	}
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until the bucket's window resets. Only
	// meaningful on a denied decision.
	RetryAfter time.Duration
}

type bucketKey struct {
	class Class
	ip    string
}

// bucket tracks usage for one key within the current window. Count never
// decreases mid-window; it only resets to zero when the window boundary is
// crossed.
type bucket struct {
	count       int
	windowStart time.Time
}

// Store owns all rate-limit buckets. It is constructed explicitly and passed
// to the middleware rather than living as package state, so tests can build
// isolated stores and reset them between cases.
type Store struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket

	limits Limits
	window time.Duration

	// now is swappable in tests to cross window boundaries without sleeping.
	now func() time.Time

	stopSweep chan struct{}
	stopOnce  sync.Once
}

// NewStore creates a bucket store and starts a background sweep that evicts
// buckets whose window has elapsed, keeping memory bounded under a churn of
// distinct client keys.
func NewStore(limits Limits, window time.Duration) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	s := &Store{
		buckets:   make(map[bucketKey]*bucket),
		limits:    limits,
		window:    window,
		now:       func() time.Time { return time.Now().UTC() },
		stopSweep: make(chan struct{}),
	}
	go s.sweep()
	return s
}

// CheckAndReserve admits or denies a request for the given key. On
// admission the base cost is charged immediately, within the same critical
// section as the check. Denial happens when the pre-request count already
// meets the class limit.
func (s *Store) CheckAndReserve(class Class, clientIP string) Decision {
	limit := s.limitFor(class)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucketLocked(class, clientIP, now)
	if b.count >= limit {
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: b.windowStart.Add(s.window).Sub(now),
		}
	}
	b.count += baseCost
	remaining := limit - b.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: limit, Remaining: remaining}
}

// ApplyPenalty charges the post-response cost for a request whose final
// status landed in the flagged-failure set. Called once per request after
// the downstream handler resolves; the handler may have taken arbitrarily
// long, so the bucket is re-fetched (and re-windowed if needed) rather than
// held across the request.
func (s *Store) ApplyPenalty(class Class, clientIP string, status int) {
	if !IsPenaltyStatus(status) {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucketLocked(class, clientIP, now)
	b.count += penaltyCost
}

// IsPenaltyStatus reports whether a response status draws the extra charge.
// 400/401/403 model suspected abuse. 404 and 405 are legitimate misses, 429
// already carries its own penalty, and 5xx is the server's fault, so none of
// those are flagged.
func IsPenaltyStatus(status int) bool {
	switch status {
	case 400, 401, 403:
		return true
	}
	return false
}

// Reset discards all buckets. Exposed for tests and teardown.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[bucketKey]*bucket)
}

// Stop terminates the background sweep goroutine.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopSweep)
	})
}

// bucketLocked returns the live bucket for a key, creating it lazily or
// rolling it into a fresh window when the old one has elapsed. Callers must
// hold s.mu.
func (s *Store) bucketLocked(class Class, clientIP string, now time.Time) *bucket {
	k := bucketKey{class: class, ip: clientIP}
	b, ok := s.buckets[k]
	if !ok || now.Sub(b.windowStart) >= s.window {
		b = &bucket{windowStart: now}
		s.buckets[k] = b
	}
	return b
}

func (s *Store) limitFor(class Class) int {
	switch class {
	case ClassAdminRead:
		return s.limits.AdminRead
	case ClassAdminWrite:
		return s.limits.AdminWrite
	case ClassMedia:
		return s.limits.Media
	default:
		return s.limits.Default
	}
}

// sweep periodically evicts expired buckets.
func (s *Store) sweep() {
	interval := s.window
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stopSweep:
			return
		}
	}
}

// evictExpired removes buckets whose window has fully elapsed. A later
// request for the same key lazily recreates its bucket in a fresh window,
// so eviction is invisible to admission semantics.
func (s *Store) evictExpired() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range s.buckets {
		if now.Sub(b.windowStart) >= s.window {
			delete(s.buckets, k)
		}
	}
}
