package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func newTestStore(limits Limits, window time.Duration) *Store {
	s := NewStore(limits, window)
	return s
}

func TestCheckAndReserve_Boundary(t *testing.T) {
	s := newTestStore(Limits{Default: 5, AdminRead: 5, AdminWrite: 5, Media: 5}, time.Minute)
	defer s.Stop()

	for i := 0; i < 5; i++ {
		dec := s.CheckAndReserve(ClassDefault, "198.51.100.1")
		if !dec.Allowed {
			t.Fatalf("request %d unexpectedly denied", i+1)
		}
		if want := 5 - (i + 1); dec.Remaining != want {
			t.Errorf("request %d remaining = %d, want %d", i+1, dec.Remaining, want)
		}
	}

	dec := s.CheckAndReserve(ClassDefault, "198.51.100.1")
	if dec.Allowed {
		t.Fatal("6th request should be denied")
	}
	if dec.Remaining != 0 {
		t.Errorf("denied remaining = %d, want 0", dec.Remaining)
	}
	if dec.RetryAfter <= 0 || dec.RetryAfter > time.Minute {
		t.Errorf("denied RetryAfter = %v, want within (0, window]", dec.RetryAfter)
	}
}

func TestCheckAndReserve_IndependentBuckets(t *testing.T) {
	s := newTestStore(Limits{Default: 2, AdminRead: 2, AdminWrite: 2, Media: 2}, time.Minute)
	defer s.Stop()

	const ip = "198.51.100.1"
	for i := 0; i < 2; i++ {
		if dec := s.CheckAndReserve(ClassAdminWrite, ip); !dec.Allowed {
			t.Fatalf("admin-write request %d unexpectedly denied", i+1)
		}
	}
	if dec := s.CheckAndReserve(ClassAdminWrite, ip); dec.Allowed {
		t.Fatal("admin-write bucket should be exhausted")
	}

	// Exhausting admin-write must not touch the same client's other classes.
	if dec := s.CheckAndReserve(ClassAdminRead, ip); !dec.Allowed {
		t.Error("admin-read bucket was affected by admin-write exhaustion")
	}
	if dec := s.CheckAndReserve(ClassMedia, ip); !dec.Allowed {
		t.Error("media bucket was affected by admin-write exhaustion")
	}

	// Nor another client's bucket in the same class.
	if dec := s.CheckAndReserve(ClassAdminWrite, "203.0.113.7"); !dec.Allowed {
		t.Error("a different client was affected by this client's exhaustion")
	}
}

func TestApplyPenalty_Weighting(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantDenied bool
	}{
		{name: "400 consumes ten units", status: 400, wantDenied: true},
		{name: "401 consumes ten units", status: 401, wantDenied: true},
		{name: "403 consumes ten units", status: 403, wantDenied: true},
		{name: "404 consumes one unit", status: 404, wantDenied: false},
		{name: "405 consumes one unit", status: 405, wantDenied: false},
		{name: "429 consumes one unit", status: 429, wantDenied: false},
		{name: "500 consumes one unit", status: 500, wantDenied: false},
		{name: "200 consumes one unit", status: 200, wantDenied: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const limit = 20
			s := newTestStore(Limits{Default: limit}, time.Minute)
			defer s.Stop()

			// Burn limit-10 units, then issue one request with the status
			// under test. A flagged status costs 10 total and exhausts the
			// bucket; anything else costs 1 and leaves room.
			for i := 0; i < limit-10; i++ {
				if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); !dec.Allowed {
					t.Fatalf("setup request %d denied", i+1)
				}
			}
			if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); !dec.Allowed {
				t.Fatal("probe request denied")
			}
			s.ApplyPenalty(ClassDefault, "198.51.100.1", tt.status)

			dec := s.CheckAndReserve(ClassDefault, "198.51.100.1")
			if dec.Allowed == tt.wantDenied {
				t.Errorf("after status %d, next request allowed = %v, want %v", tt.status, dec.Allowed, !tt.wantDenied)
			}
		})
	}
}

func TestIsPenaltyStatus(t *testing.T) {
	flagged := map[int]bool{400: true, 401: true, 403: true}
	for _, status := range []int{200, 204, 301, 302, 400, 401, 403, 404, 405, 418, 429, 500, 502, 503} {
		if got := IsPenaltyStatus(status); got != flagged[status] {
			t.Errorf("IsPenaltyStatus(%d) = %v, want %v", status, got, flagged[status])
		}
	}
}

func TestWindowReset(t *testing.T) {
	s := newTestStore(Limits{Default: 1}, time.Minute)
	defer s.Stop()

	current := time.Now().UTC()
	s.now = func() time.Time { return current }

	if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); !dec.Allowed {
		t.Fatal("first request denied")
	}
	if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); dec.Allowed {
		t.Fatal("second request in same window should be denied")
	}

	// Crossing the window boundary resets the bucket.
	current = current.Add(time.Minute + time.Second)
	if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); !dec.Allowed {
		t.Error("request after window reset should be allowed")
	}
}

func TestNoResetMidWindow(t *testing.T) {
	s := newTestStore(Limits{Default: 3}, time.Minute)
	defer s.Stop()

	current := time.Now().UTC()
	s.now = func() time.Time { return current }

	s.CheckAndReserve(ClassDefault, "198.51.100.1")
	s.CheckAndReserve(ClassDefault, "198.51.100.1")

	// Mid-window time passage must not reset the count.
	current = current.Add(30 * time.Second)
	dec := s.CheckAndReserve(ClassDefault, "198.51.100.1")
	if !dec.Allowed || dec.Remaining != 0 {
		t.Errorf("mid-window decision = %+v, want allowed with remaining 0", dec)
	}
}

func TestEvictExpired(t *testing.T) {
	s := newTestStore(DefaultLimits(), time.Minute)
	defer s.Stop()

	current := time.Now().UTC()
	s.now = func() time.Time { return current }

	s.CheckAndReserve(ClassDefault, "198.51.100.1")
	s.CheckAndReserve(ClassMedia, "203.0.113.7")

	s.mu.Lock()
	if len(s.buckets) != 2 {
		s.mu.Unlock()
		t.Fatalf("expected 2 buckets, got %d", len(s.buckets))
	}
	s.mu.Unlock()

	// Still live: nothing evicted.
	s.evictExpired()
	s.mu.Lock()
	if len(s.buckets) != 2 {
		s.mu.Unlock()
		t.Fatalf("live buckets were evicted")
	}
	s.mu.Unlock()

	current = current.Add(2 * time.Minute)
	s.evictExpired()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buckets) != 0 {
		t.Errorf("expected expired buckets to be evicted, %d remain", len(s.buckets))
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(Limits{Default: 1}, time.Minute)
	defer s.Stop()

	if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); !dec.Allowed {
		t.Fatal("first request denied")
	}
	if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); dec.Allowed {
		t.Fatal("bucket should be exhausted")
	}

	s.Reset()

	if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); !dec.Allowed {
		t.Error("request after Reset should be allowed")
	}
}

func TestConcurrentReservations(t *testing.T) {
	const limit = 50
	s := newTestStore(Limits{Default: limit}, time.Minute)
	defer s.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	// Twice the limit racing on one key: exactly limit admissions.
	for i := 0; i < 2*limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if dec := s.CheckAndReserve(ClassDefault, "198.51.100.1"); dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != limit {
		t.Errorf("concurrent admissions = %d, want exactly %d", allowed, limit)
	}
}
