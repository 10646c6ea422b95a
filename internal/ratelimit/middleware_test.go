package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/audiocove/audiocove/internal/clientip"
)

// newStack wires clientip resolution in front of the limiter, the same
// order the server uses.
func newStack(s *Store, status int) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	return clientip.Middleware(Middleware(s)(inner))
}

func doRequest(h http.Handler, method, path, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_HeadersOnAllowed(t *testing.T) {
	s := NewStore(Limits{Default: 10}, time.Minute)
	defer s.Stop()
	h := newStack(s, http.StatusOK)

	rr := doRequest(h, "GET", "/feeds/daily/rss", "198.51.100.1")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get(HeaderLimit); got != "10" {
		t.Errorf("%s = %q, want 10", HeaderLimit, got)
	}
	if got := rr.Header().Get(HeaderRemaining); got != "9" {
		t.Errorf("%s = %q, want 9", HeaderRemaining, got)
	}
}

func TestMiddleware_DenialShortCircuits(t *testing.T) {
	s := NewStore(Limits{Default: 3}, time.Minute)
	defer s.Stop()

	handlerRuns := 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRuns++
		w.WriteHeader(http.StatusOK)
	})
	h := clientip.Middleware(Middleware(s)(inner))

	for i := 0; i < 3; i++ {
		if rr := doRequest(h, "GET", "/feeds/daily/rss", "198.51.100.1"); rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rr.Code)
		}
	}

	rr := doRequest(h, "GET", "/feeds/daily/rss", "198.51.100.1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if handlerRuns != 3 {
		t.Errorf("handler ran %d times, want 3 (denied request must not reach it)", handlerRuns)
	}
	if got := rr.Header().Get(HeaderRemaining); got != "0" {
		t.Errorf("%s = %q, want 0", HeaderRemaining, got)
	}
	if rr.Header().Get(HeaderRetry) == "" {
		t.Errorf("%s missing on denial", HeaderRetry)
	}
}

func TestMiddleware_PenaltyWeighting(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantDenied bool
	}{
		{name: "401 exhausts the remaining ten units", status: http.StatusUnauthorized, wantDenied: true},
		{name: "403 exhausts the remaining ten units", status: http.StatusForbidden, wantDenied: true},
		{name: "400 exhausts the remaining ten units", status: http.StatusBadRequest, wantDenied: true},
		{name: "404 costs one unit", status: http.StatusNotFound, wantDenied: false},
		{name: "500 costs one unit", status: http.StatusInternalServerError, wantDenied: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const limit = 20
			s := NewStore(Limits{Default: limit}, time.Minute)
			defer s.Stop()

			okStack := newStack(s, http.StatusOK)
			for i := 0; i < limit-10; i++ {
				if rr := doRequest(okStack, "GET", "/feeds/daily/rss", "198.51.100.1"); rr.Code != http.StatusOK {
					t.Fatalf("setup request %d status = %d", i+1, rr.Code)
				}
			}

			failStack := newStack(s, tt.status)
			if rr := doRequest(failStack, "GET", "/feeds/daily/rss", "198.51.100.1"); rr.Code != tt.status {
				t.Fatalf("probe status = %d, want %d", rr.Code, tt.status)
			}

			rr := doRequest(okStack, "GET", "/feeds/daily/rss", "198.51.100.1")
			denied := rr.Code == http.StatusTooManyRequests
			if denied != tt.wantDenied {
				t.Errorf("after %d response, next request denied = %v, want %v", tt.status, denied, tt.wantDenied)
			}
		})
	}
}

func TestMiddleware_ExemptPaths(t *testing.T) {
	s := NewStore(Limits{Default: 1, AdminRead: 1, AdminWrite: 1, Media: 1}, time.Minute)
	defer s.Stop()
	h := newStack(s, http.StatusOK)

	// Exhaust every class for this client first.
	doRequest(h, "GET", "/feeds/daily/rss", "198.51.100.1")
	doRequest(h, "GET", "/admin/feeds", "198.51.100.1")
	doRequest(h, "POST", "/admin/feeds", "198.51.100.1")
	doRequest(h, "GET", "/media/ep.mp3", "198.51.100.1")

	for _, path := range []string{"/healthz", "/admin/healthz", "/static/app.css"} {
		rr := doRequest(h, "GET", path, "198.51.100.1")
		if rr.Code != http.StatusOK {
			t.Errorf("exempt path %s status = %d, want 200", path, rr.Code)
		}
		if rr.Header().Get(HeaderLimit) != "" || rr.Header().Get(HeaderRemaining) != "" {
			t.Errorf("exempt path %s carries rate-limit headers", path)
		}
	}
}

func TestMiddleware_FallbackBucketSharedByUnresolvable(t *testing.T) {
	s := NewStore(Limits{Default: 2}, time.Minute)
	defer s.Stop()
	h := newStack(s, http.StatusOK)

	// Two unidentifiable requests with different garbage headers land in the
	// same fallback bucket.
	doRequest(h, "GET", "/feeds/daily/rss", "unknown")
	doRequest(h, "GET", "/feeds/daily/rss", "_obf")

	rr := doRequest(h, "GET", "/feeds/daily/rss", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("third unidentifiable request status = %d, want 429 from shared fallback bucket", rr.Code)
	}
}

func TestMiddleware_ClassesIndependentAcrossPaths(t *testing.T) {
	s := NewStore(Limits{Default: 5, AdminRead: 5, AdminWrite: 1, Media: 5}, time.Minute)
	defer s.Stop()
	h := newStack(s, http.StatusOK)

	if rr := doRequest(h, "POST", "/admin/feeds", "198.51.100.1"); rr.Code != http.StatusOK {
		t.Fatalf("admin write status = %d", rr.Code)
	}
	if rr := doRequest(h, "POST", "/admin/feeds", "198.51.100.1"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("admin-write should be exhausted, got %d", rr.Code)
	}

	if rr := doRequest(h, "GET", "/admin/feeds", "198.51.100.1"); rr.Code != http.StatusOK {
		t.Errorf("admin-read affected by admin-write exhaustion, got %d", rr.Code)
	}
	if rr := doRequest(h, "GET", "/media/ep.mp3", "198.51.100.1"); rr.Code != http.StatusOK {
		t.Errorf("media affected by admin-write exhaustion, got %d", rr.Code)
	}
	if rr := doRequest(h, "GET", "/feeds/daily/rss", "198.51.100.1"); rr.Code != http.StatusOK {
		t.Errorf("default affected by admin-write exhaustion, got %d", rr.Code)
	}
}

func TestMiddleware_ImplicitStatusIsPenaltyFree(t *testing.T) {
	const limit = 12
	s := NewStore(Limits{Default: limit}, time.Minute)
	defer s.Stop()

	// Handler writes a body without calling WriteHeader: implicit 200.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	h := clientip.Middleware(Middleware(s)(inner))

	for i := 0; i < limit; i++ {
		if rr := doRequest(h, "GET", "/feeds/daily/rss", "198.51.100.1"); rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want implicit 200", i+1, rr.Code)
		}
	}
	rr := doRequest(h, "GET", "/feeds/daily/rss", "198.51.100.1")
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("request %d status = %d, want 429 after exactly %d base-cost requests", limit+1, rr.Code, limit)
	}
}
