package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/audiocove/audiocove/internal/clientip"
	"github.com/audiocove/audiocove/internal/logger"
	"github.com/audiocove/audiocove/internal/metrics"
)

// Standard rate-limit response headers.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderRetry     = "Retry-After"
)

// FallbackClientIP keys the bucket for requests whose client address could
// not be resolved. Unidentifiable traffic is still limited; it all shares
// this one loopback bucket.
const FallbackClientIP = "127.0.0.1"

// Middleware applies per-route-class rate limiting. It must run after
// clientip.Middleware so the resolved address is in context.
//
// Exempt paths pass straight through with no bucket touched and no headers
// added. For everything else: admission is checked (reserving the base
// cost), rate-limit headers are set, a denied request short-circuits with
// 429 before the downstream handler runs, and an admitted request is
// re-charged after its response status is known.
func Middleware(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class, limited := ClassifyRoute(r.Method, r.URL.Path)
			if !limited {
				next.ServeHTTP(w, r)
				return
			}

			ip := FallbackClientIP
			if res := clientip.FromRequest(r); res.OK {
				ip = res.IP
			}

			metrics.RequestsTotal.WithLabelValues(class.String()).Inc()

			dec, ok := safeCheck(store, class, ip)
			if !ok {
				// Bookkeeping fault: fail open. The admit/deny decision is
				// the one thing this subsystem enforces, but a broken store
				// must not take request serving down with it.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(HeaderLimit, strconv.Itoa(dec.Limit))
			w.Header().Set(HeaderRemaining, strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				retry := int(math.Ceil(dec.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set(HeaderRetry, strconv.Itoa(retry))
				metrics.RateLimitDeniedTotal.WithLabelValues(class.String()).Inc()
				logger.Ctx(r.Context()).Warn("rate limit exceeded",
					"class", class.String(), "ip", ip, "path", r.URL.Path)
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			// If the handler never produced a status (connection aborted,
			// panic recovered upstream before any write), only the reserved
			// base cost stands.
			if sw.wroteHeader {
				store.ApplyPenalty(class, ip, sw.status)
				if IsPenaltyStatus(sw.status) {
					metrics.PenaltiesTotal.WithLabelValues(class.String()).Inc()
				}
			}
		})
	}
}

// safeCheck runs the admission check, converting a panic in bucket
// bookkeeping into an "allow without limiting" outcome.
func safeCheck(store *Store, class Class, ip string) (dec Decision, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("rate limit check panicked", "panic", rec, "class", class.String(), "ip", ip)
			ok = false
		}
	}()
	return store.CheckAndReserve(class, ip), true
}

// statusWriter records the response status so the penalty pass can charge
// flagged failures after the handler returns.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		// net/http sends an implicit 200 on first write.
		w.status = http.StatusOK
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush passes through so media streaming keeps working behind the recorder.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
