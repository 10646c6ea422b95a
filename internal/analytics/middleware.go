package analytics

import (
	"net/http"
	"time"

	"github.com/audiocove/audiocove/internal/clientip"
	"github.com/audiocove/audiocove/internal/fingerprint"
	"github.com/audiocove/audiocove/internal/logger"
	"github.com/audiocove/audiocove/internal/ratelimit"
)

// Middleware records one event per rate-limited request after the
// response has been written. Exempt routes (health checks, static
// assets) are not recorded. Must run after clientip.Middleware.
func Middleware(collector *Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class, limited := ratelimit.ClassifyRoute(r.Method, r.URL.Path)
			if !limited {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			record(collector, r, class, rec.status)
		})
	}
}

// record builds and enqueues the event. A panic here must not take down
// the request, which has already been served.
func record(collector *Collector, r *http.Request, class ratelimit.Class, status int) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic recording request event", "panic", rec, "path", r.URL.Path)
		}
	}()

	resolved := clientip.FromRequest(r)
	userAgent := r.UserAgent()

	fp, _ := fingerprint.Compute(resolved.IP, userAgent)
	name, _ := fingerprint.ClientName(userAgent)

	collector.Record(Event{
		Time:        time.Now().UTC(),
		ClientIP:    resolved.IP,
		Fingerprint: fp,
		ClientName:  name,
		Method:      r.Method,
		Path:        r.URL.Path,
		RouteClass:  class.String(),
		Status:      status,
		UserAgent:   userAgent,
	})
}

// statusRecorder captures the response status for the event.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
