package clientip

import (
	"context"
	"net/http"

	"github.com/audiocove/audiocove/internal/logger"
)

// contextKey is unexported to prevent collisions
type contextKey struct{}

var resolvedKey = contextKey{}

// Resolved is the outcome of client-address resolution for one request.
// IP is empty and OK false when no header produced a valid address.
type Resolved struct {
	IP string
	OK bool
}

// Middleware resolves the client address once per request and stores the
// result in the request context for the rate limiter and analytics.
//
// Resolution is best-effort: a fault here must never keep the request from
// reaching its handler, so any panic is swallowed and treated as "no
// resolvable identity".
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := safeResolve(r)
		ctx := context.WithValue(r.Context(), resolvedKey, res)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext retrieves the resolution result from context.
// Returns a zero Resolved if the middleware did not run.
func FromContext(ctx context.Context) Resolved {
	if res, ok := ctx.Value(resolvedKey).(Resolved); ok {
		return res
	}
	return Resolved{}
}

// FromRequest is a convenience wrapper around FromContext
func FromRequest(r *http.Request) Resolved {
	return FromContext(r.Context())
}

func safeResolve(r *http.Request) (res Resolved) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("client ip resolution panicked", "panic", rec)
			res = Resolved{}
		}
	}()
	ip, ok := Resolve(r.Header)
	return Resolved{IP: ip, OK: ok}
}
