package admin

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Middleware returns an HTTP middleware that requires the admin token.
// The token is accepted as a bearer token or as the password of HTTP
// basic auth, so both API clients and browsers can authenticate.
func Middleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "Admin access not configured", http.StatusForbidden)
				return
			}

			if authorized(r, token) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
		})
	}
}

func authorized(r *http.Request, token string) bool {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		presented := strings.TrimPrefix(header, "Bearer ")
		return subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
	}

	if _, password, ok := r.BasicAuth(); ok {
		return subtle.ConstantTimeCompare([]byte(password), []byte(token)) == 1
	}

	return false
}
