package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"

	"github.com/audiocove/audiocove/internal/admin"
	"github.com/audiocove/audiocove/internal/analytics"
	"github.com/audiocove/audiocove/internal/clientip"
	"github.com/audiocove/audiocove/internal/db"
	"github.com/audiocove/audiocove/internal/logger"
	"github.com/audiocove/audiocove/internal/metrics"
	"github.com/audiocove/audiocove/internal/ratelimit"
	"github.com/audiocove/audiocove/internal/storage"
)

// Config holds the server-level settings handlers need.
type Config struct {
	// BaseURL is the public origin used for enclosure URLs in RSS.
	// When empty it is derived from the request host.
	BaseURL string

	// AdminToken protects everything under /admin except the health check.
	AdminToken string

	// CSRFKey signs CSRF tokens for the admin HTML forms. 32 bytes.
	CSRFKey []byte

	// CSRFSecure marks CSRF cookies Secure; disable for local HTTP.
	CSRFSecure bool

	// StaticDir is served under /static/. Empty disables it.
	StaticDir string

	// AllowedOrigins is the CORS allowlist for the public JSON API.
	AllowedOrigins []string
}

// Server holds dependencies for API handlers
type Server struct {
	db        *db.DB
	storage   storage.ObjectStore
	collector *analytics.Collector
	limiter   *ratelimit.Store
	config    Config
	version   string
}

// NewServer creates a new API server
func NewServer(database *db.DB, store storage.ObjectStore, collector *analytics.Collector, limiter *ratelimit.Store, config Config, version string) *Server {
	return &Server{
		db:        database,
		storage:   store,
		collector: collector,
		limiter:   limiter,
		config:    config,
		version:   version,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Middleware. Client resolution must run before the limiter and the
	// analytics recorder; the limiter sits inside the recorder so denials
	// are captured with their 429 status.
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	if len(s.config.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.AllowedOrigins,
			AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		}))
	}
	r.Use(clientip.Middleware)
	r.Use(analytics.Middleware(s.collector))
	r.Use(ratelimit.Middleware(s.limiter))

	// Health check
	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleRoot)

	r.Handle("/metrics", metrics.Handler())

	if s.config.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.StaticDir)))
		r.Handle("/static/*", fs)
	}

	// Public feed API
	r.Get("/feeds", s.handleListFeeds)
	r.Get("/feeds/{slug}", s.handleGetFeed)
	r.Get("/feeds/{slug}/rss", s.handleFeedRSS)

	// Media delivery
	r.Get("/media/*", s.handleMedia)
	r.Head("/media/*", s.handleMedia)

	// Admin surface
	adminHandlers := admin.NewHandlers(s.db, s.storage)
	r.Route("/admin", func(r chi.Router) {
		// Probes hit this unauthenticated.
		r.Get("/healthz", adminHandlers.HandleHealth)

		r.Group(func(r chi.Router) {
			r.Use(admin.Middleware(s.config.AdminToken))

			// Token-authenticated API. Bodies may be zstd-compressed.
			r.Group(func(r chi.Router) {
				r.Use(decompressMiddleware())
				r.Post("/import", s.handleImport)
			})

			// Browser-facing HTML with CSRF protection.
			r.Group(func(r chi.Router) {
				r.Use(csrf.Protect(s.config.CSRFKey,
					csrf.Secure(s.config.CSRFSecure),
					csrf.Path("/")))
				r.Get("/", adminHandlers.HandleDashboard)
				r.Post("/feeds", adminHandlers.HandleCreateFeed)
				r.Post("/feeds/{slug}/delete", adminHandlers.HandleDeleteFeed)
				r.Post("/feeds/{slug}/episodes", adminHandlers.HandleUploadEpisode)
			})
		})
	})

	return r
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleRoot returns API info
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "audiocove",
		"version": s.version,
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
