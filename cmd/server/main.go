package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/audiocove/audiocove/internal/analytics"
	"github.com/audiocove/audiocove/internal/api"
	"github.com/audiocove/audiocove/internal/db"
	"github.com/audiocove/audiocove/internal/logger"
	"github.com/audiocove/audiocove/internal/ratelimit"
	"github.com/audiocove/audiocove/internal/storage"
)

var version string

func main() {
	// Local development convenience; a missing .env is not an error.
	godotenv.Load()

	// Start pprof debug server if enabled (for memory/CPU profiling)
	if os.Getenv("ENABLE_PPROF") == "true" {
		go startPprofServer()
	}

	// Initialize OpenTelemetry. Configured via env vars:
	// OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
		// Non-fatal: continue without tracing if OTEL env vars not set
	} else {
		defer otelShutdown()
	}

	config := loadConfig()

	database, err := db.Connect(config.DatabasePath)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	store, err := storage.NewS3Storage(config.S3Config)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}

	collector := analytics.NewCollector(database, config.AnalyticsBuffer, config.AnalyticsWritesPerSec)
	defer collector.Close()

	limiter := ratelimit.NewStore(config.Limits, config.RateLimitWindow)
	defer limiter.Stop()

	// Periodically drop request events past their retention window.
	pruneDone := make(chan struct{})
	go pruneEvents(database, config.EventRetention, pruneDone)

	server := api.NewServer(database, store, collector, limiter, config.API, version)
	router := server.SetupRoutes()

	// Wrap router with OpenTelemetry HTTP instrumentation
	handler := otelhttp.NewHandler(router, "audiocove")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", config.Port, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	close(pruneDone)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// Config holds everything read from the environment at startup
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	DatabasePath string
	S3Config     storage.S3Config
	API          api.Config

	Limits          ratelimit.Limits
	RateLimitWindow time.Duration

	AnalyticsBuffer       int
	AnalyticsWritesPerSec float64
	EventRetention        time.Duration
}

func loadConfig() Config {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	readTimeout := 30 * time.Second
	if rt := os.Getenv("HTTP_READ_TIMEOUT"); rt != "" {
		if parsed, err := time.ParseDuration(rt); err == nil {
			readTimeout = parsed
		}
	}

	writeTimeout := 30 * time.Second
	if wt := os.Getenv("HTTP_WRITE_TIMEOUT"); wt != "" {
		if parsed, err := time.ParseDuration(wt); err == nil {
			writeTimeout = parsed
		}
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = "audiocove.db"
	}

	// Required admin/security configuration
	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		logger.Fatal("missing required env var", "var", "ADMIN_TOKEN")
	}

	csrfSecretKey := os.Getenv("CSRF_SECRET_KEY")
	if csrfSecretKey == "" {
		logger.Fatal("missing required env var", "var", "CSRF_SECRET_KEY", "hint", "must be at least 32 characters")
	}
	if len(csrfSecretKey) < 32 {
		logger.Fatal("invalid env var", "var", "CSRF_SECRET_KEY", "error", "must be at least 32 characters")
	}

	// Required S3/storage configuration
	s3Endpoint := os.Getenv("S3_ENDPOINT")
	if s3Endpoint == "" {
		logger.Fatal("missing required env var", "var", "S3_ENDPOINT")
	}

	awsAccessKeyID := os.Getenv("AWS_ACCESS_KEY_ID")
	if awsAccessKeyID == "" {
		logger.Fatal("missing required env var", "var", "AWS_ACCESS_KEY_ID")
	}

	awsSecretAccessKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if awsSecretAccessKey == "" {
		logger.Fatal("missing required env var", "var", "AWS_SECRET_ACCESS_KEY")
	}

	bucketName := os.Getenv("BUCKET_NAME")
	if bucketName == "" {
		logger.Fatal("missing required env var", "var", "BUCKET_NAME")
	}

	var allowedOrigins []string
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	limits := ratelimit.DefaultLimits()
	overrideLimit(&limits.Default, "RATE_LIMIT_DEFAULT")
	overrideLimit(&limits.AdminRead, "RATE_LIMIT_ADMIN_READ")
	overrideLimit(&limits.AdminWrite, "RATE_LIMIT_ADMIN_WRITE")
	overrideLimit(&limits.Media, "RATE_LIMIT_MEDIA")

	window := ratelimit.DefaultWindow
	if w := os.Getenv("RATE_LIMIT_WINDOW"); w != "" {
		if parsed, err := time.ParseDuration(w); err == nil && parsed > 0 {
			window = parsed
		}
	}

	analyticsBuffer := 1024
	if b := os.Getenv("ANALYTICS_BUFFER"); b != "" {
		fmt.Sscanf(b, "%d", &analyticsBuffer)
	}

	analyticsWrites := 100.0
	if ws := os.Getenv("ANALYTICS_WRITES_PER_SECOND"); ws != "" {
		fmt.Sscanf(ws, "%f", &analyticsWrites)
	}

	eventRetention := 30 * 24 * time.Hour
	if er := os.Getenv("EVENT_RETENTION"); er != "" {
		if parsed, err := time.ParseDuration(er); err == nil && parsed > 0 {
			eventRetention = parsed
		}
	}

	return Config{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		DatabasePath: databasePath,
		S3Config: storage.S3Config{
			Endpoint:        s3Endpoint,
			AccessKeyID:     awsAccessKeyID,
			SecretAccessKey: awsSecretAccessKey,
			BucketName:      bucketName,
			UseSSL:          os.Getenv("S3_USE_SSL") != "false", // Default true
		},
		API: api.Config{
			BaseURL:        os.Getenv("BASE_URL"),
			AdminToken:     adminToken,
			CSRFKey:        []byte(csrfSecretKey),
			CSRFSecure:     os.Getenv("CSRF_SECURE") != "false", // Default true
			StaticDir:      os.Getenv("STATIC_DIR"),
			AllowedOrigins: allowedOrigins,
		},
		Limits:                limits,
		RateLimitWindow:       window,
		AnalyticsBuffer:       analyticsBuffer,
		AnalyticsWritesPerSec: analyticsWrites,
		EventRetention:        eventRetention,
	}
}

func overrideLimit(target *int, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil && parsed > 0 {
			*target = parsed
		}
	}
}

// pruneEvents deletes request events older than the retention window,
// once an hour, until done is closed.
func pruneEvents(database *db.DB, retention time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			pruned, err := database.PruneRequestEvents(ctx, time.Now().UTC().Add(-retention))
			cancel()
			if err != nil {
				logger.Warn("failed to prune request events", "error", err)
				continue
			}
			if pruned > 0 {
				logger.Info("pruned request events", "count", pruned)
			}
		}
	}
}

// startPprofServer starts a pprof debug server on localhost:6060.
// Only accessible locally; use a proxy/tunnel for remote debugging.
func startPprofServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))
	mux.Handle("/debug/pprof/block", pprof.Handler("block"))
	mux.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))

	addr := "127.0.0.1:6060"
	logger.Info("pprof debug server starting", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("pprof server failed", "error", err)
	}
}
