// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiocove_requests_total",
		Help: "Requests seen by the rate limiter, by route class",
	}, []string{"class"})
	RateLimitDeniedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiocove_ratelimit_denied_total",
		Help: "Requests denied with 429, by route class",
	}, []string{"class"})
	PenaltiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiocove_ratelimit_penalties_total",
		Help: "Post-response penalties charged for flagged failure statuses",
	}, []string{"class"})
	AnalyticsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocove_analytics_dropped_total",
		Help: "Analytics events dropped due to backpressure or throttling",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RateLimitDeniedTotal)
	prometheus.MustRegister(PenaltiesTotal)
	prometheus.MustRegister(AnalyticsDroppedTotal)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler { return promhttp.Handler() }
