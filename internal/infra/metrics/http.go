package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(httpRequests, rateLimited) }

var (
	httpRequests = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "API request latency by route pattern and status code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limited_total",
			Help: "Requests rejected by the per-owner rate limiter.",
		},
		[]string{"action"},
	)
)

func ObserveHTTP(route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

func IncRateLimited(action string) {
	rateLimited.WithLabelValues(norm(action)).Inc()
}
