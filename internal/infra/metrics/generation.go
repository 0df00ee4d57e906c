package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		generationCalls,
		generationLatencyMs,
		generationRetries,
		assetsTotal,
		textTokensIn,
		textTokensOut,
	)
}

var (
	generationCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_calls_total",
			Help: "External generation calls by kind and outcome (ok|rate_limited|error).",
		},
		[]string{"kind", "outcome"},
	)

	generationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_latency_ms",
			Help:    "External generation call latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 60000},
		},
		[]string{"kind"},
	)

	generationRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_backoffs_total",
			Help: "Backoff waits taken after rate-limited generation calls.",
		},
		[]string{"kind"},
	)

	assetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assets_total",
			Help: "Assets by kind and resulting status (pending|regenerated|skipped).",
		},
		[]string{"kind", "status"},
	)

	textTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text_tokens_in",
			Help: "Sum of prompt (input) tokens per model.",
		},
		[]string{"model"},
	)

	textTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text_tokens_out",
			Help: "Sum of completion (output) tokens per model.",
		},
		[]string{"model"},
	)
)

func ObserveGeneration(kind, outcome string, latency time.Duration) {
	generationCalls.WithLabelValues(norm(kind), norm(outcome)).Inc()
	generationLatencyMs.WithLabelValues(norm(kind)).Observe(float64(latency / time.Millisecond))
}

func IncGenerationBackoff(kind string) {
	generationRetries.WithLabelValues(norm(kind)).Inc()
}

func IncAsset(kind, status string) {
	assetsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func ObserveTextUsage(model string, tokensIn, tokensOut int) {
	textTokensIn.WithLabelValues(norm(model)).Add(float64(tokensIn))
	textTokensOut.WithLabelValues(norm(model)).Add(float64(tokensOut))
}
