package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(renderDuration, renderClips, renderSkipped, renderFailures) }

var (
	renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Wall time of a full video assembly.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	renderClips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "render_clips_total",
			Help: "Scene clips rendered into assembled videos.",
		},
	)

	renderSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_scenes_skipped_total",
			Help: "Scenes skipped during assembly, by failing stage.",
		},
		[]string{"stage"}, // fetch|decode|probe|encode
	)

	renderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_failures_total",
			Help: "Assemblies that produced no video, by reason.",
		},
		[]string{"reason"},
	)
)

func ObserveRender(d time.Duration, clips int) {
	renderDuration.Observe(d.Seconds())
	renderClips.Add(float64(clips))
}

func IncSceneSkipped(stage string) {
	renderSkipped.WithLabelValues(norm(stage)).Inc()
}

func IncRenderFailure(reason string) {
	renderFailures.WithLabelValues(norm(reason)).Inc()
}
