package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(renderTasksTotal, staleTasksTotal) }

var renderTasksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "render_tasks_processed_total",
		Help: "Total number of render tasks processed, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var staleTasksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "render_tasks_reaped_total",
		Help: "Render tasks marked failed after being stuck in processing.",
	},
)

func IncRenderTask(status string) {
	renderTasksTotal.WithLabelValues(norm(status)).Inc()
}

func AddStaleTasks(n int) {
	staleTasksTotal.Add(float64(n))
}
