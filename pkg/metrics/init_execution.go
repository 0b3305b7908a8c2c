package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initExecutionMetrics() {
	r.ExecutionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_executions_total",
			Help: "Total number of bounded executions by outcome",
		},
		[]string{"operation", "status"}, // success, failure, timeout, rejected
	)

	r.ExecutionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swarm_execution_duration_seconds",
			Help:    "Duration of bounded executions in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"operation"},
	)

	r.ExecutionHealthScore = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swarm_execution_health_score",
			Help: "Advisory health score per operation (0-100)",
		},
		[]string{"operation"},
	)

	r.ExecutionMemoryRejections = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_execution_memory_rejections_total",
			Help: "Total number of executions rejected by the memory ceiling pre-check",
		},
	)

	r.ExecutionZombiesSwept = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_execution_zombies_swept_total",
			Help: "Total number of stale in-flight executions removed by the sweeper",
		},
	)
}
