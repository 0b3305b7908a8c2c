package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBreakerMetrics() {
	r.BreakerState = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swarm_breaker_state",
			Help: "Circuit breaker state per operation (0=closed, 1=open, 2=half-open)",
		},
		[]string{"operation"},
	)

	r.BreakerTripsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_breaker_trips_total",
			Help: "Total number of closed-to-open breaker transitions",
		},
		[]string{"operation"},
	)

	r.BreakerRejectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_breaker_rejections_total",
			Help: "Total number of fail-fast rejections while a breaker is open",
		},
		[]string{"operation"},
	)
}
