package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTrustMetrics() {
	r.TrustObservationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_trust_observations_total",
			Help: "Total number of trust signals folded into the ledger",
		},
	)

	r.TrustDecayRunsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_trust_decay_runs_total",
			Help: "Total number of trust decay passes",
		},
	)

	r.TrustMeanScore = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "swarm_trust_mean_score",
			Help: "Mean overall trust score across known peers",
		},
	)
}
