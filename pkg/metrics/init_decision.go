package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDecisionMetrics() {
	r.DecisionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_decisions_total",
			Help: "Total number of decisions by terminal status",
		},
		[]string{"status"}, // approved, rejected, timed_out
	)

	r.DecisionVotesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_decision_votes_total",
			Help: "Total number of ballots cast on decisions",
		},
	)

	r.DecisionApprovalRatio = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swarm_decision_approval_ratio",
			Help:    "Trust-weighted approval ratio at decision termination",
			Buckets: []float64{0.1, 0.25, 0.5, 0.66, 0.75, 0.9, 1.0},
		},
	)
}
