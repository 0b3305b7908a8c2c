package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSwarmMetrics() {
	r.SwarmTicksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_ticks_total",
			Help: "Total number of coordination ticks",
		},
		[]string{"result"}, // ok, error, skipped
	)

	r.SwarmTickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swarm_tick_duration_seconds",
			Help:    "Duration of coordination ticks in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.SwarmRole = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swarm_node_role",
			Help: "Node role in the swarm (1 for current role, 0 otherwise)",
		},
		[]string{"role"}, // follower, candidate, leader, observer, dreamer
	)

	r.SwarmTerm = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "swarm_current_term",
			Help: "Current leadership term ID",
		},
	)

	r.SwarmPeersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "swarm_peers_total",
			Help: "Total number of known peers in the swarm",
		},
	)

	r.SwarmElectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_elections_total",
			Help: "Total number of leader elections",
		},
		[]string{"result"}, // won, conceded, self_promoted, stepped_down
	)

	r.SwarmElectionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swarm_election_duration_seconds",
			Help:    "Duration of leader elections in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
	)

	r.SwarmHarmonyIndex = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "swarm_harmony_index",
			Help: "Harmony index of the current term",
		},
	)

	r.SwarmEmergencyInterventions = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_emergency_interventions_total",
			Help: "Total number of emergency interventions at the tick boundary",
		},
	)
}
