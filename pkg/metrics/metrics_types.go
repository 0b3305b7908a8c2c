package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the swarm coordination core
type Registry struct {
	// Swarm Metrics
	SwarmTicksTotal             *prometheus.CounterVec
	SwarmTickDuration           prometheus.Histogram
	SwarmRole                   *prometheus.GaugeVec
	SwarmTerm                   prometheus.Gauge
	SwarmPeersTotal             prometheus.Gauge
	SwarmElectionsTotal         *prometheus.CounterVec
	SwarmElectionDuration       prometheus.Histogram
	SwarmHarmonyIndex           prometheus.Gauge
	SwarmEmergencyInterventions prometheus.Counter

	// Decision Metrics
	DecisionsTotal        *prometheus.CounterVec
	DecisionVotesTotal    prometheus.Counter
	DecisionApprovalRatio prometheus.Histogram

	// Trust Metrics
	TrustObservationsTotal prometheus.Counter
	TrustDecayRunsTotal    prometheus.Counter
	TrustMeanScore         prometheus.Gauge

	// Breaker Metrics
	BreakerState           *prometheus.GaugeVec
	BreakerTripsTotal      *prometheus.CounterVec
	BreakerRejectionsTotal *prometheus.CounterVec

	// Execution Metrics
	ExecutionsTotal           *prometheus.CounterVec
	ExecutionDuration         *prometheus.HistogramVec
	ExecutionHealthScore      *prometheus.GaugeVec
	ExecutionMemoryRejections prometheus.Counter
	ExecutionZombiesSwept     prometheus.Counter

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initSwarmMetrics()
	r.initDecisionMetrics()
	r.initTrustMetrics()
	r.initBreakerMetrics()
	r.initExecutionMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
