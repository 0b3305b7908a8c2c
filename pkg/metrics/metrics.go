package metrics

import (
	"time"
)

// RecordTick records the outcome and duration of a coordination tick
func (r *Registry) RecordTick(result string, duration time.Duration) {
	r.SwarmTicksTotal.WithLabelValues(result).Inc()
	if result != "skipped" {
		r.SwarmTickDuration.Observe(duration.Seconds())
	}
}

// SetSwarmRole sets the current node role gauge
func (r *Registry) SetSwarmRole(role string) {
	// Reset all roles
	for _, known := range []string{"follower", "candidate", "leader", "observer", "dreamer"} {
		r.SwarmRole.WithLabelValues(known).Set(0)
	}

	// Set current role
	r.SwarmRole.WithLabelValues(role).Set(1)
}

// RecordElection records an election outcome
func (r *Registry) RecordElection(result string, duration time.Duration) {
	r.SwarmElectionsTotal.WithLabelValues(result).Inc()
	r.SwarmElectionDuration.Observe(duration.Seconds())
}

// RecordDecision records a terminal decision with its weighted approval ratio
func (r *Registry) RecordDecision(status string, approvalRatio float64) {
	r.DecisionsTotal.WithLabelValues(status).Inc()
	r.DecisionApprovalRatio.Observe(approvalRatio)
}

// RecordExecution records a bounded execution outcome
func (r *Registry) RecordExecution(operation, status string, duration time.Duration) {
	r.ExecutionsTotal.WithLabelValues(operation, status).Inc()
	r.ExecutionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetBreakerState updates the breaker state gauge for an operation
func (r *Registry) SetBreakerState(operation string, state int) {
	r.BreakerState.WithLabelValues(operation).Set(float64(state))
}
