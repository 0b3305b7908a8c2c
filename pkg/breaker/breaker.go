package breaker

import (
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/logging"
)

// Register creates a circuit for an operation
func (b *Breaker) Register(operation string, config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.circuits[operation]; exists {
		return ErrAlreadyRegistered
	}

	b.circuits[operation] = &circuit{
		config: config,
		state:  StateClosed,
	}

	if b.metricsRegistry != nil {
		b.metricsRegistry.SetBreakerState(operation, int(StateClosed))
	}

	return nil
}

// Allow reports whether a call to the operation may proceed. An Open
// circuit whose recovery timeout has elapsed transitions to HalfOpen and
// admits a single probe; concurrent callers during the probe are rejected.
func (b *Breaker) Allow(operation string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, exists := b.circuits[operation]
	if !exists {
		return ErrUnknownOperation
	}

	switch c.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Now().Before(c.nextRetry) {
			if b.metricsRegistry != nil {
				b.metricsRegistry.BreakerRejectionsTotal.WithLabelValues(operation).Inc()
			}
			return ErrCircuitOpen
		}
		// Recovery timeout elapsed - admit one probe
		c.state = StateHalfOpen
		c.probeInFlight = true
		c.halfOpenSuccesses = 0
		b.setStateMetric(operation, c.state)
		b.logger.Info("Circuit half-open, probing recovery", logging.OperationID(operation))
		return nil

	case StateHalfOpen:
		if c.probeInFlight {
			if b.metricsRegistry != nil {
				b.metricsRegistry.BreakerRejectionsTotal.WithLabelValues(operation).Inc()
			}
			return ErrCircuitOpen
		}
		c.probeInFlight = true
		return nil

	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess records a successful call outcome
func (b *Breaker) RecordSuccess(operation string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, exists := b.circuits[operation]
	if !exists {
		return
	}

	switch c.state {
	case StateClosed:
		// Any success resets the consecutive failure count
		c.consecutiveFailures = 0

	case StateHalfOpen:
		c.probeInFlight = false
		c.halfOpenSuccesses++
		if c.halfOpenSuccesses >= c.config.SuccessThreshold {
			c.state = StateClosed
			c.consecutiveFailures = 0
			c.halfOpenSuccesses = 0
			b.setStateMetric(operation, c.state)
			b.logger.Info("Circuit closed after recovery", logging.OperationID(operation))
		}
	}
}

// RecordFailure records a failed call outcome. In HalfOpen a single
// failure reopens the circuit regardless of prior half-open successes,
// trading availability for faster containment during recovery probing.
func (b *Breaker) RecordFailure(operation string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, exists := b.circuits[operation]
	if !exists {
		return
	}

	switch c.state {
	case StateClosed:
		c.consecutiveFailures++
		if c.consecutiveFailures >= c.config.FailureThreshold {
			b.tripLocked(operation, c)
		}

	case StateHalfOpen:
		c.probeInFlight = false
		c.halfOpenSuccesses = 0
		b.tripLocked(operation, c)
	}
}

// ReleaseProbe returns a half-open probe slot without counting an
// outcome. Used when an admitted call is rejected before the operation
// runs (for example by a memory pre-check).
func (b *Breaker) ReleaseProbe(operation string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, exists := b.circuits[operation]
	if !exists {
		return
	}
	if c.state == StateHalfOpen {
		c.probeInFlight = false
	}
}

// Reset forces a circuit back to Closed. Explicit operator action.
func (b *Breaker) Reset(operation string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, exists := b.circuits[operation]
	if !exists {
		return ErrUnknownOperation
	}

	c.state = StateClosed
	c.consecutiveFailures = 0
	c.halfOpenSuccesses = 0
	c.probeInFlight = false
	c.nextRetry = time.Time{}
	b.setStateMetric(operation, c.state)

	b.logger.Info("Circuit reset by operator", logging.OperationID(operation))
	return nil
}

// StateOf returns the current state of an operation's circuit
func (b *Breaker) StateOf(operation string) (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, exists := b.circuits[operation]
	if !exists {
		return StateClosed, ErrUnknownOperation
	}
	return c.state, nil
}

// SnapshotOf returns a point-in-time copy of an operation's circuit state
func (b *Breaker) SnapshotOf(operation string) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, exists := b.circuits[operation]
	if !exists {
		return Snapshot{}, ErrUnknownOperation
	}

	return Snapshot{
		Operation:           operation,
		State:               c.state,
		ConsecutiveFailures: c.consecutiveFailures,
		HalfOpenSuccesses:   c.halfOpenSuccesses,
		NextRetry:           c.nextRetry,
	}, nil
}

// tripLocked transitions a circuit to Open. Must be called with lock held.
func (b *Breaker) tripLocked(operation string, c *circuit) {
	c.state = StateOpen
	c.nextRetry = time.Now().Add(c.config.RecoveryTimeout)
	b.setStateMetric(operation, c.state)

	if b.metricsRegistry != nil {
		b.metricsRegistry.BreakerTripsTotal.WithLabelValues(operation).Inc()
	}

	b.logger.Warn("Circuit tripped open",
		logging.OperationID(operation),
		logging.Int("consecutive_failures", c.consecutiveFailures),
		logging.Duration("recovery_timeout", c.config.RecoveryTimeout))
}

func (b *Breaker) setStateMetric(operation string, state State) {
	if b.metricsRegistry != nil {
		b.metricsRegistry.SetBreakerState(operation, int(state))
	}
}
