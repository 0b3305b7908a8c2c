package breaker

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/metrics"
)

// State represents the phase of a circuit
type State int

const (
	// StateClosed allows calls; failures increment a counter
	StateClosed State = iota
	// StateOpen fails fast until the recovery timeout elapses
	StateOpen
	// StateHalfOpen allows a single trial call to probe recovery
	StateHalfOpen
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config defines thresholds for one protected operation
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the circuit from Closed to Open.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays Open before a
	// half-open probe is allowed.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of consecutive half-open successes
	// required to close the circuit again.
	SuccessThreshold int
}

// DefaultConfig returns safe breaker defaults
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 2,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FailureThreshold < 1 {
		return ErrInvalidFailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		return ErrInvalidRecoveryTimeout
	}
	if c.SuccessThreshold < 1 {
		return ErrInvalidSuccessThreshold
	}
	return nil
}

// circuit is the per-operation state
type circuit struct {
	config              Config
	state               State
	consecutiveFailures int
	halfOpenSuccesses   int
	probeInFlight       bool
	nextRetry           time.Time
}

// Snapshot is a point-in-time copy of one circuit's state
type Snapshot struct {
	Operation           string
	State               State
	ConsecutiveFailures int
	HalfOpenSuccesses   int
	NextRetry           time.Time
}

// Breaker isolates fallible operations behind per-operation circuits
//
// Concurrent Safety: all state access is protected by a single mutex;
// transitions are atomic under the lock.
type Breaker struct {
	circuits        map[string]*circuit
	mu              sync.Mutex
	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// New creates an empty breaker table
func New() *Breaker {
	return &Breaker{
		circuits:        make(map[string]*circuit),
		logger:          logging.DefaultLogger().With(logging.Component("breaker")),
		metricsRegistry: metrics.DefaultRegistry(),
	}
}

// SetLogger replaces the breaker's logger (useful for tests)
func (b *Breaker) SetLogger(logger logging.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}
