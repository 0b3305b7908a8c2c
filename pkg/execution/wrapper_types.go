package execution

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/breaker"
	"github.com/dd0wney/cluso-swarm/pkg/health"
	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/metrics"
)

// Health score constants
const (
	// MaxHealthScore is the score assigned to freshly registered operations
	MaxHealthScore = 100
	// successReward is added per successful execution (capped at max)
	successReward = 1
	// failurePenalty is subtracted per failed execution
	failurePenalty = 10
	// nearBudgetPenalty is subtracted when an execution uses more than
	// 90% of its timeout budget
	nearBudgetPenalty = 5
)

// DefaultSweepGracePeriod is how old an in-flight execution must be
// before the sweeper treats it as zombie work.
const DefaultSweepGracePeriod = 5 * time.Minute

// Operation is a unit of work run under the wrapper's safety contract
type Operation func(ctx context.Context) (any, error)

// OperationConfig bounds one registered operation
type OperationConfig struct {
	// Timeout is the hard execution deadline. Validated > 0 at registration.
	Timeout time.Duration
	// MemoryCeilingBytes rejects admission when current heap usage
	// exceeds it. Zero disables the pre-check.
	MemoryCeilingBytes uint64
	// Breaker configures the operation's circuit
	Breaker breaker.Config
}

// HealthSnapshot is the advisory health view of one operation
type HealthSnapshot struct {
	Operation string        `json:"operation"`
	Score     int           `json:"score"`
	Status    health.Status `json:"status"`
}

// inflight tracks one running execution for the zombie sweeper
type inflight struct {
	id        uint64
	operation string
	startedAt time.Time
	cancel    context.CancelFunc
}

// execResult carries an operation's outcome across the timeout race
type execResult struct {
	value any
	err   error
}

// Wrapper enforces a uniform safety contract around pluggable operations:
// hard timeout, pre-admission memory ceiling, breaker isolation, and
// continuous advisory health scoring.
type Wrapper struct {
	circuits     *breaker.Breaker
	configs      map[string]OperationConfig
	scores       map[string]int
	running      map[uint64]*inflight
	nextID       uint64
	gracePeriod  time.Duration
	mu           sync.Mutex
	sweepStop    chan struct{}
	sweepStopped sync.Once

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// New creates a wrapper with the default sweep grace period
func New() *Wrapper {
	return NewWithGracePeriod(DefaultSweepGracePeriod)
}

// NewWithGracePeriod creates a wrapper whose sweeper reclaims executions
// older than the given grace period
func NewWithGracePeriod(gracePeriod time.Duration) *Wrapper {
	if gracePeriod <= 0 {
		gracePeriod = DefaultSweepGracePeriod
	}

	return &Wrapper{
		circuits:        breaker.New(),
		configs:         make(map[string]OperationConfig),
		scores:          make(map[string]int),
		running:         make(map[uint64]*inflight),
		gracePeriod:     gracePeriod,
		sweepStop:       make(chan struct{}),
		logger:          logging.DefaultLogger().With(logging.Component("execution")),
		metricsRegistry: metrics.DefaultRegistry(),
	}
}

// SetLogger replaces the wrapper's logger (useful for tests)
func (w *Wrapper) SetLogger(logger logging.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger = logger
	w.circuits.SetLogger(logger)
}

// Breaker exposes the wrapper's breaker table for operator actions
// such as Reset.
func (w *Wrapper) Breaker() *breaker.Breaker {
	return w.circuits
}
