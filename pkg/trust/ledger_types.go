package trust

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/metrics"
)

// NeutralScore is the default trust for peers that have never been observed.
// Unseen peers are neither presumed hostile nor fully trusted.
const NeutralScore = 0.5

// SignalKind identifies the behavior a trust signal describes
type SignalKind int

const (
	// SignalVoteCast is emitted when a peer participates in a vote
	SignalVoteCast SignalKind = iota
	// SignalHeartbeat is emitted from heartbeat latency observations
	SignalHeartbeat
	// SignalTermCompleted is emitted when a peer completes a leadership term
	SignalTermCompleted
	// SignalCreativeContribution is emitted for novel proposals and achievements
	SignalCreativeContribution
)

// String returns the string representation of a SignalKind
func (k SignalKind) String() string {
	switch k {
	case SignalVoteCast:
		return "vote_cast"
	case SignalHeartbeat:
		return "heartbeat"
	case SignalTermCompleted:
		return "term_completed"
	case SignalCreativeContribution:
		return "creative_contribution"
	default:
		return "unknown"
	}
}

// Signal is one observation about a peer's behavior. Value is normalized
// to [0,1] where 1 is the most favorable reading.
type Signal struct {
	Kind  SignalKind
	Value float64
}

// Record holds the continuously-updated reliability estimate for one peer
type Record struct {
	PeerID         string
	Consistency    float64
	Creativity     float64
	Harmony        float64
	Responsiveness float64
	Overall        float64

	// Vote-history statistics
	Participation         int
	MajorityAgreementRate float64
	LeadershipSupportRate float64

	LastObserved time.Time
}

// SeedScores is the construction-time triple supplied by the identity
// provider, used to seed the self record and the qualification check.
type SeedScores struct {
	Consciousness float64
	Creativity    float64
	Harmony       float64
}

// Config controls smoothing and decay behavior
type Config struct {
	// SmoothingAlpha is the EMA weight of a fresh signal. Kept low so
	// recent behavior cannot overwhelm long-run reputation.
	SmoothingAlpha float64
	// DecayRate is how far scores are pulled toward NeutralScore per
	// Decay pass.
	DecayRate float64
}

// DefaultConfig returns safe smoothing defaults
func DefaultConfig() Config {
	return Config{
		SmoothingAlpha: 0.2,
		DecayRate:      0.05,
	}
}

// Ledger tracks per-peer reliability scores
//
// Concurrent Safety:
// 1. All public methods use RWMutex for thread-safe access
// 2. Read operations (TrustOf, Snapshot) use RLock for concurrent reads
// 3. Snapshot returns defensive copies so callers never see live records
type Ledger struct {
	records         map[string]*Record
	config          Config
	mu              sync.RWMutex
	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// NewLedger creates a trust ledger with the given smoothing configuration
func NewLedger(config Config) *Ledger {
	if config.SmoothingAlpha <= 0 || config.SmoothingAlpha > 1 {
		config.SmoothingAlpha = DefaultConfig().SmoothingAlpha
	}
	if config.DecayRate <= 0 || config.DecayRate > 1 {
		config.DecayRate = DefaultConfig().DecayRate
	}

	return &Ledger{
		records:         make(map[string]*Record),
		config:          config,
		logger:          logging.DefaultLogger().With(logging.Component("trust")),
		metricsRegistry: metrics.DefaultRegistry(),
	}
}

// SetLogger replaces the ledger's logger (useful for tests)
func (l *Ledger) SetLogger(logger logging.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}
