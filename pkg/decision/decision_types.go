package decision

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/journal"
	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/metrics"
	"github.com/dd0wney/cluso-swarm/pkg/pubsub"
	"github.com/dd0wney/cluso-swarm/pkg/trust"
)

// Status represents the lifecycle state of a proposal
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusTimedOut Status = "timed_out"
)

// Terminal reports whether a status can no longer change
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Choice is a ballot's stance on a proposal
type Choice string

const (
	ChoiceApprove Choice = "approve"
	ChoiceReject  Choice = "reject"
	ChoiceAbstain Choice = "abstain"
)

// Ballot is one voter's stance. Conviction is clamped to [0,1] and
// multiplied by the voter's trust scalar, so low-trust votes lose
// influence without hard exclusion.
type Ballot struct {
	Choice     Choice  `json:"choice"`
	Conviction float64 `json:"conviction"`
	Rationale  string  `json:"rationale,omitempty"`
}

// Proposal is a group decision moving through the voting lifecycle
type Proposal struct {
	ID         string            `json:"id"`
	Proposer   string            `json:"proposer"`
	TargetTerm uint64            `json:"target_term"`
	Title      string            `json:"title"`
	Threshold  float64           `json:"threshold"` // required consensus in (0,1]
	Deadline   time.Time         `json:"deadline"`
	Electorate []string          `json:"electorate,omitempty"` // eligible voters; empty = open
	Status     Status            `json:"status"`
	Ballots    map[string]Ballot `json:"ballots"`

	// Set when the proposal reaches a terminal status
	FinalApproval float64   `json:"final_approval"`
	DecidedAt     time.Time `json:"decided_at,omitempty"`
}

// Outcome describes a terminal evaluation, published on the bus and
// appended to the journal for audit.
type Outcome struct {
	DecisionID string    `json:"decision_id"`
	Title      string    `json:"title"`
	Status     Status    `json:"status"`
	Approval   float64   `json:"approval"`
	Threshold  float64   `json:"threshold"`
	TargetTerm uint64    `json:"target_term"`
	DecidedAt  time.Time `json:"decided_at"`
}

// Engine manages the proposal lifecycle and quorum arithmetic
//
// Concurrent Safety: all state access is protected by a mutex; terminal
// transitions are atomic, so a decision's status is monotonic.
type Engine struct {
	decisions map[string]*Proposal
	ledger    *trust.Ledger
	log       *journal.Journal
	bus       *pubsub.Bus
	mu        sync.Mutex

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// NewEngine creates a decision engine backed by the given trust ledger.
// The journal and bus may be nil when audit and fan-out are not needed.
func NewEngine(ledger *trust.Ledger, log *journal.Journal, bus *pubsub.Bus) *Engine {
	return &Engine{
		decisions:       make(map[string]*Proposal),
		ledger:          ledger,
		log:             log,
		bus:             bus,
		logger:          logging.DefaultLogger().With(logging.Component("decision")),
		metricsRegistry: metrics.DefaultRegistry(),
	}
}

// SetLogger replaces the engine's logger (useful for tests)
func (e *Engine) SetLogger(logger logging.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger
}
