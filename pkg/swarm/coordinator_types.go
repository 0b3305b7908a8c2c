package swarm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/decision"
	"github.com/dd0wney/cluso-swarm/pkg/execution"
	"github.com/dd0wney/cluso-swarm/pkg/journal"
	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/metrics"
	"github.com/dd0wney/cluso-swarm/pkg/pubsub"
	"github.com/dd0wney/cluso-swarm/pkg/trust"
)

// stepOperation is the bounded-execution name for the periodic step
const stepOperation = "swarm.step"

// Coordinator is one node's leadership state machine. It decides,
// without a central coordinator, which single node is authoritative for
// the current term, and rotates that authority on schedule.
//
// Ownership is one-directional: the coordinator holds its sub-engines
// (ledger, decisions, wrapper, journal, bus, roster); sub-engines only
// ever receive data as arguments, never a pointer back.
//
// Concurrent Safety:
// 1. All state access protected by sync.Mutex
// 2. Tick overlap prevented with an atomic in-flight flag (skip policy)
// 3. Role transitions are atomic (under lock)
// 4. Peer dispatch is fire-and-forget through the bus; a tick never
//    blocks waiting for a specific peer
type Coordinator struct {
	identity NodeIdentity
	config   SwarmConfig

	ledger    *trust.Ledger
	decisions *decision.Engine
	wrapper   *execution.Wrapper
	log       *journal.Journal
	bus       *pubsub.Bus
	roster    *Roster

	nominationSub *pubsub.Subscription
	voteSub       *pubsub.Subscription
	leadershipSub *pubsub.Subscription

	role       Role
	term       *Term         // nil until the first term is known
	leaderQual Qualification // qualification of the current term's leader

	// Election state, meaningful while Candidate
	campaign      *Nomination
	votesForSelf  map[string]ElectionVote
	electionStart time.Time

	observedNominations []Nomination      // drained this tick, discarded after
	votedFor            map[uint64]string // term -> candidate voted for

	stepDownPending  bool // set by split-leader reconciliation
	emergencies      int
	operatorRequired bool

	inFlight atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// New creates a coordinator for one node. The seed scores come from the
// identity provider and initialize the node's own trust record; the bus
// connects it to its peers in-process.
func New(identity NodeIdentity, seeds trust.SeedScores, config SwarmConfig, bus *pubsub.Bus) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ledger := trust.NewLedger(config.Trust)
	ledger.Seed(identity.ID, seeds)

	log := journal.New()
	decisions := decision.NewEngine(ledger, log, bus)

	wrapper := execution.NewWithGracePeriod(config.SweepGracePeriod)
	if err := wrapper.RegisterOperation(stepOperation, execution.OperationConfig{
		Timeout:            config.StepTimeout,
		MemoryCeilingBytes: config.StepMemoryCeilingBytes,
		Breaker:            config.StepBreaker,
	}); err != nil {
		return nil, fmt.Errorf("register step operation: %w", err)
	}
	wrapper.StartSweeper(config.SweepInterval)

	roster := NewRoster()
	roster.Add(identity)

	c := &Coordinator{
		identity:        identity,
		config:          config,
		ledger:          ledger,
		decisions:       decisions,
		wrapper:         wrapper,
		log:             log,
		bus:             bus,
		roster:          roster,
		role:            RoleFollower,
		votesForSelf:    make(map[string]ElectionVote),
		votedFor:        make(map[uint64]string),
		stopCh:          make(chan struct{}),
		logger:          logging.DefaultLogger().With(logging.Component("swarm"), logging.PeerID(identity.ID)),
		metricsRegistry: metrics.DefaultRegistry(),
	}

	var err error
	if c.nominationSub, err = bus.Subscribe(context.Background(), pubsub.TopicNominations); err != nil {
		return nil, fmt.Errorf("subscribe nominations: %w", err)
	}
	if c.voteSub, err = bus.Subscribe(context.Background(), pubsub.TopicVotes); err != nil {
		return nil, fmt.Errorf("subscribe votes: %w", err)
	}
	if c.leadershipSub, err = bus.Subscribe(context.Background(), pubsub.TopicLeadership); err != nil {
		return nil, fmt.Errorf("subscribe leadership: %w", err)
	}

	if c.metricsRegistry != nil {
		c.metricsRegistry.SetSwarmRole(c.role.String())
		c.metricsRegistry.SwarmPeersTotal.Set(float64(roster.Len()))
	}

	return c, nil
}

// SetLogger replaces the coordinator's logger
func (c *Coordinator) SetLogger(logger logging.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// Identity returns this node's identity
func (c *Coordinator) Identity() NodeIdentity {
	copied := c.identity
	copied.Traits = copyTraits(c.identity.Traits)
	return copied
}

// Decisions exposes the node's decision engine for proposal submission
func (c *Coordinator) Decisions() *decision.Engine {
	return c.decisions
}

// Journal exposes the node's append-only decision and term log
func (c *Coordinator) Journal() *journal.Journal {
	return c.log
}
