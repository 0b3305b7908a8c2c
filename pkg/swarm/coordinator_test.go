package swarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/decision"
	"github.com/dd0wney/cluso-swarm/pkg/execution"
	"github.com/dd0wney/cluso-swarm/pkg/health"
	"github.com/dd0wney/cluso-swarm/pkg/journal"
	"github.com/dd0wney/cluso-swarm/pkg/pubsub"
)

// electLeader drives a lone node to leadership
func electLeader(t *testing.T, node *Coordinator) {
	t.Helper()

	node.Tick(context.Background())
	time.Sleep(node.config.ElectionTimeoutBase + 5*time.Millisecond)
	node.Tick(context.Background())

	if node.CurrentRole() != RoleLeader {
		t.Fatalf("expected leader, got %s", node.CurrentRole())
	}
}

func TestGracefulRotationAtTermExpiry(t *testing.T) {
	bus := pubsub.NewBus()
	defer bus.Shutdown()

	config := testConfig("rotator")
	config.NominationProbability = 1
	config.ElectionTimeoutBase = time.Millisecond
	config.TermDuration = 30 * time.Millisecond

	node := newTestNode(t, bus, "rotator", config)
	electLeader(t, node)

	if err := node.AppendAchievement("stabilized the swarm"); err != nil {
		t.Fatalf("AppendAchievement failed: %v", err)
	}

	// Well before expiry the leader governs and stays put
	node.Tick(context.Background())
	if node.CurrentRole() != RoleLeader {
		t.Fatalf("leader stepped down early: %s", node.CurrentRole())
	}

	time.Sleep(config.TermDuration + 10*time.Millisecond)
	node.Tick(context.Background())

	if node.CurrentRole() != RoleFollower {
		t.Errorf("expected follower after term expiry, got %s", node.CurrentRole())
	}

	// The completed term is in the journal with its achievements
	entries := node.Journal().Entries(&journal.Filter{Kind: journal.KindTerm})
	if len(entries) != 1 {
		t.Fatalf("expected 1 completed term in journal, got %d", len(entries))
	}
	completed, ok := entries[0].Payload.(Term)
	if !ok {
		t.Fatalf("unexpected journal payload type %T", entries[0].Payload)
	}
	if len(completed.Achievements) != 2 { // ours plus the closing one
		t.Errorf("expected 2 achievements, got %d", len(completed.Achievements))
	}

	if err := node.AppendAchievement("too late"); !errors.Is(err, ErrNotLeader) {
		t.Errorf("expected ErrNotLeader after step-down, got %v", err)
	}
}

func TestTickSkipsWhileInFlight(t *testing.T) {
	bus := pubsub.NewBus()
	defer bus.Shutdown()

	config := testConfig("busy")
	config.NominationProbability = 1

	node := newTestNode(t, bus, "busy", config)

	node.inFlight.Store(true)
	node.Tick(context.Background())
	if node.CurrentRole() != RoleFollower {
		t.Fatalf("overlapping tick should be skipped, got %s", node.CurrentRole())
	}

	node.inFlight.Store(false)
	node.Tick(context.Background())
	if node.CurrentRole() != RoleCandidate {
		t.Errorf("expected candidate once the slot is free, got %s", node.CurrentRole())
	}
}

func TestEmergencyEscalation(t *testing.T) {
	bus := pubsub.NewBus()
	defer bus.Shutdown()

	config := testConfig("fragile")
	config.MaxEmergencyInterventions = 2

	node := newTestNode(t, bus, "fragile", config)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	// Each failed step counts one emergency; crossing the maximum
	// suspends ticking
	for i := 0; i < 3; i++ {
		node.Tick(canceled)
	}

	if !node.RequiresOperator() {
		t.Fatal("expected operator-required after repeated step failures")
	}

	// Suspended: ticks are no-ops even with a healthy context
	node.config.NominationProbability = 1
	node.Tick(context.Background())
	if node.CurrentRole() != RoleFollower {
		t.Errorf("suspended node should not act, got %s", node.CurrentRole())
	}

	// New proposals are refused until the operator clears the condition
	if _, err := node.Propose(decision.Proposal{Title: "ignored"}); !errors.Is(err, ErrOperatorRequired) {
		t.Errorf("expected ErrOperatorRequired, got %v", err)
	}

	node.ClearEmergency()
	if node.RequiresOperator() {
		t.Error("expected operator flag cleared")
	}

	node.Tick(context.Background())
	if node.CurrentRole() != RoleCandidate {
		t.Errorf("expected normal operation after clearing, got %s", node.CurrentRole())
	}
}

func TestSetRolePassive(t *testing.T) {
	bus := pubsub.NewBus()
	defer bus.Shutdown()

	config := testConfig("watcher")
	config.NominationProbability = 1

	node := newTestNode(t, bus, "watcher", config)
	node.SetRole(RoleObserver)

	// Observers never campaign, whatever the probability says
	for i := 0; i < 5; i++ {
		node.Tick(context.Background())
	}
	if node.CurrentRole() != RoleObserver {
		t.Errorf("observer left its role: %s", node.CurrentRole())
	}

	node.SetRole(RoleDreamer)
	before, _ := node.TrustRecord(node.Identity().ID)
	node.Tick(context.Background())
	after, _ := node.TrustRecord(node.Identity().ID)

	if after.Creativity <= before.Creativity {
		t.Errorf("dreamer reflection should nudge creativity upward: %v -> %v",
			before.Creativity, after.Creativity)
	}

	node.SetRole(RoleFollower)
	node.Tick(context.Background())
	if node.CurrentRole() != RoleCandidate {
		t.Errorf("expected follower to campaign again, got %s", node.CurrentRole())
	}
}

func TestProposeAppliesDefaults(t *testing.T) {
	bus := pubsub.NewBus()
	defer bus.Shutdown()

	node := newTestNode(t, bus, "proposer", testConfig("proposer"))

	id, err := node.Propose(decision.Proposal{Title: "change theme"})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	p, err := node.Decisions().Decision(id)
	if err != nil {
		t.Fatalf("Decision failed: %v", err)
	}
	if p.Threshold != node.config.DecisionThreshold {
		t.Errorf("expected default threshold %v, got %v", node.config.DecisionThreshold, p.Threshold)
	}
	if p.Proposer != node.Identity().ID {
		t.Errorf("expected proposer defaulted to self, got %s", p.Proposer)
	}
	if p.Deadline.IsZero() {
		t.Error("expected deadline defaulted")
	}
}

func TestReadinessCheck(t *testing.T) {
	bus := pubsub.NewBus()
	defer bus.Shutdown()

	config := testConfig("ready")
	config.MaxEmergencyInterventions = 1

	node := newTestNode(t, bus, "ready", config)

	check := node.ReadinessCheck()()
	if check.Status != health.StatusHealthy {
		t.Errorf("expected healthy before any failure, got %s", check.Status)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	node.Tick(canceled)
	node.Tick(canceled)

	check = node.ReadinessCheck()()
	if check.Status != health.StatusCritical {
		t.Errorf("expected critical once operator is required, got %s", check.Status)
	}
}

// The coordinator's wrapper must sweep executions that outlive the
// grace period even when nothing else touches the wrapper.
func TestCoordinatorSweepsZombieExecutions(t *testing.T) {
	bus := pubsub.NewBus()
	defer bus.Shutdown()

	config := testConfig("janitor")
	config.SweepInterval = 5 * time.Millisecond
	config.SweepGracePeriod = 10 * time.Millisecond

	node := newTestNode(t, bus, "janitor", config)

	if err := node.wrapper.RegisterOperation("hang", execution.OperationConfig{Timeout: time.Minute}); err != nil {
		t.Fatalf("RegisterOperation failed: %v", err)
	}

	block := make(chan struct{})
	defer close(block)
	go func() {
		_, _ = node.wrapper.Execute(context.Background(), "hang", func(context.Context) (any, error) {
			<-block // ignores cancellation
			return nil, nil
		})
	}()

	deadline := time.Now().Add(time.Second)
	for node.wrapper.InflightCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if node.wrapper.InflightCount() != 1 {
		t.Fatal("expected the hung execution to be tracked")
	}

	for node.wrapper.InflightCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := node.wrapper.InflightCount(); got != 0 {
		t.Errorf("expected zombie reclaimed by the sweeper, %d still in flight", got)
	}
}

func TestStatusQueriesAreSnapshots(t *testing.T) {
	bus := pubsub.NewBus()
	defer bus.Shutdown()

	config := testConfig("snap")
	config.NominationProbability = 1
	config.ElectionTimeoutBase = time.Millisecond

	node := newTestNode(t, bus, "snap", config)
	electLeader(t, node)

	term := node.CurrentTerm()
	term.Achievements = append(term.Achievements, Achievement{Note: "forged"})
	term.LeaderID = "someone-else"

	fresh := node.CurrentTerm()
	if fresh.LeaderID != node.Identity().ID {
		t.Error("mutating a returned term leaked into the coordinator")
	}
	if len(fresh.Achievements) != 0 {
		t.Errorf("expected no achievements, got %d", len(fresh.Achievements))
	}
}
