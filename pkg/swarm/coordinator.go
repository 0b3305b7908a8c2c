package swarm

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/decision"
	"github.com/dd0wney/cluso-swarm/pkg/execution"
	"github.com/dd0wney/cluso-swarm/pkg/health"
	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/trust"
)

// Run drives the coordinator on its configured tick interval until the
// context is canceled or Close is called. Callers that already have a
// scheduler can skip Run and invoke Tick directly.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick executes one step of the state machine. Ticks never overlap: a
// tick arriving while the prior one is still in flight is skipped.
// Step failures are absorbed at the tick boundary and never escape.
func (c *Coordinator) Tick(ctx context.Context) {
	if !c.inFlight.CompareAndSwap(false, true) {
		if c.metricsRegistry != nil {
			c.metricsRegistry.RecordTick("skipped", 0)
		}
		return
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	suspended := c.operatorRequired
	c.mu.Unlock()
	if suspended {
		if c.metricsRegistry != nil {
			c.metricsRegistry.RecordTick("suspended", 0)
		}
		return
	}

	start := time.Now()
	_, err := c.wrapper.Execute(ctx, stepOperation, func(stepCtx context.Context) (any, error) {
		return nil, c.step(stepCtx)
	})
	duration := time.Since(start)

	if err != nil {
		c.recordEmergency(err)
		if c.metricsRegistry != nil {
			c.metricsRegistry.RecordTick("error", duration)
		}
		return
	}

	if c.metricsRegistry != nil {
		c.metricsRegistry.RecordTick("ok", duration)
	}
}

// step runs exactly one role-specific action per tick
func (c *Coordinator) step(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.drainInboxLocked()

	switch c.role {
	case RoleFollower:
		c.stepFollowerLocked(now)
	case RoleCandidate:
		c.stepCandidateLocked(now)
	case RoleLeader:
		c.stepLeaderLocked(now)
	case RoleObserver:
		c.stepObserverLocked()
	case RoleDreamer:
		c.stepDreamerLocked()
	}

	// Nominations are consumed within the tick they were observed
	c.observedNominations = nil

	return ctx.Err()
}

// recordEmergency counts a failed step. Crossing the configured maximum
// suspends ticks until an operator clears the condition.
func (c *Coordinator) recordEmergency(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.emergencies++
	if c.metricsRegistry != nil {
		c.metricsRegistry.SwarmEmergencyInterventions.Inc()
	}

	if c.emergencies > c.config.MaxEmergencyInterventions {
		c.operatorRequired = true
		c.logger.Error("Emergency intervention limit exceeded, suspending ticks until operator clears",
			logging.Error(err),
			logging.Count(c.emergencies))
		return
	}

	c.logger.Warn("Step failed at tick boundary",
		logging.Error(err),
		logging.Count(c.emergencies))
}

// RequiresOperator reports whether ticks are suspended pending operator
// intervention
func (c *Coordinator) RequiresOperator() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.operatorRequired
}

// ClearEmergency resets the emergency counter and resumes ticking.
// Explicit operator action, never called by the core itself.
func (c *Coordinator) ClearEmergency() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.emergencies = 0
	c.operatorRequired = false
	if err := c.wrapper.Breaker().Reset(stepOperation); err != nil {
		c.logger.Warn("Breaker reset failed", logging.Error(err))
	}
	c.logger.Info("Emergency condition cleared by operator")
}

// AddPeer registers a newly discovered peer, creating a default-trust
// record for it. Membership itself comes from an external provider.
func (c *Coordinator) AddPeer(identity NodeIdentity) {
	c.roster.Add(identity)
	c.ledger.EnsureKnown(identity.ID)

	if c.metricsRegistry != nil {
		c.metricsRegistry.SwarmPeersTotal.Set(float64(c.roster.Len()))
	}
	c.logger.Debug("Peer added", logging.PeerID(identity.ID))
}

// RemovePeer drops a peer from the roster. Its trust record is kept;
// reputations survive temporary departures.
func (c *Coordinator) RemovePeer(peerID string) {
	c.roster.Remove(peerID)

	if c.metricsRegistry != nil {
		c.metricsRegistry.SwarmPeersTotal.Set(float64(c.roster.Len()))
	}
	c.logger.Debug("Peer removed", logging.PeerID(peerID))
}

// SetRole moves this node into or out of a passive role. Observer and
// Dreamer sit outside the election protocol and are only ever entered
// or left through explicit configuration.
func (c *Coordinator) SetRole(role Role) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.role == RoleLeader && role != RoleLeader {
		c.closeTermLocked(time.Now(), "reassigned by configuration")
	}
	c.transitionLocked(role, "configuration")
}

// CurrentRole returns this node's role. Side-effect free snapshot.
func (c *Coordinator) CurrentRole() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// CurrentTerm returns this node's view of the current term. Before any
// leader is known the genesis term zero is returned.
func (c *Coordinator) CurrentTerm() Term {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.term == nil {
		return Term{ID: 0}
	}
	return c.term.Clone()
}

// TrustOf returns the current trust scalar for a peer
func (c *Coordinator) TrustOf(peerID string) float64 {
	return c.ledger.TrustOf(peerID)
}

// TrustRecord returns a snapshot of a peer's full trust record
func (c *Coordinator) TrustRecord(peerID string) (trust.Record, bool) {
	return c.ledger.Snapshot(peerID)
}

// HealthOf returns the advisory health snapshot for a registered
// operation
func (c *Coordinator) HealthOf(operationID string) (execution.HealthSnapshot, error) {
	return c.wrapper.HealthOf(operationID)
}

// AppendAchievement records a notable event on the active term.
// Leader only.
func (c *Coordinator) AppendAchievement(note string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.role != RoleLeader || c.term == nil {
		return ErrNotLeader
	}
	c.term.Achievements = append(c.term.Achievements, Achievement{At: time.Now(), Note: note})
	return nil
}

// Propose submits a proposal to the decision engine, filling unset
// fields from this node's configuration and term view. A node awaiting
// operator intervention refuses new proposals.
func (c *Coordinator) Propose(p decision.Proposal) (string, error) {
	c.mu.Lock()
	if c.operatorRequired {
		c.mu.Unlock()
		return "", ErrOperatorRequired
	}
	if p.Proposer == "" {
		p.Proposer = c.identity.ID
	}
	if p.TargetTerm == 0 {
		p.TargetTerm = c.currentTermIDLocked()
	}
	c.mu.Unlock()

	if p.Threshold == 0 {
		p.Threshold = c.config.DecisionThreshold
	}
	if p.Deadline.IsZero() {
		p.Deadline = time.Now().Add(c.config.DecisionDeadline)
	}
	return c.decisions.Propose(p)
}

// ReadinessCheck returns a health check for this node, suitable for
// registration with a health.HealthChecker. It maps the step
// operation's advisory health score onto the standard bands and flags
// an operator-required condition as critical.
func (c *Coordinator) ReadinessCheck() health.CheckFunc {
	return func() health.Check {
		started := time.Now()

		check := health.Check{
			Name:        "swarm",
			Status:      health.StatusHealthy,
			LastChecked: started,
		}

		if c.RequiresOperator() {
			check.Status = health.StatusCritical
			check.Message = "operator intervention required"
			check.Duration = time.Since(started)
			return check
		}

		snapshot, err := c.wrapper.HealthOf(stepOperation)
		if err != nil {
			check.Status = health.StatusUnhealthy
			check.Message = err.Error()
			check.Duration = time.Since(started)
			return check
		}

		check.Status = health.StatusForScore(snapshot.Score)
		check.Details = map[string]any{
			"role":  c.CurrentRole().String(),
			"term":  c.CurrentTerm().ID,
			"score": snapshot.Score,
			"peers": c.roster.Len(),
		}
		check.Duration = time.Since(started)
		return check
	}
}

// Close releases subscriptions and stops background work. The bus is
// shared and left running for the caller to shut down.
func (c *Coordinator) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.nominationSub.Unsubscribe()
		c.voteSub.Unsubscribe()
		c.leadershipSub.Unsubscribe()
		c.wrapper.Stop()
	})
}

// transitionLocked switches roles and updates the role gauge. Must be
// called with the lock held.
func (c *Coordinator) transitionLocked(role Role, reason string) {
	if c.role == role {
		return
	}

	from := c.role
	c.role = role

	if role != RoleCandidate {
		c.campaign = nil
		c.votesForSelf = make(map[string]ElectionVote)
	}
	c.stepDownPending = false

	if c.metricsRegistry != nil {
		c.metricsRegistry.SetSwarmRole(role.String())
	}
	c.logger.Info("Role transition",
		logging.String("from", from.String()),
		logging.String("to", role.String()),
		logging.String("reason", reason))
}
