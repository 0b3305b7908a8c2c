package swarm

import (
	"errors"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/decision"
	"github.com/dd0wney/cluso-swarm/pkg/journal"
	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/pubsub"
	"github.com/dd0wney/cluso-swarm/pkg/trust"
)

// stepLeaderLocked checks term expiry first, then governs. Rotation is
// unconditional at duration elapse and never blocks on peer
// acknowledgement; a partitioned leader completes its term locally and
// steps down on schedule. Must be called with the lock held.
func (c *Coordinator) stepLeaderLocked(now time.Time) {
	if c.term == nil {
		c.transitionLocked(RoleFollower, "leader without term")
		return
	}

	if c.stepDownPending {
		c.closeTermLocked(now, "lost split-leader reconciliation")
		if c.metricsRegistry != nil {
			c.metricsRegistry.RecordElection("stepped_down", 0)
		}
		c.transitionLocked(RoleFollower, "split-leader reconciliation")
		return
	}

	if c.term.Expired(now) {
		c.closeTermLocked(now, "term completed on schedule")
		if c.metricsRegistry != nil {
			c.metricsRegistry.RecordElection("stepped_down", 0)
		}
		c.transitionLocked(RoleFollower, "graceful rotation")
		return
	}

	c.governLocked(now)
}

// governLocked performs one round of leadership duties: refresh the
// harmony index, reassert the claim, evaluate pending decisions, and
// decay stale reputations. Must be called with the lock held.
func (c *Coordinator) governLocked(now time.Time) {
	c.term.HarmonyIndex = c.harmonyIndexLocked()
	if c.metricsRegistry != nil {
		c.metricsRegistry.SwarmHarmonyIndex.Set(c.term.HarmonyIndex)
	}

	c.bus.Publish(pubsub.TopicLeadership, LeadershipClaim{
		LeaderID:      c.identity.ID,
		TermID:        c.term.ID,
		StartedAt:     c.term.StartedAt,
		Duration:      c.term.Duration,
		Theme:         c.term.Theme,
		Qualification: c.leaderQual,
	})

	for _, id := range c.decisions.PendingIDs() {
		if _, err := c.decisions.Evaluate(id, now); err != nil {
			if errors.Is(err, decision.ErrConsensusNotReached) {
				// Requires a fresh proposal, never auto-retried
				c.logger.Info("Decision expired without consensus", logging.DecisionID(id))
				continue
			}
			c.logger.Warn("Decision evaluation failed",
				logging.DecisionID(id),
				logging.Error(err))
		}
	}

	c.ledger.Decay()
}

// closeTermLocked seals the active term: closing achievement, final
// harmony index, journal entry. The term is immutable once written.
// Must be called with the lock held.
func (c *Coordinator) closeTermLocked(now time.Time, closing string) {
	if c.term == nil || c.term.LeaderID != c.identity.ID {
		return
	}

	c.term.Achievements = append(c.term.Achievements, Achievement{At: now, Note: closing})
	c.term.HarmonyIndex = c.harmonyIndexLocked()
	completed := c.term.Clone()
	c.log.Append(journal.KindTerm, completed)

	// Completing a term is itself a trust signal about the leader
	c.ledger.Observe(c.identity.ID, trust.Signal{Kind: trust.SignalTermCompleted, Value: completed.HarmonyIndex})

	c.logger.Info("Term closed",
		logging.TermID(completed.ID),
		logging.String("closing", closing),
		logging.Score(completed.HarmonyIndex),
		logging.Count(len(completed.Achievements)))
}

// stepObserverLocked watches patterns without participating. Observers
// never vote and never campaign. Must be called with the lock held.
func (c *Coordinator) stepObserverLocked() {
	c.logger.Debug("Observed swarm state",
		logging.Count(c.roster.Len()),
		logging.TermID(c.currentTermIDLocked()),
		logging.Int("nominations", len(c.observedNominations)))
}

// stepDreamerLocked reflects inward, nudging only the node's own
// creative signal. No external effect. Must be called with the lock
// held.
func (c *Coordinator) stepDreamerLocked() {
	record, ok := c.ledger.Snapshot(c.identity.ID)
	if !ok {
		return
	}
	c.ledger.Observe(c.identity.ID, trust.Signal{
		Kind:  trust.SignalCreativeContribution,
		Value: record.Creativity + 0.05,
	})
}

// harmonyIndexLocked computes the mean harmony across all known peers.
// Must be called with the lock held.
func (c *Coordinator) harmonyIndexLocked() float64 {
	peers := c.ledger.Peers()
	if len(peers) == 0 {
		return trust.NeutralScore
	}

	sum := 0.0
	for _, peerID := range peers {
		record, ok := c.ledger.Snapshot(peerID)
		if !ok {
			continue
		}
		sum += record.Harmony
	}
	return sum / float64(len(peers))
}
