package swarm

import (
	"math/rand"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/pubsub"
	"github.com/dd0wney/cluso-swarm/pkg/trust"
)

// drainInboxLocked consumes every message queued on the bus since the
// last tick. Peer dispatch is fire-and-forget, so this never blocks.
// Must be called with the lock held.
func (c *Coordinator) drainInboxLocked() {
	for {
		msg, ok := c.nominationSub.TryRecv()
		if !ok {
			break
		}
		nomination, ok := msg.(Nomination)
		if !ok || nomination.CandidateID == c.identity.ID {
			continue
		}
		c.roster.Touch(nomination.CandidateID)
		c.ledger.Observe(nomination.CandidateID, trust.Signal{Kind: trust.SignalHeartbeat, Value: 1})
		c.observedNominations = append(c.observedNominations, nomination)
	}

	for {
		msg, ok := c.voteSub.TryRecv()
		if !ok {
			break
		}
		vote, ok := msg.(ElectionVote)
		if !ok || vote.VoterID == c.identity.ID {
			continue
		}
		c.roster.Touch(vote.VoterID)
		c.ledger.Observe(vote.VoterID, trust.Signal{Kind: trust.SignalVoteCast, Value: 1})

		// Only votes for our own active campaign matter here; a later
		// vote from the same voter supersedes the earlier one
		if c.role == RoleCandidate && c.campaign != nil &&
			vote.CandidateID == c.identity.ID && vote.TargetTerm == c.campaign.TargetTerm {
			c.votesForSelf[vote.VoterID] = vote
		}
	}

	for {
		msg, ok := c.leadershipSub.TryRecv()
		if !ok {
			break
		}
		claim, ok := msg.(LeadershipClaim)
		if !ok || claim.LeaderID == c.identity.ID {
			continue
		}
		c.roster.Touch(claim.LeaderID)
		c.ledger.Observe(claim.LeaderID, trust.Signal{Kind: trust.SignalHeartbeat, Value: 1})
		c.handleClaimLocked(claim)
	}
}

// stepFollowerLocked listens for nominations, votes for the best
// qualified candidate, then maybe starts its own campaign.
// Must be called with the lock held.
func (c *Coordinator) stepFollowerLocked(now time.Time) {
	c.voteOnNominationsLocked(now)
	c.maybeNominateLocked(now)
}

// voteOnNominationsLocked casts at most one vote for the next term:
// highest qualification score wins, ties broken by lowest node ID so
// all honest peers converge without relying on message ordering.
// Must be called with the lock held.
func (c *Coordinator) voteOnNominationsLocked(now time.Time) {
	target := c.currentTermIDLocked() + 1
	if _, voted := c.votedFor[target]; voted {
		return
	}

	best, found := bestNomination(c.observedNominations, target, now)
	if !found {
		return
	}

	vote := ElectionVote{
		VoterID:     c.identity.ID,
		CandidateID: best.CandidateID,
		TargetTerm:  target,
		Confidence:  c.ledger.TrustOf(best.CandidateID),
	}
	c.votedFor[target] = best.CandidateID
	c.bus.Publish(pubsub.TopicVotes, vote)

	c.logger.Debug("Voted in election",
		logging.PeerID(best.CandidateID),
		logging.TermID(target),
		logging.Score(vote.Confidence))
}

// maybeNominateLocked starts a campaign when the probabilistic gate and
// the qualification check both pass. The gate prevents nomination spam;
// the qualification floor prevents unqualified candidacies. A node that
// already voted for the target term never nominates itself: the published
// vote cannot be superseded.
// Must be called with the lock held.
func (c *Coordinator) maybeNominateLocked(now time.Time) {
	if !c.role.Electable() {
		return
	}
	if _, voted := c.votedFor[c.currentTermIDLocked()+1]; voted {
		return
	}
	if rand.Float64() >= c.config.NominationProbability {
		return
	}
	qual, ok := c.qualificationLocked()
	if !ok {
		return
	}
	c.becomeCandidateLocked(now, qual)
}

// qualificationLocked returns this node's qualification snapshot and
// whether it clears the configured thresholds. Must be called with the
// lock held.
func (c *Coordinator) qualificationLocked() (Qualification, bool) {
	record, ok := c.ledger.Snapshot(c.identity.ID)
	if !ok {
		return Qualification{}, false
	}
	qual := Qualification{
		Trust:      record.Overall,
		Creativity: record.Creativity,
		Harmony:    record.Harmony,
	}
	qualified := qual.Trust >= c.config.MinTrustToLead &&
		qual.Creativity >= c.config.MinCreativityToLead &&
		qual.Harmony >= c.config.MinHarmonyToLead
	return qual, qualified
}

// becomeCandidateLocked broadcasts a nomination and arms a randomized
// election timeout. Base plus jitter avoids synchronized split votes.
// Must be called with the lock held.
func (c *Coordinator) becomeCandidateLocked(now time.Time, qual Qualification) {
	target := c.currentTermIDLocked() + 1

	deadline := now.Add(c.config.ElectionTimeoutBase)
	if c.config.ElectionTimeoutJitter > 0 {
		deadline = deadline.Add(time.Duration(rand.Int63n(int64(c.config.ElectionTimeoutJitter))))
	}

	nomination := Nomination{
		CandidateID:   c.identity.ID,
		TargetTerm:    target,
		Qualification: qual,
		Deadline:      deadline,
	}
	c.campaign = &nomination
	c.electionStart = now
	c.votesForSelf = map[string]ElectionVote{
		c.identity.ID: {
			VoterID:     c.identity.ID,
			CandidateID: c.identity.ID,
			TargetTerm:  target,
			Confidence:  1.0,
		},
	}
	c.votedFor[target] = c.identity.ID

	c.transitionLocked(RoleCandidate, "nominated self")
	c.bus.Publish(pubsub.TopicNominations, nomination)

	c.logger.Info("Campaigning for leadership",
		logging.TermID(target),
		logging.Score(qual.Score()),
		logging.Duration("timeout", deadline.Sub(now)))
}

// stepCandidateLocked tallies votes for the active campaign. Quorum
// wins immediately; a better-qualified rival forces a concession; a
// timeout with neither self-promotes, favoring liveness over strict
// safety. Must be called with the lock held.
func (c *Coordinator) stepCandidateLocked(now time.Time) {
	if c.campaign == nil {
		c.transitionLocked(RoleFollower, "no active campaign")
		return
	}
	target := c.campaign.TargetTerm

	if rival, found := bestNomination(c.observedNominations, target, now); found {
		if outranks(rival.Qualification, rival.CandidateID, c.campaign.Qualification, c.identity.ID) {
			if c.metricsRegistry != nil {
				c.metricsRegistry.RecordElection("conceded", now.Sub(c.electionStart))
			}
			c.transitionLocked(RoleFollower, "conceded to better-qualified rival")
			return
		}
	}

	if c.quorumReachedLocked() {
		c.becomeLeaderLocked(now, "won")
		return
	}

	if now.After(c.campaign.Deadline) {
		// No quorum and no rival discovered before timeout
		c.becomeLeaderLocked(now, "self_promoted")
	}
}

// quorumReachedLocked computes the trust-weighted confidence fraction
// this candidate holds among known voting peers. Must be called with
// the lock held.
func (c *Coordinator) quorumReachedLocked() bool {
	totalWeight := 0.0
	for _, voterID := range c.roster.VotingIDs() {
		totalWeight += c.ledger.TrustOf(voterID)
	}
	if totalWeight == 0 {
		return false
	}

	wonWeight := 0.0
	for voterID, vote := range c.votesForSelf {
		wonWeight += c.ledger.TrustOf(voterID) * clampConfidence(vote.Confidence)
	}

	return wonWeight/totalWeight >= c.config.ElectionQuorumThreshold
}

// becomeLeaderLocked opens a new term with this node as leader and
// broadcasts the claim. Voters who backed the winner get credit in the
// trust ledger. Must be called with the lock held.
func (c *Coordinator) becomeLeaderLocked(now time.Time, how string) {
	target := c.campaign.TargetTerm
	qual := c.campaign.Qualification

	for voterID := range c.votesForSelf {
		if voterID == c.identity.ID {
			continue
		}
		c.ledger.RecordVoteOutcome(voterID, true, true)
	}

	c.term = &Term{
		ID:           target,
		LeaderID:     c.identity.ID,
		StartedAt:    now,
		Duration:     c.config.TermDuration,
		Theme:        themeForTerm(target),
		HarmonyIndex: c.harmonyIndexLocked(),
	}
	c.leaderQual = qual
	c.transitionLocked(RoleLeader, how)

	if c.metricsRegistry != nil {
		c.metricsRegistry.RecordElection(how, now.Sub(c.electionStart))
		c.metricsRegistry.SwarmTerm.Set(float64(target))
	}

	c.bus.Publish(pubsub.TopicLeadership, LeadershipClaim{
		LeaderID:      c.identity.ID,
		TermID:        target,
		StartedAt:     now,
		Duration:      c.config.TermDuration,
		Theme:         c.term.Theme,
		Qualification: qual,
	})

	c.logger.Info("Became leader",
		logging.TermID(target),
		logging.String("how", how),
		logging.String("theme", c.term.Theme))
}

// handleClaimLocked processes another node's leadership claim.
// Followers adopt newer terms so all local views converge within one
// rotation interval; a rival leader for the same term is reconciled by
// qualification score, higher node ID winning exact ties.
// Must be called with the lock held.
func (c *Coordinator) handleClaimLocked(claim LeadershipClaim) {
	current := c.currentTermIDLocked()

	if claim.TermID < current {
		return // stale claim
	}

	if claim.TermID == current && c.term != nil && c.term.LeaderID != claim.LeaderID {
		if c.role == RoleLeader {
			// Split leader: both nodes believe they lead this term.
			// Lower qualification steps down; exact ties go to the
			// higher node ID.
			if claimPrevails(claim.Qualification, claim.LeaderID, c.leaderQual, c.identity.ID) {
				c.stepDownPending = true
				c.logger.Warn("Rival leader outranks this node, stepping down next tick",
					logging.PeerID(claim.LeaderID),
					logging.TermID(claim.TermID))
			}
			return
		}
		// Follower with a conflicting view: believe the prevailing claim
		if !claimPrevails(claim.Qualification, claim.LeaderID, c.leaderQual, c.term.LeaderID) {
			return
		}
	}

	if c.role == RoleCandidate && claim.TermID >= c.campaignTargetLocked() {
		if c.metricsRegistry != nil {
			c.metricsRegistry.RecordElection("conceded", time.Since(c.electionStart))
		}
		c.transitionLocked(RoleFollower, "lost election to claimed leader")
	}
	if c.role == RoleLeader && claim.TermID > current {
		c.closeTermLocked(time.Now(), "superseded by newer term")
		c.transitionLocked(RoleFollower, "superseded by newer term")
	}

	c.term = &Term{
		ID:           claim.TermID,
		LeaderID:     claim.LeaderID,
		StartedAt:    claim.StartedAt,
		Duration:     claim.Duration,
		Theme:        claim.Theme,
		HarmonyIndex: c.harmonyIndexLocked(),
	}
	c.leaderQual = claim.Qualification
	if err := c.roster.SetRole(claim.LeaderID, RoleLeader); err != nil {
		// Leader not yet in roster; membership arrives from discovery
		c.logger.Debug("Claim from peer outside roster", logging.PeerID(claim.LeaderID))
	}

	if c.metricsRegistry != nil {
		c.metricsRegistry.SwarmTerm.Set(float64(claim.TermID))
	}
}

// currentTermIDLocked returns this node's view of the current term ID,
// zero before any term is known. Must be called with the lock held.
func (c *Coordinator) currentTermIDLocked() uint64 {
	if c.term == nil {
		return 0
	}
	return c.term.ID
}

// campaignTargetLocked returns the active campaign's target term, zero
// when no campaign is active. Must be called with the lock held.
func (c *Coordinator) campaignTargetLocked() uint64 {
	if c.campaign == nil {
		return 0
	}
	return c.campaign.TargetTerm
}

// bestNomination selects the winning nomination for a target term:
// highest qualification score, then lowest candidate ID.
func bestNomination(nominations []Nomination, target uint64, now time.Time) (Nomination, bool) {
	var best Nomination
	found := false
	for _, nomination := range nominations {
		if nomination.TargetTerm != target || now.After(nomination.Deadline) {
			continue
		}
		if !found || outranks(nomination.Qualification, nomination.CandidateID, best.Qualification, best.CandidateID) {
			best = nomination
			found = true
		}
	}
	return best, found
}

// outranks reports whether candidate a beats candidate b in an
// election: higher qualification score first, then lower node ID.
func outranks(aQual Qualification, aID string, bQual Qualification, bID string) bool {
	aScore, bScore := aQual.Score(), bQual.Score()
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

// claimPrevails reports whether a rival leadership claim beats the
// incumbent for the same term: higher qualification score first, exact
// ties to the higher node ID.
func claimPrevails(rivalQual Qualification, rivalID string, heldQual Qualification, heldID string) bool {
	rivalScore, heldScore := rivalQual.Score(), heldQual.Score()
	if rivalScore != heldScore {
		return rivalScore > heldScore
	}
	return rivalID > heldID
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
