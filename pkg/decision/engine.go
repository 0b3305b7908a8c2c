package decision

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-swarm/pkg/journal"
	"github.com/dd0wney/cluso-swarm/pkg/logging"
	"github.com/dd0wney/cluso-swarm/pkg/pubsub"
)

// Propose registers a proposal as Pending and returns its ID
func (e *Engine) Propose(p Proposal) (string, error) {
	if p.Threshold <= 0 || p.Threshold > 1 {
		return "", fmt.Errorf("%w: threshold %v outside (0,1]", ErrInvalidProposal, p.Threshold)
	}
	if !p.Deadline.After(time.Now()) {
		return "", fmt.Errorf("%w: deadline already past", ErrInvalidProposal)
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Status = StatusPending
	p.Ballots = make(map[string]Ballot)

	e.mu.Lock()
	e.decisions[p.ID] = &p
	e.mu.Unlock()

	e.logger.Info("Proposal registered",
		logging.DecisionID(p.ID),
		logging.String("title", p.Title),
		logging.Float64("threshold", p.Threshold))

	return p.ID, nil
}

// CastVote records or replaces the caller's ballot on a pending decision.
// A voter's later ballot supersedes their earlier one.
func (e *Engine) CastVote(decisionID, voterID string, ballot Ballot) error {
	ballot.Conviction = clamp01(ballot.Conviction)

	e.mu.Lock()
	defer e.mu.Unlock()

	p, exists := e.decisions[decisionID]
	if !exists || p.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrUnknownDecision, decisionID)
	}

	p.Ballots[voterID] = ballot

	if e.metricsRegistry != nil {
		e.metricsRegistry.DecisionVotesTotal.Inc()
	}

	return nil
}

// Evaluate computes the trust-weighted approval of a decision and
// transitions it when a terminal condition is met. The deadline is
// checked first: quorum must be reached before it, so a ballot that
// lands late can never flip an expired decision to Approved.
//   - deadline already past: TimedOut (reported as ErrConsensusNotReached)
//   - weighted approval meets the threshold before the deadline: Approved
//   - every elector has voted and approval still falls short: Rejected
//
// Evaluating an already-terminal decision returns its status unchanged;
// no later vote or evaluation can alter a terminal outcome.
func (e *Engine) Evaluate(decisionID string, now time.Time) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, exists := e.decisions[decisionID]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownDecision, decisionID)
	}
	if p.Status.Terminal() {
		return p.Status, nil
	}

	approval := e.weightedApprovalLocked(p)

	switch {
	case now.After(p.Deadline):
		e.finalizeLocked(p, StatusTimedOut, approval, now)
		return StatusTimedOut, ErrConsensusNotReached

	case approval >= p.Threshold:
		e.finalizeLocked(p, StatusApproved, approval, now)
		return StatusApproved, nil

	case e.electorateCompleteLocked(p):
		e.finalizeLocked(p, StatusRejected, approval, now)
		return StatusRejected, nil

	default:
		return StatusPending, nil
	}
}

// Decision returns a snapshot copy of a decision, retained after
// termination for audit
func (e *Engine) Decision(decisionID string) (Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, exists := e.decisions[decisionID]
	if !exists {
		return Proposal{}, fmt.Errorf("%w: %s", ErrUnknownDecision, decisionID)
	}

	return copyProposal(p), nil
}

// PendingIDs returns the IDs of all decisions still open for voting
func (e *Engine) PendingIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0)
	for id, p := range e.decisions {
		if !p.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// weightedApprovalLocked computes approve-weight over total ballot
// weight, each ballot weighted by conviction times the voter's trust
// scalar. Must be called with the lock held.
func (e *Engine) weightedApprovalLocked(p *Proposal) float64 {
	approveWeight := 0.0
	totalWeight := 0.0

	for voterID, ballot := range p.Ballots {
		weight := ballot.Conviction * e.ledger.TrustOf(voterID)
		totalWeight += weight
		if ballot.Choice == ChoiceApprove {
			approveWeight += weight
		}
	}

	if totalWeight == 0 {
		return 0
	}
	return approveWeight / totalWeight
}

// electorateCompleteLocked reports whether every eligible voter has cast
// a ballot. Open electorates (empty list) never complete early. Must be
// called with the lock held.
func (e *Engine) electorateCompleteLocked(p *Proposal) bool {
	if len(p.Electorate) == 0 {
		return false
	}
	for _, voterID := range p.Electorate {
		if _, voted := p.Ballots[voterID]; !voted {
			return false
		}
	}
	return true
}

// finalizeLocked transitions a decision to a terminal status, updates
// every voter's trust record by agreement with the outcome, and emits
// the journal entry and bus event. Must be called with the lock held.
func (e *Engine) finalizeLocked(p *Proposal, status Status, approval float64, now time.Time) {
	p.Status = status
	p.FinalApproval = approval
	p.DecidedAt = now

	// Every evaluated vote nudges the voter's agreement statistics
	approved := status == StatusApproved
	for voterID, ballot := range p.Ballots {
		agreed := (ballot.Choice == ChoiceApprove) == approved
		if ballot.Choice == ChoiceAbstain {
			agreed = true // abstention never counts against a voter
		}
		e.ledger.RecordVoteOutcome(voterID, agreed, ballot.Choice == ChoiceApprove)
	}

	outcome := Outcome{
		DecisionID: p.ID,
		Title:      p.Title,
		Status:     status,
		Approval:   approval,
		Threshold:  p.Threshold,
		TargetTerm: p.TargetTerm,
		DecidedAt:  now,
	}

	if e.log != nil {
		e.log.Append(journal.KindDecision, outcome)
	}
	if e.bus != nil {
		e.bus.Publish(pubsub.TopicDecisions, outcome)
	}
	if e.metricsRegistry != nil {
		e.metricsRegistry.RecordDecision(string(status), approval)
	}

	e.logger.Info("Decision finalized",
		logging.DecisionID(p.ID),
		logging.String("status", string(status)),
		logging.Float64("approval", approval),
		logging.Float64("threshold", p.Threshold))
}

func copyProposal(p *Proposal) Proposal {
	snapshot := *p
	snapshot.Ballots = make(map[string]Ballot, len(p.Ballots))
	for voterID, ballot := range p.Ballots {
		snapshot.Ballots[voterID] = ballot
	}
	snapshot.Electorate = append([]string(nil), p.Electorate...)
	return snapshot
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
