package swarm

import "time"

// Qualification is a candidate's self-reported fitness snapshot, taken
// from its trust record at nomination time. Peers verify nothing here;
// misreporting erodes trust over subsequent terms instead.
type Qualification struct {
	Trust      float64 `json:"trust"`
	Creativity float64 `json:"creativity"`
	Harmony    float64 `json:"harmony"`
}

// Score collapses the snapshot into the single value used for
// tie-breaking between concurrent nominations.
func (q Qualification) Score() float64 {
	return 0.5*q.Trust + 0.25*q.Creativity + 0.25*q.Harmony
}

// Nomination announces a candidacy for a target term. Created on
// Follower to Candidate transition, consumed during the election
// window, discarded after.
type Nomination struct {
	CandidateID   string        `json:"candidate_id"`
	TargetTerm    uint64        `json:"target_term"`
	Qualification Qualification `json:"qualification"`
	Deadline      time.Time     `json:"deadline"`
}

// ElectionVote is one voter's confidence in a candidate for a target
// term. A later vote from the same voter for the same term supersedes
// the earlier one.
type ElectionVote struct {
	VoterID     string  `json:"voter_id"`
	CandidateID string  `json:"candidate_id"`
	TargetTerm  uint64  `json:"target_term"`
	Confidence  float64 `json:"confidence"`
}

// LeadershipClaim is broadcast by a node that considers itself leader,
// both on winning an election and periodically while governing.
// Followers adopt the claimed term; rival leaders use the qualification
// score to reconcile.
type LeadershipClaim struct {
	LeaderID      string        `json:"leader_id"`
	TermID        uint64        `json:"term_id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Theme         string        `json:"theme"`
	Qualification Qualification `json:"qualification"`
}
