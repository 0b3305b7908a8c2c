package swarm

import "errors"

var (
	// ErrInvalidNodeName indicates a missing node name
	ErrInvalidNodeName = errors.New("node name must not be empty")

	// ErrInvalidTickInterval indicates a non-positive tick interval
	ErrInvalidTickInterval = errors.New("tick interval must be positive")

	// ErrInvalidTermDuration indicates a term shorter than one tick
	ErrInvalidTermDuration = errors.New("term duration must exceed the tick interval")

	// ErrInvalidElectionTimeout indicates a non-positive election timeout base
	ErrInvalidElectionTimeout = errors.New("election timeout base must be positive")

	// ErrInvalidNominationProbability indicates a probability outside [0,1]
	ErrInvalidNominationProbability = errors.New("nomination probability must be in [0,1]")

	// ErrInvalidQuorumThreshold indicates an election quorum threshold outside (0,1]
	ErrInvalidQuorumThreshold = errors.New("election quorum threshold must be in (0,1]")

	// ErrInvalidQualificationThreshold indicates a qualification floor outside [0,1]
	ErrInvalidQualificationThreshold = errors.New("qualification thresholds must be in [0,1]")

	// ErrInvalidSweepConfig indicates a non-positive sweep interval or
	// grace period
	ErrInvalidSweepConfig = errors.New("sweep interval and grace period must be positive")

	// ErrNotLeader is returned by leader-only operations
	ErrNotLeader = errors.New("node is not the current leader")

	// ErrOperatorRequired indicates too many emergency interventions;
	// ticks are suspended until an operator clears the condition
	ErrOperatorRequired = errors.New("operator intervention required")

	// ErrUnknownPeer indicates a peer absent from the roster
	ErrUnknownPeer = errors.New("unknown peer")
)
