package decision

import "errors"

var (
	// ErrInvalidProposal is returned for a threshold outside (0,1] or a
	// deadline already in the past. Caller error, never retried.
	ErrInvalidProposal = errors.New("invalid proposal")
	// ErrUnknownDecision is returned when voting on a decision that does
	// not exist or is no longer pending. Caller error, never retried.
	ErrUnknownDecision = errors.New("unknown or terminal decision")
	// ErrConsensusNotReached is reported when a decision times out
	// without reaching its threshold. Requires a fresh proposal; the
	// engine never auto-retries.
	ErrConsensusNotReached = errors.New("consensus not reached before deadline")
)
