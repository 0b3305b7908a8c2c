package swarm

// Role represents a node's current position in the coordination protocol
type Role int

const (
	// RoleFollower is the default and return state; followers observe
	// nominations and vote.
	RoleFollower Role = iota
	// RoleCandidate is a node campaigning for the next term
	RoleCandidate
	// RoleLeader is the single authoritative node for the current term
	RoleLeader
	// RoleObserver is passive; never votes, never campaigns
	RoleObserver
	// RoleDreamer is passive and inward-facing; adjusts only its own
	// harmony signals.
	RoleDreamer
)

// String returns the string representation of a Role
func (r Role) String() string {
	switch r {
	case RoleFollower:
		return "follower"
	case RoleCandidate:
		return "candidate"
	case RoleLeader:
		return "leader"
	case RoleObserver:
		return "observer"
	case RoleDreamer:
		return "dreamer"
	default:
		return "unknown"
	}
}

// Voting reports whether a role participates in elections and decisions
func (r Role) Voting() bool {
	switch r {
	case RoleFollower, RoleCandidate, RoleLeader:
		return true
	default:
		return false
	}
}

// Electable reports whether a role may campaign for leadership
func (r Role) Electable() bool {
	return r == RoleFollower || r == RoleCandidate
}
