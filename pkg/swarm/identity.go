package swarm

import "github.com/google/uuid"

// NodeIdentity identifies one swarm member. Immutable after creation;
// traits are descriptive only and never affect protocol decisions.
type NodeIdentity struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Traits map[string]string `json:"traits,omitempty"`
}

// NewNodeIdentity creates an identity with a generated unique ID
func NewNodeIdentity(name string, traits map[string]string) NodeIdentity {
	copied := make(map[string]string, len(traits))
	for k, v := range traits {
		copied[k] = v
	}
	return NodeIdentity{
		ID:     uuid.New().String(),
		Name:   name,
		Traits: copied,
	}
}
