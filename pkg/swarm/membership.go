package swarm

import (
	"sync"
	"time"
)

// PeerInfo is a roster entry: who a peer is, what it does, and when it
// was last heard from.
type PeerInfo struct {
	Identity NodeIdentity
	Role     Role
	LastSeen time.Time
}

// Roster tracks the locally known swarm members
//
// Concurrent Safety:
// 1. All public methods use RWMutex for thread-safe access
// 2. Read operations use RLock for concurrent reads
// 3. Iteration returns defensive copies, never internal maps
type Roster struct {
	peers map[string]*PeerInfo
	mu    sync.RWMutex
}

// NewRoster creates an empty roster
func NewRoster() *Roster {
	return &Roster{peers: make(map[string]*PeerInfo)}
}

// Add registers a peer, defaulting it to Follower. Re-adding an
// existing peer refreshes its last-seen time but keeps its role.
func (r *Roster) Add(identity NodeIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.peers[identity.ID]; ok {
		existing.LastSeen = time.Now()
		return
	}
	r.peers[identity.ID] = &PeerInfo{
		Identity: identity,
		Role:     RoleFollower,
		LastSeen: time.Now(),
	}
}

// Remove drops a peer from the roster
func (r *Roster) Remove(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, peerID)
}

// Touch refreshes a peer's last-seen time
func (r *Roster) Touch(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if peer, ok := r.peers[peerID]; ok {
		peer.LastSeen = time.Now()
	}
}

// SetRole updates a peer's known role
func (r *Roster) SetRole(peerID string, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	peer, ok := r.peers[peerID]
	if !ok {
		return ErrUnknownPeer
	}
	peer.Role = role
	return nil
}

// RoleOf returns a peer's known role
func (r *Roster) RoleOf(peerID string) (Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peer, ok := r.peers[peerID]
	if !ok {
		return RoleFollower, ErrUnknownPeer
	}
	return peer.Role, nil
}

// Peers returns a snapshot of all known peers
func (r *Roster) Peers() []PeerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]PeerInfo, 0, len(r.peers))
	for _, peer := range r.peers {
		copied := *peer
		copied.Identity.Traits = copyTraits(peer.Identity.Traits)
		peers = append(peers, copied)
	}
	return peers
}

// VotingIDs returns the IDs of peers in voting-eligible roles
func (r *Roster) VotingIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.peers))
	for id, peer := range r.peers {
		if peer.Role.Voting() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of known peers
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// QuorumSize returns the majority count of voting-eligible peers
func (r *Roster) QuorumSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	voting := 0
	for _, peer := range r.peers {
		if peer.Role.Voting() {
			voting++
		}
	}
	return voting/2 + 1
}

func copyTraits(traits map[string]string) map[string]string {
	if traits == nil {
		return nil
	}
	copied := make(map[string]string, len(traits))
	for k, v := range traits {
		copied[k] = v
	}
	return copied
}
