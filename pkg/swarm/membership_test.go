package swarm

import "testing"

func TestRosterAddRemove(t *testing.T) {
	roster := NewRoster()

	a := NewNodeIdentity("a", nil)
	b := NewNodeIdentity("b", nil)

	roster.Add(a)
	roster.Add(b)
	if roster.Len() != 2 {
		t.Fatalf("expected 2 peers, got %d", roster.Len())
	}

	// Re-adding keeps the existing entry
	if err := roster.SetRole(a.ID, RoleLeader); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	roster.Add(a)
	role, err := roster.RoleOf(a.ID)
	if err != nil {
		t.Fatalf("RoleOf failed: %v", err)
	}
	if role != RoleLeader {
		t.Errorf("re-adding a peer should keep its role, got %s", role)
	}

	roster.Remove(b.ID)
	if roster.Len() != 1 {
		t.Errorf("expected 1 peer after removal, got %d", roster.Len())
	}
	if _, err := roster.RoleOf(b.ID); err != ErrUnknownPeer {
		t.Errorf("expected ErrUnknownPeer, got %v", err)
	}
}

func TestRosterQuorumSize(t *testing.T) {
	roster := NewRoster()

	ids := make([]NodeIdentity, 4)
	for i := range ids {
		ids[i] = NewNodeIdentity("node", nil)
		roster.Add(ids[i])
	}

	// 4 voting peers: majority is 3
	if got := roster.QuorumSize(); got != 3 {
		t.Errorf("expected quorum 3, got %d", got)
	}

	// Passive roles do not count toward quorum
	if err := roster.SetRole(ids[0].ID, RoleObserver); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if err := roster.SetRole(ids[1].ID, RoleDreamer); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if got := roster.QuorumSize(); got != 2 {
		t.Errorf("expected quorum 2 with two passive peers, got %d", got)
	}
}

func TestRosterPeersDefensiveCopy(t *testing.T) {
	roster := NewRoster()
	roster.Add(NewNodeIdentity("a", map[string]string{"zone": "east"}))

	peers := roster.Peers()
	peers[0].Identity.Traits["zone"] = "mutated"
	peers[0].Role = RoleLeader

	fresh := roster.Peers()
	if fresh[0].Identity.Traits["zone"] != "east" {
		t.Error("mutating a returned snapshot leaked into the roster")
	}
	if fresh[0].Role != RoleFollower {
		t.Error("mutating a returned snapshot changed the stored role")
	}
}

func TestRoleStrings(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleFollower, "follower"},
		{RoleCandidate, "candidate"},
		{RoleLeader, "leader"},
		{RoleObserver, "observer"},
		{RoleDreamer, "dreamer"},
		{Role(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.role.String(); got != tt.want {
			t.Errorf("Role(%d).String() = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestPassiveRolesNeverVoteOrCampaign(t *testing.T) {
	for _, role := range []Role{RoleObserver, RoleDreamer} {
		if role.Voting() {
			t.Errorf("%s should not vote", role)
		}
		if role.Electable() {
			t.Errorf("%s should not be electable", role)
		}
	}
	if !RoleFollower.Voting() || !RoleFollower.Electable() {
		t.Error("follower should vote and be electable")
	}
	if RoleLeader.Electable() {
		t.Error("a sitting leader does not campaign")
	}
}
