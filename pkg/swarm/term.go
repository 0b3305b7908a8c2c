package swarm

import "time"

// Achievement is one notable event recorded by the leader during a term
type Achievement struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

// Term is one bounded leadership epoch. Created on leader transition,
// mutated by the leader while active, immutable once superseded.
// Completed terms are appended to the journal.
type Term struct {
	ID           uint64        `json:"id"`
	LeaderID     string        `json:"leader_id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Theme        string        `json:"theme"`
	Achievements []Achievement `json:"achievements,omitempty"`
	HarmonyIndex float64       `json:"harmony_index"`
}

// Expired reports whether the term's nominal duration has elapsed
func (t *Term) Expired(now time.Time) bool {
	return !now.Before(t.StartedAt.Add(t.Duration))
}

// Clone returns a defensive copy
func (t *Term) Clone() Term {
	copied := *t
	copied.Achievements = append([]Achievement(nil), t.Achievements...)
	return copied
}

// termThemes rotate per term ID so every node derives the same theme
// for the same term without coordination.
var termThemes = []string{
	"exploration",
	"consolidation",
	"harmony",
	"renewal",
}

func themeForTerm(id uint64) string {
	return termThemes[id%uint64(len(termThemes))]
}
