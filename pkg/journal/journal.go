// Package journal is the ordered, immutable, append-only log of terminal
// decisions and completed terms. External collaborators consume it for
// persistence and audit; the coordination core only ever appends.
package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what an entry records
type Kind string

const (
	KindDecision Kind = "decision"
	KindTerm     Kind = "term"
)

// Entry is a single journal record. Immutable once appended.
type Entry struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Filter represents filtering criteria for journal reads
type Filter struct {
	Kind      Kind // empty = all kinds
	SinceSeq  uint64
	StartTime *time.Time
	EndTime   *time.Time
}

// Journal is an in-memory append-only log
type Journal struct {
	entries []Entry
	nextSeq uint64
	mu      sync.RWMutex
}

// New creates an empty journal
func New() *Journal {
	return &Journal{
		entries: make([]Entry, 0, 64),
	}
}

// Append records a new entry and returns it with its assigned sequence
// number and ID
func (j *Journal) Append(kind Kind, payload any) Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextSeq++
	entry := Entry{
		ID:        uuid.New().String(),
		Seq:       j.nextSeq,
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	j.entries = append(j.entries, entry)

	return entry
}

// Entries retrieves journal entries with optional filtering, in append order
func (j *Journal) Entries(filter *Filter) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	result := make([]Entry, 0, len(j.entries))
	for _, entry := range j.entries {
		if filter != nil && !matches(filter, entry) {
			continue
		}
		result = append(result, entry)
	}

	return result
}

// Len returns the number of appended entries
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// LastSeq returns the highest assigned sequence number
func (j *Journal) LastSeq() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.nextSeq
}

func matches(filter *Filter, entry Entry) bool {
	if filter.Kind != "" && entry.Kind != filter.Kind {
		return false
	}
	if entry.Seq <= filter.SinceSeq {
		return false
	}
	if filter.StartTime != nil && entry.Timestamp.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && entry.Timestamp.After(*filter.EndTime) {
		return false
	}
	return true
}
