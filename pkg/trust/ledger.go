package trust

import (
	"math"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/logging"
)

// Observe folds one new signal about a peer into its record using an
// exponential moving average. A record is created at NeutralScore on
// first observation.
func (l *Ledger) Observe(peerID string, signal Signal) {
	if math.IsNaN(signal.Value) || math.IsInf(signal.Value, 0) {
		l.logger.Warn("Dropping non-finite trust signal",
			logging.PeerID(peerID),
			logging.String("kind", signal.Kind.String()))
		return
	}
	value := clamp01(signal.Value)

	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.ensureRecordLocked(peerID)
	alpha := l.config.SmoothingAlpha

	switch signal.Kind {
	case SignalVoteCast:
		record.Consistency = fold(record.Consistency, value, alpha)
	case SignalHeartbeat:
		record.Responsiveness = fold(record.Responsiveness, value, alpha)
	case SignalTermCompleted:
		record.Harmony = fold(record.Harmony, value, alpha)
	case SignalCreativeContribution:
		record.Creativity = fold(record.Creativity, value, alpha)
	}

	record.Overall = overallScore(record)
	record.LastObserved = time.Now()

	if l.metricsRegistry != nil {
		l.metricsRegistry.TrustObservationsTotal.Inc()
		l.metricsRegistry.TrustMeanScore.Set(l.meanScoreLocked())
	}
}

// TrustOf returns the current overall trust scalar for a peer.
// Unseen peers default to NeutralScore.
func (l *Ledger) TrustOf(peerID string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	record, exists := l.records[peerID]
	if !exists {
		return NeutralScore
	}
	return record.Overall
}

// Decay pulls every score toward NeutralScore, preventing permanently
// stale high or low reputations absent fresh signals.
func (l *Ledger) Decay() {
	l.mu.Lock()
	defer l.mu.Unlock()

	rate := l.config.DecayRate
	for _, record := range l.records {
		record.Consistency = decayToward(record.Consistency, rate)
		record.Creativity = decayToward(record.Creativity, rate)
		record.Harmony = decayToward(record.Harmony, rate)
		record.Responsiveness = decayToward(record.Responsiveness, rate)
		record.Overall = overallScore(record)
	}

	if l.metricsRegistry != nil {
		l.metricsRegistry.TrustDecayRunsTotal.Inc()
		l.metricsRegistry.TrustMeanScore.Set(l.meanScoreLocked())
	}
}

// RecordVoteOutcome updates a voter's vote-history statistics after a
// decision reaches a terminal state, and nudges their consistency score
// by whether they agreed with the eventual outcome.
func (l *Ledger) RecordVoteOutcome(peerID string, agreedWithOutcome, supportedLeader bool) {
	l.mu.Lock()

	record := l.ensureRecordLocked(peerID)
	record.Participation++
	record.MajorityAgreementRate = foldRate(record.MajorityAgreementRate, agreedWithOutcome, record.Participation)
	record.LeadershipSupportRate = foldRate(record.LeadershipSupportRate, supportedLeader, record.Participation)

	l.mu.Unlock()

	agreement := 0.0
	if agreedWithOutcome {
		agreement = 1.0
	}
	l.Observe(peerID, Signal{Kind: SignalVoteCast, Value: agreement})
}

// Seed initializes a peer record from identity-provider scores. Used at
// construction time to seed the self record; observing later refines it.
func (l *Ledger) Seed(peerID string, scores SeedScores) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.ensureRecordLocked(peerID)
	record.Consistency = clamp01(scores.Consciousness)
	record.Creativity = clamp01(scores.Creativity)
	record.Harmony = clamp01(scores.Harmony)
	record.Overall = overallScore(record)
	record.LastObserved = time.Now()
}

// EnsureKnown creates a default-trust record for a newly discovered peer
func (l *Ledger) EnsureKnown(peerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureRecordLocked(peerID)
}

// Snapshot returns a defensive copy of a peer's record
func (l *Ledger) Snapshot(peerID string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	record, exists := l.records[peerID]
	if !exists {
		return Record{}, false
	}
	return *record, true
}

// Peers returns the IDs of all known peers
func (l *Ledger) Peers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	peers := make([]string, 0, len(l.records))
	for id := range l.records {
		peers = append(peers, id)
	}
	return peers
}

// Len returns the number of known peers
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// ensureRecordLocked returns the record for a peer, creating it at
// NeutralScore if absent. Must be called with the lock held.
func (l *Ledger) ensureRecordLocked(peerID string) *Record {
	record, exists := l.records[peerID]
	if !exists {
		record = &Record{
			PeerID:         peerID,
			Consistency:    NeutralScore,
			Creativity:     NeutralScore,
			Harmony:        NeutralScore,
			Responsiveness: NeutralScore,
			Overall:        NeutralScore,
			LastObserved:   time.Now(),
		}
		l.records[peerID] = record
	}
	return record
}

// meanScoreLocked computes the mean overall score. Must be called with
// the lock held.
func (l *Ledger) meanScoreLocked() float64 {
	if len(l.records) == 0 {
		return NeutralScore
	}
	sum := 0.0
	for _, record := range l.records {
		sum += record.Overall
	}
	return sum / float64(len(l.records))
}

// overallScore combines dimension scores into the single trust scalar
// used for vote weighting. Consistency dominates; creativity and
// responsiveness matter less for reliability.
func overallScore(r *Record) float64 {
	overall := 0.35*r.Consistency + 0.20*r.Creativity + 0.25*r.Harmony + 0.20*r.Responsiveness
	return clamp01(overall)
}

// fold applies one EMA step
func fold(current, value, alpha float64) float64 {
	return clamp01((1-alpha)*current + alpha*value)
}

// foldRate updates an incremental mean of a boolean rate
func foldRate(current float64, hit bool, n int) float64 {
	value := 0.0
	if hit {
		value = 1.0
	}
	return clamp01(current + (value-current)/float64(n))
}

// decayToward pulls a score toward NeutralScore by rate
func decayToward(current, rate float64) float64 {
	return clamp01(current + (NeutralScore-current)*rate)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
