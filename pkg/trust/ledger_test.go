package trust

import (
	"math"
	"testing"

	"github.com/dd0wney/cluso-swarm/pkg/logging"
)

func newTestLedger() *Ledger {
	l := NewLedger(DefaultConfig())
	l.SetLogger(logging.NewNopLogger())
	return l
}

func TestTrustOfUnseenPeer(t *testing.T) {
	ledger := newTestLedger()

	if got := ledger.TrustOf("stranger"); got != NeutralScore {
		t.Errorf("TrustOf(unseen) = %v, want %v", got, NeutralScore)
	}
}

func TestObserveCreatesRecord(t *testing.T) {
	ledger := newTestLedger()

	ledger.Observe("node-1", Signal{Kind: SignalVoteCast, Value: 1.0})

	record, exists := ledger.Snapshot("node-1")
	if !exists {
		t.Fatal("Expected record after first observation")
	}
	if record.Consistency <= NeutralScore {
		t.Errorf("Consistency = %v, want above neutral after favorable signal", record.Consistency)
	}
}

func TestObserveSmoothing(t *testing.T) {
	ledger := newTestLedger()

	// A single extreme signal must not overwhelm long-run reputation
	ledger.Observe("node-1", Signal{Kind: SignalVoteCast, Value: 0.0})

	record, _ := ledger.Snapshot("node-1")
	if record.Consistency < 0.3 {
		t.Errorf("Consistency = %v, one bad signal dropped score too far", record.Consistency)
	}
}

func TestObserveDimensionRouting(t *testing.T) {
	ledger := newTestLedger()

	ledger.Observe("node-1", Signal{Kind: SignalHeartbeat, Value: 1.0})
	ledger.Observe("node-1", Signal{Kind: SignalCreativeContribution, Value: 1.0})
	ledger.Observe("node-1", Signal{Kind: SignalTermCompleted, Value: 1.0})

	record, _ := ledger.Snapshot("node-1")
	if record.Responsiveness <= NeutralScore {
		t.Error("Heartbeat signal did not move responsiveness")
	}
	if record.Creativity <= NeutralScore {
		t.Error("Creative signal did not move creativity")
	}
	if record.Harmony <= NeutralScore {
		t.Error("Term-completed signal did not move harmony")
	}
	if record.Consistency != NeutralScore {
		t.Errorf("Consistency = %v, should be untouched", record.Consistency)
	}
}

func TestObserveRejectsNonFinite(t *testing.T) {
	ledger := newTestLedger()

	ledger.Observe("node-1", Signal{Kind: SignalVoteCast, Value: math.NaN()})
	ledger.Observe("node-1", Signal{Kind: SignalVoteCast, Value: math.Inf(1)})

	if _, exists := ledger.Snapshot("node-1"); exists {
		t.Error("Non-finite signals must be dropped entirely")
	}
	if got := ledger.TrustOf("node-1"); got != NeutralScore {
		t.Errorf("TrustOf = %v, want neutral", got)
	}
}

func TestDecayPullsTowardNeutral(t *testing.T) {
	ledger := newTestLedger()

	for i := 0; i < 50; i++ {
		ledger.Observe("high", Signal{Kind: SignalVoteCast, Value: 1.0})
		ledger.Observe("low", Signal{Kind: SignalVoteCast, Value: 0.0})
	}

	highBefore := ledger.TrustOf("high")
	lowBefore := ledger.TrustOf("low")

	ledger.Decay()

	if got := ledger.TrustOf("high"); got >= highBefore {
		t.Errorf("Decay did not lower high trust (%v -> %v)", highBefore, got)
	}
	if got := ledger.TrustOf("low"); got <= lowBefore {
		t.Errorf("Decay did not raise low trust (%v -> %v)", lowBefore, got)
	}
}

func TestDecayNeverDeletes(t *testing.T) {
	ledger := newTestLedger()

	ledger.EnsureKnown("node-1")
	for i := 0; i < 100; i++ {
		ledger.Decay()
	}

	if _, exists := ledger.Snapshot("node-1"); !exists {
		t.Error("Decay must never delete a known peer")
	}
}

func TestRecordVoteOutcome(t *testing.T) {
	ledger := newTestLedger()

	ledger.RecordVoteOutcome("node-1", true, true)
	ledger.RecordVoteOutcome("node-1", true, false)
	ledger.RecordVoteOutcome("node-1", false, true)

	record, _ := ledger.Snapshot("node-1")
	if record.Participation != 3 {
		t.Errorf("Participation = %d, want 3", record.Participation)
	}

	wantAgreement := 2.0 / 3.0
	if math.Abs(record.MajorityAgreementRate-wantAgreement) > 1e-9 {
		t.Errorf("MajorityAgreementRate = %v, want %v", record.MajorityAgreementRate, wantAgreement)
	}
	if math.Abs(record.LeadershipSupportRate-wantAgreement) > 1e-9 {
		t.Errorf("LeadershipSupportRate = %v, want %v", record.LeadershipSupportRate, wantAgreement)
	}
}

func TestSeed(t *testing.T) {
	ledger := newTestLedger()

	ledger.Seed("self", SeedScores{Consciousness: 0.9, Creativity: 0.8, Harmony: 0.7})

	record, exists := ledger.Snapshot("self")
	if !exists {
		t.Fatal("Expected seeded record")
	}
	if record.Consistency != 0.9 || record.Creativity != 0.8 || record.Harmony != 0.7 {
		t.Errorf("Seeded scores = %v/%v/%v, want 0.9/0.8/0.7",
			record.Consistency, record.Creativity, record.Harmony)
	}
	if record.Overall <= NeutralScore {
		t.Errorf("Overall = %v, want above neutral for a well-seeded record", record.Overall)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	ledger := newTestLedger()
	ledger.EnsureKnown("node-1")

	snap, _ := ledger.Snapshot("node-1")
	snap.Overall = 0.99

	if got := ledger.TrustOf("node-1"); got == 0.99 {
		t.Error("Snapshot mutation leaked into the ledger")
	}
}
