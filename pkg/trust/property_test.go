package trust

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTrustInvariants uses property-based testing to verify ledger invariants.
// These properties should ALWAYS hold for any observation sequence.
func TestTrustInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// Property 1: TrustOf stays in [0,1] and finite for any signal sequence
	properties.Property("trust bounded for any observation sequence", prop.ForAll(
		func(values []float64, kinds []int) bool {
			ledger := newTestLedger()

			for i, v := range values {
				kind := SignalVoteCast
				if len(kinds) > 0 {
					kind = SignalKind(kinds[i%len(kinds)] % 4)
				}
				ledger.Observe("peer", Signal{Kind: kind, Value: v})
			}

			score := ledger.TrustOf("peer")
			return !math.IsNaN(score) && score >= 0 && score <= 1
		},
		gen.SliceOf(gen.Float64Range(-10, 10)),
		gen.SliceOf(gen.IntRange(0, 10)),
	))

	// Property 2: Decay converges toward neutral, never out of bounds
	properties.Property("repeated decay converges to neutral", prop.ForAll(
		func(values []float64, decays int) bool {
			ledger := newTestLedger()

			for _, v := range values {
				ledger.Observe("peer", Signal{Kind: SignalVoteCast, Value: v})
			}
			before := math.Abs(ledger.TrustOf("peer") - NeutralScore)

			for i := 0; i < decays; i++ {
				ledger.Decay()
			}

			score := ledger.TrustOf("peer")
			after := math.Abs(score - NeutralScore)
			return score >= 0 && score <= 1 && after <= before+1e-9
		},
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.IntRange(1, 50),
	))

	// Property 3: vote-history rates stay in [0,1]
	properties.Property("vote-history rates bounded", prop.ForAll(
		func(outcomes []bool) bool {
			ledger := newTestLedger()

			for i, agreed := range outcomes {
				ledger.RecordVoteOutcome("peer", agreed, i%2 == 0)
			}

			record, exists := ledger.Snapshot("peer")
			if len(outcomes) == 0 {
				return !exists
			}
			return record.MajorityAgreementRate >= 0 && record.MajorityAgreementRate <= 1 &&
				record.LeadershipSupportRate >= 0 && record.LeadershipSupportRate <= 1 &&
				record.Participation == len(outcomes)
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
