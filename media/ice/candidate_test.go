package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidate_ComputePriority_HostBeatsRelay(t *testing.T) {
	host := &Candidate{Type: CandidateHost, Component: 1, LocalPref: 65535}
	relay := &Candidate{Type: CandidateRelay, Component: 1, LocalPref: 65535}
	host.ComputePriority()
	relay.ComputePriority()
	assert.Greater(t, host.Priority, relay.Priority)
}

func TestCandidatePair_ComputePairPriority_FavorsControllingTieBreak(t *testing.T) {
	var p1, p2 CandidatePair
	p1.ComputePairPriority(100, 50) // this side controlling, priority 100 vs peer 50
	p2.ComputePairPriority(50, 100) // this side controlling, priority 50 vs peer 100

	// min/max identical (50,100) either way, but the tie-break bit
	// differs depending on which side is larger.
	assert.NotEqual(t, p1.Priority, p2.Priority)
}

// Property 4: as candidate priorities increase, derived pair priority
// is monotonically non-decreasing (the ordering pairs get sorted into
// never regresses when a higher-priority remote candidate appears).
func TestProperty_PairPriorityMonotonicWithCandidatePriority(t *testing.T) {
	base := &CandidatePair{}
	priorities := []uint32{10, 20, 30, 1000, 1_000_000}
	var last uint64
	for _, pr := range priorities {
		base.ComputePairPriority(pr, 5)
		assert.GreaterOrEqual(t, base.Priority, last)
		last = base.Priority
	}
}
