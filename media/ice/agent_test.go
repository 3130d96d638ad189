package ice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostCandidate(component int, addr string, port int) *Candidate {
	return &Candidate{Type: CandidateHost, Component: component, Addr: addr, Port: port, Foundation: "f1"}
}

func TestAgent_GatheringLifecycle(t *testing.T) {
	a := NewAgent(RoleControlling, 10)
	assert.Equal(t, GatherNew, a.GatheringState())
	require.NoError(t, a.StartGathering())
	assert.Equal(t, GatherGathering, a.GatheringState())

	a.AddLocalCandidate(hostCandidate(1, "192.0.2.1", 5000))
	require.NoError(t, a.FinishGathering())
	assert.Equal(t, GatherComplete, a.GatheringState())
}

func TestAgent_PairsAreSortedByPriorityDescending(t *testing.T) {
	a := NewAgent(RoleControlling, 10)
	require.NoError(t, a.StartGathering())
	a.AddLocalCandidate(hostCandidate(1, "192.0.2.1", 5000))
	a.AddLocalCandidate(&Candidate{Type: CandidateServerReflexive, Component: 1, Addr: "198.51.100.1", Port: 6000})
	require.NoError(t, a.FinishGathering())
	a.AddRemoteCandidate(hostCandidate(1, "203.0.113.9", 7000))

	require.Len(t, a.Pairs, 2)
	assert.GreaterOrEqual(t, a.Pairs[0].Priority, a.Pairs[1].Priority)
}

// Scenario 4: both peers declare Controlling with tie-breakers A=10,
// B=20. A receives B's check (controlling, tie=20); A's tie-breaker 10
// is smaller, so A switches to Controlled instead of answering 487,
// while B, on seeing A's tie=10, keeps Controlling. Expect exactly one
// switch on A's side and, from there, nomination proceeds from B.
func TestAgent_ScenarioFour_RoleConflictSingleSwitch(t *testing.T) {
	a := NewAgent(RoleControlling, 10)
	switched := a.HandleRoleConflict(RoleControlling, 20)
	assert.True(t, switched)
	assert.Equal(t, RoleControlled, a.Role)
	assert.Equal(t, 1, a.RoleSwitches())

	// A further conflict report shouldn't double-switch (role already differs).
	switched = a.HandleRoleConflict(RoleControlling, 20)
	assert.False(t, switched)
	assert.Equal(t, 1, a.RoleSwitches())

	b := NewAgent(RoleControlling, 20)
	switched = b.HandleRoleConflict(RoleControlling, 10)
	assert.False(t, switched, "B's tie-breaker is larger, B keeps Controlling")
	assert.Equal(t, RoleControlling, b.Role)
	assert.Equal(t, 0, b.RoleSwitches())
}

func TestBindingTransaction_RetrySchedule(t *testing.T) {
	now := time.Now()
	tr := NewBindingTransaction(sampleTransactionID(), &CandidatePair{}, now)
	assert.Equal(t, 1, tr.Attempts())
	assert.Equal(t, now.Add(250*time.Millisecond), tr.NextRetransmit())

	// Not yet due.
	assert.False(t, tr.Poll(now.Add(100*time.Millisecond)))

	// Due: RTO doubles to 500ms.
	next := now.Add(250 * time.Millisecond)
	assert.True(t, tr.Poll(next))
	assert.Equal(t, 2, tr.Attempts())
	assert.Equal(t, next.Add(500*time.Millisecond), tr.NextRetransmit())
}

func TestBindingTransaction_FailsAfterMaxAttempts(t *testing.T) {
	now := time.Now()
	tr := NewBindingTransaction(sampleTransactionID(), &CandidatePair{}, now)
	for i := 0; i < maxAttempts-1; i++ {
		require.True(t, tr.Poll(tr.NextRetransmit()))
	}
	assert.Equal(t, maxAttempts, tr.Attempts())
	assert.False(t, tr.Poll(tr.NextRetransmit()))
	assert.True(t, tr.Done())
	assert.False(t, tr.Succeeded())
}

func TestAgent_CheckSucceeded_NominatedSelectsPairAndConnects(t *testing.T) {
	a := NewAgent(RoleControlling, 10)
	require.NoError(t, a.StartGathering())
	a.AddLocalCandidate(hostCandidate(1, "192.0.2.1", 5000))
	require.NoError(t, a.FinishGathering())
	a.AddRemoteCandidate(hostCandidate(1, "203.0.113.9", 7000))
	require.NoError(t, a.StartChecks())

	pair := a.Pairs[0]
	id := sampleTransactionID()
	now := time.Now()
	a.NewCheck(id, pair, now)
	a.Nominate(pair)
	a.CheckSucceeded(id, true)

	assert.Equal(t, pair, a.SelectedPair)
	assert.Equal(t, ConnConnected, a.ConnectionState())
}

func TestAgent_Restart_BumpsGenerationAndResetsNomination(t *testing.T) {
	a := NewAgent(RoleControlling, 10)
	require.NoError(t, a.StartGathering())
	a.AddLocalCandidate(hostCandidate(1, "192.0.2.1", 5000))
	require.NoError(t, a.FinishGathering())
	a.AddRemoteCandidate(hostCandidate(1, "203.0.113.9", 7000))
	require.NoError(t, a.StartChecks())
	pair := a.Pairs[0]
	a.Nominate(pair)
	a.NewCheck(sampleTransactionID(), pair, time.Now())
	a.CheckSucceeded(sampleTransactionID(), true)
	require.NotNil(t, a.SelectedPair)

	a.Restart()
	assert.Equal(t, 1, a.Generation())
	assert.Nil(t, a.SelectedPair)
	assert.Empty(t, a.Pairs)
	assert.Equal(t, GatherNew, a.GatheringState())
	assert.Equal(t, ConnNew, a.ConnectionState())
}

func TestAgent_KeepaliveDueEvery20Seconds(t *testing.T) {
	a := NewAgent(RoleControlling, 10)
	a.SelectedPair = &CandidatePair{}
	now := time.Now()
	assert.True(t, a.KeepaliveDue(now))
	a.MarkKeepaliveSent(now)
	assert.False(t, a.KeepaliveDue(now.Add(10*time.Second)))
	assert.True(t, a.KeepaliveDue(now.Add(20*time.Second)))
}
