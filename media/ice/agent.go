package ice

import (
	"context"
	"sort"
	"time"

	"github.com/looplab/fsm"
)

// Role is this agent's ICE role (RFC8445 §4).
type Role int

const (
	RoleControlling Role = iota
	RoleControlled
)

// Gathering state names: New -> Gathering -> Complete.
const (
	GatherNew      = "new"
	GatherGathering = "gathering"
	GatherComplete = "complete"
)

// Connection state names: New -> Checking -> Connected ->
// {Completed, Failed, Disconnected}.
const (
	ConnNew          = "new"
	ConnChecking     = "checking"
	ConnConnected    = "connected"
	ConnCompleted    = "completed"
	ConnFailed       = "failed"
	ConnDisconnected = "disconnected"
)

const (
	evGatherStart    = "gather_start"
	evGatherComplete = "gather_complete"

	evCheckStart   = "check_start"
	evConnected    = "connected"
	evCompleted    = "completed"
	evFail         = "fail"
	evDisconnect   = "disconnect"
	evReconnect    = "reconnect"
)

const keepaliveInterval = 20 * time.Second

// Agent is a sans-I/O ICE agent for one media's RTP (and, unless
// rtcp-mux, RTCP) component: candidate pairing, connectivity-check
// driving, role-conflict resolution via tie-breaker comparison, and
// nomination bookkeeping. It never owns a socket; the caller supplies
// wire bytes to send/receive via the adapter.
type Agent struct {
	Role       Role
	TieBreaker uint64

	LocalUfrag, LocalPwd   string
	RemoteUfrag, RemotePwd string

	LocalCandidates  []*Candidate
	RemoteCandidates []*Candidate
	Pairs            []*CandidatePair
	SelectedPair     *CandidatePair

	transactions map[[TransactionIDSize]byte]*BindingTransaction

	gathering        *fsm.FSM
	connection       *fsm.FSM
	roleSwitches     int
	lastKeepalive    time.Time
	nominationByPeer bool // true once the peer has nominated the selected pair
	generation       int
}

// Generation returns the current ICE-restart generation (0 for the
// original negotiation, incremented by each Restart).
func (a *Agent) Generation() int { return a.generation }

// Restart implements the narrow ICE-restart subset resolved in
// DESIGN.md's Open Question 2: bump the generation, clear the selected
// pair and nomination state, drop remote candidates (fresh ones arrive
// with the re-offer/re-answer), and re-enter gathering so new host
// candidates can be produced. Existing local candidates are not
// reused (full RFC8445 §9 candidate-reuse and DTLS-rehandshake
// suppression are out of scope here).
func (a *Agent) Restart() {
	a.generation++
	a.SelectedPair = nil
	a.nominationByPeer = false
	a.RemoteCandidates = nil
	a.LocalCandidates = nil
	a.Pairs = nil
	a.transactions = make(map[[TransactionIDSize]byte]*BindingTransaction)
	a.gathering = fsm.NewFSM(
		GatherNew,
		fsm.Events{
			{Name: evGatherStart, Src: []string{GatherNew}, Dst: GatherGathering},
			{Name: evGatherComplete, Src: []string{GatherGathering}, Dst: GatherComplete},
		},
		fsm.Callbacks{},
	)
	a.connection = fsm.NewFSM(
		ConnNew,
		fsm.Events{
			{Name: evCheckStart, Src: []string{ConnNew}, Dst: ConnChecking},
			{Name: evConnected, Src: []string{ConnChecking, ConnDisconnected}, Dst: ConnConnected},
			{Name: evCompleted, Src: []string{ConnConnected}, Dst: ConnCompleted},
			{Name: evFail, Src: []string{ConnNew, ConnChecking}, Dst: ConnFailed},
			{Name: evDisconnect, Src: []string{ConnConnected, ConnCompleted}, Dst: ConnDisconnected},
			{Name: evReconnect, Src: []string{ConnDisconnected}, Dst: ConnConnected},
		},
		fsm.Callbacks{},
	)
}

// NewAgent creates an agent in the given role. It does not generate ICE
// credentials: LocalUfrag/LocalPwd are left empty for the caller to
// set.
func NewAgent(role Role, tieBreaker uint64) *Agent {
	a := &Agent{
		Role:         role,
		TieBreaker:   tieBreaker,
		transactions: make(map[[TransactionIDSize]byte]*BindingTransaction),
	}
	a.gathering = fsm.NewFSM(
		GatherNew,
		fsm.Events{
			{Name: evGatherStart, Src: []string{GatherNew}, Dst: GatherGathering},
			{Name: evGatherComplete, Src: []string{GatherGathering}, Dst: GatherComplete},
		},
		fsm.Callbacks{},
	)
	a.connection = fsm.NewFSM(
		ConnNew,
		fsm.Events{
			{Name: evCheckStart, Src: []string{ConnNew}, Dst: ConnChecking},
			{Name: evConnected, Src: []string{ConnChecking, ConnDisconnected}, Dst: ConnConnected},
			{Name: evCompleted, Src: []string{ConnConnected}, Dst: ConnCompleted},
			{Name: evFail, Src: []string{ConnNew, ConnChecking}, Dst: ConnFailed},
			{Name: evDisconnect, Src: []string{ConnConnected, ConnCompleted}, Dst: ConnDisconnected},
			{Name: evReconnect, Src: []string{ConnDisconnected}, Dst: ConnConnected},
		},
		fsm.Callbacks{},
	)
	return a
}

func (a *Agent) GatheringState() string  { return a.gathering.Current() }
func (a *Agent) ConnectionState() string { return a.connection.Current() }

// StartGathering transitions New -> Gathering.
func (a *Agent) StartGathering() error {
	return a.gathering.Event(context.Background(), evGatherStart)
}

// AddLocalCandidate records a gathered local candidate and computes
// its priority.
func (a *Agent) AddLocalCandidate(c *Candidate) {
	c.ComputePriority()
	a.LocalCandidates = append(a.LocalCandidates, c)
}

// FinishGathering transitions Gathering -> Complete and forms the
// candidate pair list (cartesian product of local x remote candidates
// sharing a component, sorted by pair priority descending per
// RFC8445 §6.1.2.3).
func (a *Agent) FinishGathering() error {
	if err := a.gathering.Event(context.Background(), evGatherComplete); err != nil {
		return err
	}
	a.formPairs()
	return nil
}

// AddRemoteCandidate records a remote candidate (from SDP or a
// peer-reflexive discovery) and re-forms pairs.
func (a *Agent) AddRemoteCandidate(c *Candidate) {
	c.ComputePriority()
	a.RemoteCandidates = append(a.RemoteCandidates, c)
	if a.gathering.Current() == GatherComplete {
		a.formPairs()
	}
}

func (a *Agent) formPairs() {
	var pairs []*CandidatePair
	for _, l := range a.LocalCandidates {
		for _, r := range a.RemoteCandidates {
			if l.Component != r.Component {
				continue
			}
			p := &CandidatePair{Local: l, Remote: r}
			controlling, controlled := l.Priority, r.Priority
			if a.Role == RoleControlled {
				controlling, controlled = r.Priority, l.Priority
			}
			p.ComputePairPriority(controlling, controlled)
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Priority > pairs[j].Priority })
	a.Pairs = pairs
}

// StartChecks transitions New -> Checking once the first Binding
// request for this agent is about to be sent.
func (a *Agent) StartChecks() error {
	return a.connection.Event(context.Background(), evCheckStart)
}

// NewCheck starts a Binding transaction on pair and records it for
// retry driving via Poll.
func (a *Agent) NewCheck(id [TransactionIDSize]byte, pair *CandidatePair, now time.Time) *BindingTransaction {
	t := NewBindingTransaction(id, pair, now)
	a.transactions[id] = t
	return t
}

// PendingChecks returns every transaction awaiting its next retransmit
// or failure check at or before now.
func (a *Agent) PendingChecks(now time.Time) []*BindingTransaction {
	var due []*BindingTransaction
	for _, t := range a.transactions {
		if !t.Done() && !now.Before(t.NextRetransmit()) {
			due = append(due, t)
		}
	}
	return due
}

// NextDeadline returns the earliest retransmit/keepalive deadline
// across every outstanding transaction and the selected pair's
// keepalive timer, for a driving loop's timeout(now) computation.
func (a *Agent) NextDeadline() (time.Time, bool) {
	var best time.Time
	found := false
	for _, t := range a.transactions {
		if t.Done() {
			continue
		}
		d := t.NextRetransmit()
		if !found || d.Before(best) {
			best, found = d, true
		}
	}
	if a.SelectedPair != nil && !a.lastKeepalive.IsZero() {
		d := a.lastKeepalive.Add(keepaliveInterval)
		if !found || d.Before(best) {
			best, found = d, true
		}
	}
	return best, found
}

// HandleRoleConflict implements scenario 4: both peers declared
// Controlling; the peer's check carried its own tie-breaker peerTie.
// If this agent's tie-breaker is larger, the peer is in conflict and
// this agent keeps its role (caller should answer 487 upstream with
// its own tie-breaker). If this agent's tie-breaker is smaller, it
// switches to Controlled (the conflict resolution always favors the
// higher tie-breaker remaining Controlling).
func (a *Agent) HandleRoleConflict(peerRole Role, peerTie uint64) (switched bool) {
	if peerRole != a.Role {
		return false // no actual conflict: roles already differ
	}
	if a.Role == RoleControlling && peerTie > a.TieBreaker {
		a.Role = RoleControlled
		a.roleSwitches++
		a.formPairs()
		return true
	}
	if a.Role == RoleControlled && peerTie < a.TieBreaker {
		a.Role = RoleControlling
		a.roleSwitches++
		a.formPairs()
		return true
	}
	return false
}

// RoleSwitches returns how many times this agent has switched role due
// to a conflict (scenario 4 expects exactly one).
func (a *Agent) RoleSwitches() int { return a.roleSwitches }

// CheckSucceeded records a successful Binding response on a pair: the
// peer address is confirmed reachable. If the pair is nominated
// (USE-CANDIDATE set by the controlling side), it becomes selected and
// the connection transitions toward Connected. Whether the peer's
// reverse-direction check has succeeded is not tracked and does not
// gate selection.
func (a *Agent) CheckSucceeded(id [TransactionIDSize]byte, nominated bool) {
	t, ok := a.transactions[id]
	if !ok {
		return
	}
	t.Success()
	t.Pair.Nominated = t.Pair.Nominated || nominated
	if t.Pair.Nominated {
		a.SelectedPair = t.Pair
		if a.connection.Current() == ConnChecking {
			_ = a.connection.Event(context.Background(), evConnected)
		} else if a.connection.Current() == ConnDisconnected {
			_ = a.connection.Event(context.Background(), evReconnect)
		}
	}
}

// Nominate marks pair as the controlling side's nomination (sets
// USE-CANDIDATE on the outgoing check). Only meaningful for a
// Controlling agent.
func (a *Agent) Nominate(pair *CandidatePair) {
	pair.Nominated = true
}

// Complete transitions Connected -> Completed once no more checks are
// outstanding (all components nominated).
func (a *Agent) Complete() error {
	return a.connection.Event(context.Background(), evCompleted)
}

// Fail transitions New/Checking -> Failed when every pair's checks
// have been exhausted without a successful nomination.
func (a *Agent) Fail() error {
	return a.connection.Event(context.Background(), evFail)
}

// Disconnect transitions Connected/Completed -> Disconnected when
// keepalives stop getting responses.
func (a *Agent) Disconnect() error {
	return a.connection.Event(context.Background(), evDisconnect)
}

// KeepaliveDue reports whether a keepalive Binding request is due on
// the selected pair (every 20s).
func (a *Agent) KeepaliveDue(now time.Time) bool {
	if a.SelectedPair == nil {
		return false
	}
	return a.lastKeepalive.IsZero() || !now.Before(a.lastKeepalive.Add(keepaliveInterval))
}

// MarkKeepaliveSent records that a keepalive was just sent.
func (a *Agent) MarkKeepaliveSent(now time.Time) {
	a.lastKeepalive = now
}
