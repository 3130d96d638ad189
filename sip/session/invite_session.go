package session

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"github.com/nordcall/rtcstack/sip/dialog"
)

// State names mirror its UAS-role example:
// UasProvisional -> Established -> Terminated; CANCEL/early-BYE goes
// from Provisional straight to Terminated (there is no separate
// cancelled state). Kept as string constants since looplab/fsm is itself
// string-keyed (see pkg/dialog/dialog.go's fsm.Events wiring).
const (
	StateProvisional = "provisional"
	StateEstablished = "established"
	StateTerminated  = "terminated"
)

const (
	eventAccept    = "accept"
	eventCancel    = "cancel"
	eventTerminate = "terminate"
)

// InviteSession is the per-call state machine composing the dialog
// key, the awaited-ACK slot, the cancellation signal, an optional
// RFC3262 reliable-provisional tracker, and an optional RFC4028
// session timer. Grounded on pkg/dialog/dialog.go's fsm.NewFSM wiring,
// generalized from that package's sipgo-specific DialogState to an
// INVITE-session-only lifecycle (the broader dialog lifecycle itself
// lives in sip/dialog).
type InviteSession struct {
	DialogKey dialog.Key
	machine   *fsm.FSM

	Ack      AckSlot
	Cancel   CancelSignal
	Reliable *ReliableProvisional // nil unless 100rel negotiated
	Timer    *SessionTimer        // nil unless session timers negotiated

	branch string
	cseq   uint32
}

// NewInviteSession creates a session for the dialog identified by key,
// starting in Provisional. branch/cseq identify the INVITE transaction
// for CANCEL/early-BYE matching.
func NewInviteSession(key dialog.Key, branch string, cseq uint32) *InviteSession {
	s := &InviteSession{DialogKey: key, branch: branch, cseq: cseq}
	s.machine = fsm.NewFSM(
		StateProvisional,
		fsm.Events{
			{Name: eventAccept, Src: []string{StateProvisional}, Dst: StateEstablished},
			{Name: eventCancel, Src: []string{StateProvisional}, Dst: StateTerminated},
			{Name: eventTerminate, Src: []string{StateProvisional, StateEstablished}, Dst: StateTerminated},
		},
		fsm.Callbacks{},
	)
	s.Ack.Arm(cseq)
	return s
}

// State returns the current lifecycle state.
func (s *InviteSession) State() string { return s.machine.Current() }

// MatchesCancel reports whether an inbound CANCEL or early BYE (same
// branch and CSeq as the original INVITE) applies to this session.
func (s *InviteSession) MatchesCancel(branch string, cseq uint32) bool {
	return branch == s.branch && cseq == s.cseq
}

// HandleCancel fires the cancellation signal and, if the session is
// still Provisional, transitions to Terminated. reason is "CANCEL" or
// "early-BYE".
func (s *InviteSession) HandleCancel(reason string) error {
	if !s.Cancel.Fire(reason) {
		return nil // already cancelled; idempotent
	}
	if s.State() == StateProvisional {
		return s.machine.Event(context.Background(), eventCancel)
	}
	return nil
}

// Accept transitions to Established once the transaction user sends
// its final 2xx.
func (s *InviteSession) Accept() error {
	return s.machine.Event(context.Background(), eventAccept)
}

// Terminate transitions to Terminated from any non-terminal state
// (BYE, session-timer expiry without refresh, and so on).
func (s *InviteSession) Terminate() error {
	if s.State() == StateTerminated {
		return nil
	}
	return s.machine.Event(context.Background(), eventTerminate)
}

// DeliverACK feeds an inbound ACK's CSeq to the awaited-ACK slot.
func (s *InviteSession) DeliverACK(cseq uint32) bool {
	return s.Ack.Deliver(cseq)
}

// EnableReliableProvisional turns on RFC3262 100rel tracking for this session.
func (s *InviteSession) EnableReliableProvisional() {
	s.Reliable = &ReliableProvisional{}
}

// EnableSessionTimer turns on RFC4028 session-timer tracking.
func (s *InviteSession) EnableSessionTimer(now time.Time, delta time.Duration, refresher Refresher, isLocalRefresher bool) {
	s.Timer = NewSessionTimer(now, delta, refresher, isLocalRefresher)
}

// NextDeadline is the earliest of the reliable-provisional retransmit
// and session-timer deadlines, for the driver loop's single poll timer.
func (s *InviteSession) NextDeadline() (time.Time, bool) {
	var earliest time.Time
	found := false
	consider := func(d time.Time, ok bool) {
		if !ok {
			return
		}
		if !found || d.Before(earliest) {
			earliest, found = d, true
		}
	}
	if s.Reliable != nil {
		consider(s.Reliable.NextDeadline())
	}
	if s.Timer != nil {
		consider(s.Timer.NextDeadline())
	}
	return earliest, found
}
