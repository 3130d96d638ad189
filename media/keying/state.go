package keying

import (
	"context"

	"github.com/looplab/fsm"
)

// TransportConnectionState names the keying lifecycle: New ->
// Connecting -> Connected, with Failed reachable from New or Connecting
// (handshake timeout/error) and Disconnected reachable from Connected
// (a later keepalive loss). Kept as string constants for the same reason
// sip/session.InviteSession's states are: looplab/fsm is string-keyed.
const (
	StateNew          = "new"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateFailed       = "failed"
	StateDisconnected = "disconnected"
)

const (
	eventStart         = "start"
	eventHandshakeDone = "handshake_done"
	eventFail          = "fail"
	eventLost          = "lost"
	eventResume        = "resume"
)

// TransportConnectionStateMachine tracks one media transport's keying
// handshake lifecycle. Grounded on sip/session.InviteSession's
// fsm.NewFSM wiring; this is the media-side equivalent for the
// DTLS-SRTP (or SDES, which skips straight to Connected once crypto
// lines are selected) handshake instead of the SIP dialog lifecycle.
type TransportConnectionStateMachine struct {
	machine *fsm.FSM
}

// NewTransportConnectionStateMachine creates a machine starting in New.
func NewTransportConnectionStateMachine() *TransportConnectionStateMachine {
	return &TransportConnectionStateMachine{
		machine: fsm.NewFSM(
			StateNew,
			fsm.Events{
				{Name: eventStart, Src: []string{StateNew}, Dst: StateConnecting},
				{Name: eventHandshakeDone, Src: []string{StateConnecting}, Dst: StateConnected},
				{Name: eventFail, Src: []string{StateNew, StateConnecting}, Dst: StateFailed},
				{Name: eventLost, Src: []string{StateConnected}, Dst: StateDisconnected},
				{Name: eventResume, Src: []string{StateDisconnected}, Dst: StateConnected},
			},
			fsm.Callbacks{},
		),
	}
}

// State returns the current connection state.
func (s *TransportConnectionStateMachine) State() string { return s.machine.Current() }

// Start transitions New -> Connecting: the handshake (DTLS) or
// crypto-line selection (SDES) has begun.
func (s *TransportConnectionStateMachine) Start() error {
	return s.machine.Event(context.Background(), eventStart)
}

// HandshakeComplete transitions Connecting -> Connected: keying
// material is derived and subsequent RTP packets are SRTP-protected.
func (s *TransportConnectionStateMachine) HandshakeComplete() error {
	return s.machine.Event(context.Background(), eventHandshakeDone)
}

// Fail transitions New or Connecting -> Failed (handshake timeout,
// fingerprint mismatch, no compatible SRTP suite).
func (s *TransportConnectionStateMachine) Fail() error {
	return s.machine.Event(context.Background(), eventFail)
}

// Lost transitions Connected -> Disconnected (keepalive/ICE failure
// observed after a previously successful handshake).
func (s *TransportConnectionStateMachine) Lost() error {
	return s.machine.Event(context.Background(), eventLost)
}

// Resume transitions Disconnected -> Connected (connectivity restored
// without a fresh handshake, e.g. an ICE restart that keeps the same
// DTLS association).
func (s *TransportConnectionStateMachine) Resume() error {
	return s.machine.Event(context.Background(), eventResume)
}
