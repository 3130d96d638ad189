// Package session implements the INVITE session state machine: the
// UAS/UAC provisional-to-established lifecycle, RFC3262 reliable
// provisional responses (100rel/PRACK), RFC4028 session timers, the
// one-shot awaited-ACK slot, and CANCEL/early-BYE cancellation
// signalling. State transitions use looplab/fsm, matching
// pkg/dialog/dialog.go's richer dialog/session state machines;
// retransmit/refresh scheduling follows the sans-I/O NextDeadline/Poll
// shape from sip/transaction.
package session

import "errors"

var (
	ErrInvalidTransition  = errors.New("sip/session: invalid state transition")
	ErrNoReliableInFlight = errors.New("sip/session: no reliable provisional awaiting PRACK")
	ErrPRACKMismatch      = errors.New("sip/session: PRACK RAck does not match the outstanding RSeq")
	ErrAlreadyAnswered    = errors.New("sip/session: awaited-ACK slot already consumed")
	ErrSessionTimersOff   = errors.New("sip/session: session timers not negotiated for this session")
)
