// Package ice implements its STUN/ICE agent: a hand-rolled
// STUN message codec (wire-level per RFC5389/RFC8445/RFC8489), RFC8445
// candidate/pair priority math, and a sans-I/O connectivity-check
// driving loop with its own gathering/connection state machines. See
// DESIGN.md's "Dropped teacher dependencies" section for why this
// package does not call into pion/ice/v2, pion/stun or pion/turn/v2.
package ice

import "errors"

var (
	ErrShortBuffer       = errors.New("media/ice: buffer too short for a STUN message")
	ErrNotSTUN           = errors.New("media/ice: magic cookie mismatch")
	ErrAttributeTooShort = errors.New("media/ice: attribute value shorter than declared length")
	ErrIntegrityMismatch = errors.New("media/ice: MESSAGE-INTEGRITY verification failed")
	ErrFingerprintMismatch = errors.New("media/ice: FINGERPRINT verification failed")
	ErrNoSuchAttribute   = errors.New("media/ice: attribute not present in message")
	ErrUnknownFamily     = errors.New("media/ice: unsupported address family")
)
