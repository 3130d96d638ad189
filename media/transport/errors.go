// Package transport implements the per-media Transport ID entity
// (its Transport entity): the combination of an optional ICE
// agent, an optional DTLS or SDES keying state, RTCP-mux bookkeeping,
// and the pre-answer pending-datagram queue (DESIGN.md Open Question
// 1). Like media/ice and media/keying, it owns no socket; the adapter
// supplies/consumes wire bytes.
package transport

import "errors"

var (
	ErrNoKeying       = errors.New("media/transport: transport has no keying material yet")
	ErrUnsupportedKind = errors.New("media/transport: unsupported transport kind")
)
