// Package call provides a high-level Call façade:
// one SIP INVITE session (sip/session) composed with one SDP session
// (media/session) behind a single call object, plus the Manager that
// wires both into the endpoint's layer bus and drives re-INVITE when
// local media changes. Grounded on pkg/ua_media/ua_session.go and
// ua_session_ext.go's uaMediaSession façade, restructured from their
// goroutine-per-concern (duration timer, activity monitor, stats
// collector) design into the sans-I/O Poll/HandleInbound shape the
// rest of this module uses.
package call

import "errors"

var (
	ErrNotUAC        = errors.New("call: operation only valid for an outgoing call")
	ErrNotUAS        = errors.New("call: operation only valid for an incoming call")
	ErrWrongState    = errors.New("call: invalid call state for this operation")
	ErrNoSdpAnswer   = errors.New("call: final response carried no SDP answer")
	ErrAlreadyClosed = errors.New("call: call already terminated")
)
