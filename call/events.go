package call

import "github.com/nordcall/rtcstack/sip/message"

// EventKind enumerates the façade-level notifications an application
// drains after each Manager.HandleInbound/Poll call. Finer-grained SIP
// transaction events and SdpSessionEvents are still available via
// Call.Sip/Call.Media for callers that need them; Event exists so a
// simple application can drive a call without reaching into either.
type EventKind int

const (
	EventIncoming       EventKind = iota // new inbound INVITE; call.Accept/Reject decides
	EventRinging                         // 1xx received (UAC)
	EventEstablished                     // 2xx exchanged and ACKed
	EventFailed                          // non-2xx final, CANCEL, or transaction timeout
	EventTerminated                      // BYE exchanged or the last usage dropped
	EventReinviteSent                    // local media change triggered an automatic re-INVITE
	EventRemoteMediaChanged              // peer's re-offer changed a media's direction/codec
	EventRefreshNeeded                   // RFC4028: local side must refresh the session timer
)

// Event is one notification the Manager surfaces.
type Event struct {
	Kind     EventKind
	Call     *Call
	Response *message.Response
	Err      error
}
