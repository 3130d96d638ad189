package transaction

import "github.com/nordcall/rtcstack/sip/message"

// State enumerates the union of states across all four RFC3261 state
// machines (§4.3); not every state is reachable from every machine kind
// (e.g. only the server INVITE machine has Confirmed).
type State int32

const (
	StateInit State = iota
	StateCalling    // client INVITE: request sent, no response yet
	StateTrying     // client/server non-INVITE: request sent/received
	StateProceeding
	StateAccepted  // 2xx received/sent; RFC6026: transaction layer stops retransmitting
	StateCompleted // non-2xx final sent/received
	StateConfirmed // server INVITE only: ACK received
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateCalling:
		return "Calling"
	case StateTrying:
		return "Trying"
	case StateProceeding:
		return "Proceeding"
	case StateAccepted:
		return "Accepted"
	case StateCompleted:
		return "Completed"
	case StateConfirmed:
		return "Confirmed"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// EventKind tags what a transaction wants to tell its owner after a
// Deliver/Poll call.
type EventKind int

const (
	EventNone EventKind = iota
	EventProvisional
	EventFinal          // non-2xx final, or terminal 2xx for non-INVITE
	EventAccepted       // 2xx for INVITE: transaction stops owning retransmission
	EventLateAccepted   // not emitted: a 2xx retransmitted after Accepted is reported as EventAccepted again
	EventTimeout
	EventTerminated
)

// Event is emitted by a transaction in response to Deliver/Poll/Cancel.
type Event struct {
	Kind     EventKind
	Response *message.Response
}
