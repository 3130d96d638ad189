package transaction

import (
	"time"

	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/transport"
)

// Disposition classifies what HandleRequest did with an inbound
// request, since ACK and CANCEL do not get their own transaction type
// (RFC3261 §17 excludes ACK-to-2xx from the transaction layer entirely
// and routes CANCEL through the INVITE transaction it names).
type Disposition int

const (
	DispositionNew Disposition = iota
	DispositionRetransmission
	DispositionACKMatched
	DispositionACKUnmatched // ACK to a 2xx: transaction already Terminated, belongs to the dialog/session layer
	DispositionCancelMatched
	DispositionCancelNotFound
)

// RequestResult is what HandleRequest hands back to the endpoint.
type RequestResult struct {
	Disposition Disposition
	Server      *ServerTransaction // the transaction this request matched or created
	Target      *ServerTransaction // for Cancel*: the INVITE server transaction CANCEL names
}

// Manager is the transaction table plus dispatch logic: a transaction
// table keyed by Key, split out of the endpoint so sip/endpoint stays
// about routing requests to dialog/session handlers rather than
// RFC3261 bookkeeping.
type Manager struct {
	store *store
}

// NewManager returns an empty transaction table.
func NewManager() *Manager {
	return &Manager{store: newStore()}
}

// SendRequest creates and registers a client transaction for an
// outbound request, sending the first copy immediately.
func (m *Manager) SendRequest(now time.Time, req *message.Request, target string, tp transport.Transport) (*ClientTransaction, error) {
	ct, err := NewClientTransaction(now, req, target, tp)
	if err != nil {
		return nil, err
	}
	if err := m.store.putClient(ct); err != nil {
		return nil, err
	}
	return ct, nil
}

// HandleResponse routes an inbound response to its client transaction.
func (m *Manager) HandleResponse(now time.Time, resp *message.Response) (Event, *ClientTransaction, error) {
	key, err := KeyForResponse(resp)
	if err != nil {
		return Event{}, nil, err
	}
	ct, ok := m.store.client(key)
	if !ok {
		return Event{}, nil, ErrUnknownTransaction
	}
	ev, err := ct.Deliver(now, resp)
	return ev, ct, err
}

// HandleRequest routes an inbound request: a brand-new request creates
// a server transaction, a retransmission is absorbed by resending the
// last final response (if any), an ACK is matched to the INVITE
// transaction it confirms, and a CANCEL is matched to the INVITE
// transaction it names.
func (m *Manager) HandleRequest(req *message.Request, source string, tp transport.Transport) (RequestResult, error) {
	key, err := KeyForRequest(req)
	if err != nil {
		return RequestResult{}, err
	}

	switch req.Method {
	case "ACK":
		inviteKey := Key{Branch: key.Branch, SentBy: key.SentBy, Method: "INVITE", Role: RoleServer}
		st, ok := m.store.server(inviteKey)
		if !ok {
			return RequestResult{Disposition: DispositionACKUnmatched}, nil
		}
		return RequestResult{Disposition: DispositionACKMatched, Server: st}, nil

	case "CANCEL":
		inviteKey := Key{Branch: key.Branch, SentBy: key.SentBy, Method: "INVITE", Role: RoleServer}
		st, ok := m.store.server(inviteKey)
		if !ok || !st.DeliverCancel() {
			return RequestResult{Disposition: DispositionCancelNotFound}, nil
		}
		return RequestResult{Disposition: DispositionCancelMatched, Target: st}, nil

	default:
		if st, ok := m.store.server(key); ok {
			if raw, retransmit := st.DeliverRetransmit(); retransmit {
				if err := tp.Send(source, raw); err != nil {
					return RequestResult{}, err
				}
			}
			return RequestResult{Disposition: DispositionRetransmission, Server: st}, nil
		}
		st, err := NewServerTransaction(req, source, tp)
		if err != nil {
			return RequestResult{}, err
		}
		if err := m.store.putServer(st); err != nil {
			return RequestResult{}, err
		}
		return RequestResult{Disposition: DispositionNew, Server: st}, nil
	}
}

// TimerEvent pairs a fired Event with the transaction it came from, so
// the endpoint can tell a client timeout from a server one.
type TimerEvent struct {
	Event  Event
	Client *ClientTransaction
	Server *ServerTransaction
}

// NextDeadline returns the earliest pending deadline across every
// tracked transaction, for the endpoint's single poll-timer scheduling.
func (m *Manager) NextDeadline() (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	consider := func(d time.Time, ok bool) {
		if !ok {
			return
		}
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	}
	for _, ct := range m.store.clients {
		consider(ct.NextDeadline())
	}
	for _, st := range m.store.servers {
		consider(st.NextDeadline())
	}
	return earliest, found
}

// Poll advances every transaction to now, collects whatever events
// fired, and sweeps out anything that reached Terminated.
func (m *Manager) Poll(now time.Time) ([]TimerEvent, error) {
	var events []TimerEvent
	var firstErr error
	for _, ct := range m.store.clients {
		ev, err := ct.Poll(now)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ev.Kind != EventNone {
			events = append(events, TimerEvent{Event: ev, Client: ct})
		}
	}
	for _, st := range m.store.servers {
		ev, err := st.Poll(now)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ev.Kind != EventNone {
			events = append(events, TimerEvent{Event: ev, Server: st})
		}
	}
	m.store.sweep()
	return events, firstErr
}

// Count reports the number of live client and server transactions, for
// tests and metrics.
func (m *Manager) Count() (clients, servers int) {
	return len(m.store.clients), len(m.store.servers)
}
