package transaction

import (
	"time"

	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/transport"
)

// ServerTransaction is the sans-I/O form of RFC3261 §17.2's INVITE and
// non-INVITE server state machines. Grounded on the client-side
// counterpart in _examples/arzzra-soft_phone/pkg/sip/transaction and on
// RFC6026's update to the INVITE server machine: once the transaction
// user hands back a 2xx, this transaction is done (Accepted). It sends
// the 2xx once and does not retransmit it; no other layer in this
// module retransmits it either.
type ServerTransaction struct {
	key      Key
	request  *message.Request
	source   string
	tp       transport.Transport
	isInvite bool
	reliable bool
	state    State
	lastResp []byte
	timer    pendingTimer
}

// NewServerTransaction registers a newly arrived request. It does not
// send anything; the caller (endpoint) is expected to send a 100 Trying
// for INVITE per convention, then call Respond as the transaction user
// produces responses.
func NewServerTransaction(req *message.Request, source string, tp transport.Transport) (*ServerTransaction, error) {
	key, err := KeyForRequest(req)
	if err != nil {
		return nil, err
	}
	st := &ServerTransaction{
		key:      key,
		request:  req,
		source:   source,
		tp:       tp,
		isInvite: req.Method == "INVITE",
		reliable: tp.IsReliable(),
	}
	if st.isInvite {
		st.state = StateProceeding
	} else {
		st.state = StateTrying
	}
	return st, nil
}

// Key returns the transaction's matching identity.
func (st *ServerTransaction) Key() Key { return st.key }

// State returns the current RFC3261 state.
func (st *ServerTransaction) State() State { return st.state }

// Request returns the request this transaction was created for, so a
// caller holding only the transaction (e.g. a CANCEL's target) can still
// build a response referencing the original INVITE's headers.
func (st *ServerTransaction) Request() *message.Request { return st.request }

// Respond sends a response produced by the transaction user. now seeds
// the 2xx-retransmit/quench timers.
func (st *ServerTransaction) Respond(now time.Time, resp *message.Response) error {
	if st.state == StateTerminated || st.state == StateConfirmed {
		return ErrInvalidState
	}
	raw := []byte(resp.String())
	if err := st.tp.Send(st.source, raw); err != nil {
		return err
	}
	switch {
	case resp.IsProvisional():
		st.state = StateProceeding
		return nil
	case resp.Is2xx() && st.isInvite:
		// RFC6026: transaction layer's work ends at Accepted; it does
		// not retransmit the 2xx and no timer is kept for it.
		st.state = StateAccepted
		st.timer.clear()
		return nil
	case st.isInvite:
		st.lastResp = raw
		st.state = StateCompleted
		if !st.reliable {
			st.armRetransmit(now, T1)
		} else {
			st.armQuench(now)
		}
		return nil
	default:
		st.lastResp = raw
		st.state = StateCompleted
		st.armQuench(now)
		return nil
	}
}

func (st *ServerTransaction) armRetransmit(now time.Time, interval time.Duration) {
	st.timer = pendingTimer{kind: timerRetransmit, deadline: now.Add(interval), interval: interval}
}

func (st *ServerTransaction) armQuench(now time.Time) {
	if st.reliable {
		st.state = StateTerminated
		st.timer.clear()
		return
	}
	d := T4
	if st.isInvite {
		d = TimerH
	}
	st.timer = pendingTimer{kind: timerQuench, deadline: now.Add(d)}
}

// NextDeadline reports when Poll should next be called.
func (st *ServerTransaction) NextDeadline() (time.Time, bool) {
	if !st.timer.active() {
		return time.Time{}, false
	}
	return st.timer.deadline, true
}

// Poll advances time to now.
func (st *ServerTransaction) Poll(now time.Time) (Event, error) {
	if !st.timer.active() || now.Before(st.timer.deadline) {
		return Event{}, nil
	}
	switch st.timer.kind {
	case timerRetransmit:
		if err := st.tp.Send(st.source, st.lastResp); err != nil {
			return Event{}, err
		}
		next := st.timer.interval * 2
		if next > T2 {
			next = T2
		}
		st.armRetransmit(now, next)
		return Event{}, nil
	case timerQuench:
		timedOut := st.isInvite && st.state == StateCompleted
		st.state = StateTerminated
		st.timer.clear()
		if timedOut {
			return Event{Kind: EventTimeout}, ErrRequestTimedOut
		}
		return Event{Kind: EventTerminated}, nil
	}
	return Event{}, nil
}

// DeliverRetransmit handles a retransmitted request matched to this
// transaction (same Key as the original): for INVITE in Proceeding
// there is nothing queued yet to resend, so it is a no-op; in
// Completed the last final response is resent per RFC3261 §17.2.1.
func (st *ServerTransaction) DeliverRetransmit() ([]byte, bool) {
	if st.state == StateCompleted && st.lastResp != nil {
		return st.lastResp, true
	}
	return nil, false
}

// DeliverACK handles an in-dialog ACK matched to this INVITE server
// transaction's branch (RFC3261 §17.2.1): stops 2xx... no, stops
// non-2xx retransmission and moves to Confirmed, then Terminated after
// Timer I.
func (st *ServerTransaction) DeliverACK(now time.Time) error {
	if !st.isInvite || st.state != StateCompleted {
		return ErrInvalidState
	}
	st.state = StateConfirmed
	if st.reliable {
		st.state = StateTerminated
		st.timer.clear()
		return nil
	}
	st.timer = pendingTimer{kind: timerQuench, deadline: now.Add(T4)}
	return nil
}

// DeliverCancel reports whether a CANCEL for this transaction is
// currently actionable (Proceeding, before a final response was sent).
func (st *ServerTransaction) DeliverCancel() bool {
	return st.isInvite && st.state == StateProceeding
}
