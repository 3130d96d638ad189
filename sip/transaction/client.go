package transaction

import (
	"time"

	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/transport"
)

// ClientTransaction is the sans-I/O form of RFC3261 §17.1's INVITE and
// non-INVITE client state machines. The two differ only in timer
// selection and in the Accepted handling (RFC6026: for INVITE, receipt
// of a 2xx moves to Accepted, clears the timer and stops owning
// retransmission; for non-INVITE every final response moves to
// Completed, then to Terminated once the Timer K quench fires, at once
// on a reliable transport).
// Grounded on _examples/arzzra-soft_phone/pkg/sip/transaction/client.go,
// reworked from goroutine+time.AfterFunc callbacks into NextDeadline/Poll.
type ClientTransaction struct {
	key       Key
	request   *message.Request
	target    string
	tp        transport.Transport
	isInvite  bool
	reliable  bool
	state     State
	raw       []byte // serialized request, kept for retransmission
	timer     pendingTimer
	t1        time.Duration
	t2        time.Duration
	lastEvent Event
}

// Option configures timer overrides for a single transaction, mainly
// so tests can run RFC3261's timer arithmetic on a compressed T1
// without sleeping real T1/T2 wall-clock values.
type Option func(*ClientTransaction)

// WithT1 overrides the base retransmit interval (and, proportionally,
// the T2 cap applied to its exponential backoff).
func WithT1(t1 time.Duration) Option {
	return func(ct *ClientTransaction) {
		ct.t1 = t1
		ct.t2 = t1 * 8 // preserves the default T1=500ms/T2=4s ratio
	}
}

// NewClientTransaction creates a client transaction for req and sends
// the initial request immediately via tp. now is the creation time used
// to seed the first retransmit/absolute timers.
func NewClientTransaction(now time.Time, req *message.Request, target string, tp transport.Transport, opts ...Option) (*ClientTransaction, error) {
	key, err := KeyForOutboundRequest(req)
	if err != nil {
		return nil, err
	}
	ct := &ClientTransaction{
		key:      key,
		request:  req,
		target:   target,
		tp:       tp,
		isInvite: req.Method == "INVITE",
		reliable: tp.IsReliable(),
		raw:      []byte(req.String()),
		t1:       T1,
		t2:       T2,
	}
	for _, opt := range opts {
		opt(ct)
	}
	if ct.isInvite {
		ct.state = StateCalling
	} else {
		ct.state = StateTrying
	}
	if err := ct.tp.Send(ct.target, ct.raw); err != nil {
		return nil, err
	}
	ct.armAbsolute(now)
	if !ct.reliable {
		ct.armRetransmit(now, ct.t1)
	}
	return ct, nil
}

// Key returns the transaction's matching identity.
func (ct *ClientTransaction) Key() Key { return ct.key }

// State returns the current RFC3261 state.
func (ct *ClientTransaction) State() State { return ct.state }

// Request returns the request this transaction was created for, so a
// caller delivering a 2xx/non-2xx final response can build the matching
// ACK (RFC3261 §17.1.1.3: the transaction layer itself does not do this
// for a 2xx, since only the session layer can tell a late ACK from a
// new dialog-forming one).
func (ct *ClientTransaction) Request() *message.Request { return ct.request }

// Target returns the destination this request was sent to, for building
// an ACK along the same path.
func (ct *ClientTransaction) Target() string { return ct.target }

func (ct *ClientTransaction) armAbsolute(now time.Time) {
	d := 64 * ct.t1
	ct.timer = pendingTimer{kind: timerAbsolute, deadline: now.Add(d)}
}

func (ct *ClientTransaction) armRetransmit(now time.Time, interval time.Duration) {
	ct.timer = pendingTimer{kind: timerRetransmit, deadline: now.Add(interval), interval: interval}
}

func (ct *ClientTransaction) armQuench(now time.Time) {
	if ct.reliable {
		ct.state = StateTerminated
		ct.timer.clear()
		return
	}
	d := T4
	if ct.isInvite {
		d = 32 * time.Second // Timer D floor, RFC3261 §17.1.1.2
	}
	ct.timer = pendingTimer{kind: timerQuench, deadline: now.Add(d)}
}

// NextDeadline reports when Poll should next be called, or the zero
// Time if the transaction has no pending timer (Terminated).
func (ct *ClientTransaction) NextDeadline() (time.Time, bool) {
	if !ct.timer.active() {
		return time.Time{}, false
	}
	return ct.timer.deadline, true
}

// Poll advances time to now, firing whatever timer has expired. It
// returns the event the firing produced, if any.
func (ct *ClientTransaction) Poll(now time.Time) (Event, error) {
	if !ct.timer.active() || now.Before(ct.timer.deadline) {
		return Event{}, nil
	}
	switch ct.timer.kind {
	case timerRetransmit:
		if err := ct.tp.Send(ct.target, ct.raw); err != nil {
			return Event{}, err
		}
		next := ct.timer.interval * 2
		if next > ct.t2 {
			next = ct.t2
		}
		ct.armRetransmit(now, next)
		return Event{}, nil
	case timerAbsolute:
		ct.state = StateTerminated
		ct.timer.clear()
		return Event{Kind: EventTimeout}, ErrRequestTimedOut
	case timerQuench:
		ct.state = StateTerminated
		ct.timer.clear()
		return Event{Kind: EventTerminated}, nil
	}
	return Event{}, nil
}

// Deliver feeds an inbound response matched to this transaction by the
// manager. now is used to reset/cancel timers per state.
func (ct *ClientTransaction) Deliver(now time.Time, resp *message.Response) (Event, error) {
	if ct.state == StateTerminated {
		return Event{}, ErrInvalidState
	}
	switch {
	case resp.IsProvisional():
		if ct.state == StateCalling || ct.state == StateTrying {
			ct.state = StateProceeding
		}
		if !ct.reliable && ct.isInvite {
			ct.timer.clear() // INVITE: provisional stops Timer A retransmission
		}
		return Event{Kind: EventProvisional, Response: resp}, nil
	case resp.Is2xx() && ct.isInvite:
		// RFC6026: the client transaction's job ends here; any
		// retransmitted 2xx must still reach the session layer so it
		// can re-ACK, but the transaction itself is done.
		ct.state = StateAccepted
		ct.timer.clear()
		return Event{Kind: EventAccepted, Response: resp}, nil
	default:
		ct.state = StateCompleted
		ct.armQuench(now)
		kind := EventFinal
		return Event{Kind: kind, Response: resp}, nil
	}
}

// Cancel is only meaningful for an INVITE client transaction still in
// Calling/Proceeding; it does not itself send CANCEL (that is a
// sibling transaction, see cancel_support.go), it only reports whether
// sending one now is legal.
func (ct *ClientTransaction) Cancel() error {
	if !ct.isInvite || (ct.state != StateCalling && ct.state != StateProceeding) {
		return ErrCannotCancel
	}
	return nil
}
