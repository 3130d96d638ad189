package session

import (
	"time"

	"github.com/nordcall/rtcstack/sip/transaction"
)

// ReliableProvisional implements RFC3262 100rel: a provisional response
// sent with Require: 100rel carries a monotonically increasing RSeq
// and is retransmitted at T1, doubling, until a matching PRACK arrives
// or 64·T1 elapses, at which point the session abandons it with
// RequestTerminated. Only one reliable provisional is
// outstanding at a time, matching RFC3262's serialization requirement.
type ReliableProvisional struct {
	lastRSeq uint32
	raw      []byte
	cseq     uint32
	method   string
	timer    pendingTimer
	interval time.Duration
	deadline time.Time
	start    time.Time
}

// NextRSeq allocates the next RSeq value for a new reliable provisional.
func (r *ReliableProvisional) NextRSeq() uint32 {
	r.lastRSeq++
	return r.lastRSeq
}

// Send arms retransmission for a just-sent reliable provisional. raw is
// the serialized response, kept for resending; cseq/method identify
// the request it answers, for matching the PRACK's RAck.
func (r *ReliableProvisional) Send(now time.Time, raw []byte, cseq uint32, method string) {
	r.raw, r.cseq, r.method = raw, cseq, method
	r.interval = transaction.T1
	r.start = now
	r.timer.arm(now.Add(r.interval))
}

// NextDeadline reports when Poll should fire next.
func (r *ReliableProvisional) NextDeadline() (time.Time, bool) {
	if !r.timer.active() {
		return time.Time{}, false
	}
	return r.timer.deadline, true
}

// PollResult tells the caller what happened on a Poll call.
type PollResult int

const (
	PollNothing PollResult = iota
	PollRetransmit
	PollExhausted // 64*T1 reached: abandon with RequestTerminated
)

// Poll advances to now. On PollRetransmit the caller must resend Raw().
func (r *ReliableProvisional) Poll(now time.Time) PollResult {
	if !r.timer.active() || now.Before(r.timer.deadline) {
		return PollNothing
	}
	if now.Sub(r.start) >= 64*transaction.T1 {
		r.timer.clear()
		return PollExhausted
	}
	r.interval *= 2
	if r.interval > transaction.T2 {
		r.interval = transaction.T2
	}
	r.timer.arm(now.Add(r.interval))
	return PollRetransmit
}

// Raw returns the last-sent provisional's bytes, for a retransmit.
func (r *ReliableProvisional) Raw() []byte { return r.raw }

// AckByPRACK matches an inbound PRACK's RAck triple (rseq, cseq,
// method) against the outstanding reliable provisional. On a match it
// stops retransmission.
func (r *ReliableProvisional) AckByPRACK(rseq uint32, cseq uint32, method string) bool {
	if !r.timer.active() || rseq != r.lastRSeq || cseq != r.cseq || method != r.method {
		return false
	}
	r.timer.clear()
	return true
}
