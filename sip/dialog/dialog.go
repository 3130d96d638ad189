package dialog

import (
	"time"

	"github.com/nordcall/rtcstack/sip/message"
)

// Dialog holds per-dialog CSeq-ordering state and the usage map keyed
// by dialog Key. Grounded on pkg/sip/dialog/dialog.go's
// Dialog type, with the SequenceManager's validate-only check replaced
// by Sequence's buffer-and-drain ordering.
type Dialog struct {
	Key   Key
	seq   *Sequence
	usages UsageList
}

// New creates a dialog expecting expectedCSeq as the peer's first
// in-dialog request CSeq.
func New(key Key, expectedCSeq uint32) *Dialog {
	return &Dialog{Key: key, seq: NewSequence(expectedCSeq)}
}

// AddUsage registers a usage in dispatch order.
func (d *Dialog) AddUsage(u Usage) { d.usages.Add(u) }

// Receive applies the CSeq ordering rule to an inbound in-dialog
// request and dispatches whatever becomes ready, in order, to the
// usage list. Returns the subset of requests nothing consumed (the
// caller turns these into a default failure response per §4.5).
func (d *Dialog) Receive(now time.Time, cseq uint32, req *message.Request) (unconsumed []*message.Request) {
	ready := d.seq.Deliver(cseq, req)
	for _, r := range ready {
		if !d.usages.Dispatch(now, r) {
			unconsumed = append(unconsumed, r)
		}
	}
	return unconsumed
}

// NextPeerCSeq exposes the sequence's current expectation (for tests
// and diagnostics).
func (d *Dialog) NextPeerCSeq() uint32 { return d.seq.Next() }
