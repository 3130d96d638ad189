package dialog

import "github.com/nordcall/rtcstack/sip/message"

// Sequence enforces the ordering rule: a request with
// CSeq < next_peer_cseq is delivered immediately (retransmit/ACK);
// CSeq == next_peer_cseq is delivered and advances the expectation,
// draining any buffered requests that close a gap; CSeq >
// next_peer_cseq is buffered until the gap closes. A CSeq 2^31 ahead of
// expectation is treated as a 32-bit wraparound and dropped rather than
// buffered forever.
//
// Grounded on pkg/sip/dialog/sequence.go's SequenceManager, reworked
// from a same/greater boolean check into a full buffer-and-drain
// sequencer (that one only validates ordering, it never reorders).
type Sequence struct {
	next    uint32
	pending map[uint32]*message.Request
}

// NewSequence starts a sequence expecting cseq as the first in-dialog
// request from the peer.
func NewSequence(expected uint32) *Sequence {
	return &Sequence{next: expected}
}

// Next reports the CSeq this sequence currently expects next.
func (s *Sequence) Next() uint32 { return s.next }

const wrapThreshold = int64(1) << 31

// Deliver feeds an inbound request's CSeq and returns, in increasing
// CSeq order, every request now ready for usage dispatch: just req
// itself for a retransmit/in-order arrival (possibly followed by
// whatever its arrival unblocked), or nil if it had to be buffered or
// was dropped as a stale wraparound.
func (s *Sequence) Deliver(cseq uint32, req *message.Request) []*message.Request {
	delta := int64(cseq) - int64(s.next)

	switch {
	case delta < 0:
		// Below expectation: a retransmit or an ACK sharing the
		// INVITE's CSeq. Deliver as-is without touching state.
		return []*message.Request{req}

	case delta >= wrapThreshold:
		// Far enough ahead to be a 32-bit wrap rather than a real gap;
		// the dialog does not wait indefinitely for it.
		return nil

	case delta == 0:
		ready := []*message.Request{req}
		s.next++
		for {
			next, ok := s.pending[s.next]
			if !ok {
				break
			}
			ready = append(ready, next)
			delete(s.pending, s.next)
			s.next++
		}
		return ready

	default:
		if s.pending == nil {
			s.pending = make(map[uint32]*message.Request)
		}
		s.pending[cseq] = req
		return nil
	}
}
