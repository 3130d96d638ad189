package session

// AckSlot is the "awaited-ack" one-shot notification:
// the acceptor registers the initial INVITE's CSeq, and the dialog
// layer delivers a matching ACK exactly once; anything arriving after
// the slot is consumed (including a legitimate-looking late ACK) is
// dropped rather than re-delivered.
type AckSlot struct {
	cseq     uint32
	armed    bool
	consumed bool
}

// Arm registers cseq as the CSeq this slot awaits an ACK for.
func (s *AckSlot) Arm(cseq uint32) {
	s.cseq, s.armed, s.consumed = cseq, true, false
}

// Deliver reports whether an inbound ACK with the given CSeq satisfies
// this slot. True only the first time a matching CSeq arrives.
func (s *AckSlot) Deliver(cseq uint32) bool {
	if !s.armed || s.consumed || cseq != s.cseq {
		return false
	}
	s.consumed = true
	return true
}

// Consumed reports whether the slot has already been filled.
func (s *AckSlot) Consumed() bool { return s.consumed }
