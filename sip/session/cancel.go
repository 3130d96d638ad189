package session

// CancelSignal is the cancellation channel: it fires
// when an inbound CANCEL or an early BYE matches this session's
// transaction branch and CSeq. Sans-I/O form of a Go channel — the
// caller polls Fired()/Reason() instead of receiving from it, since the
// session has no goroutine of its own to block in a select.
type CancelSignal struct {
	fired  bool
	reason string
}

// Fire records a cancellation. Returns true the first time (subsequent
// calls, e.g. a retransmitted CANCEL, are no-ops).
func (c *CancelSignal) Fire(reason string) bool {
	if c.fired {
		return false
	}
	c.fired, c.reason = true, reason
	return true
}

// Fired reports whether the session has been cancelled.
func (c *CancelSignal) Fired() bool { return c.fired }

// Reason returns the cancellation reason ("CANCEL" or "early-BYE").
func (c *CancelSignal) Reason() string { return c.reason }
