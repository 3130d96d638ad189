package session

import "time"

// pendingTimer is the same flat single-deadline bookkeeping the
// transaction package uses, duplicated here rather than exported
// across packages: the INVITE session's timers (100rel retransmit,
// session-refresh deadline) are a distinct concern from RFC3261
// transaction timers even though the shape is identical.
type pendingTimer struct {
	deadline time.Time
	armed    bool
}

func (t *pendingTimer) arm(deadline time.Time) { t.deadline, t.armed = deadline, true }
func (t *pendingTimer) clear()                 { *t = pendingTimer{} }
func (t *pendingTimer) active() bool           { return t.armed }
