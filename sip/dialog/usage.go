package dialog

import (
	"time"

	"github.com/nordcall/rtcstack/sip/message"
)

// Usage is a dialog-scoped request consumer — an INVITE session or a
// subscription. Usages are tried in insertion order; one that returns
// false lets the next usage see the request.
type Usage interface {
	Name() string
	Receive(now time.Time, req *message.Request) bool
}

// UsageList dispatches in-order-delivered requests to its registered
// usages, falling back to a caller-supplied default when none consume it.
type UsageList struct {
	usages []Usage
}

// Add registers a usage at the end of the dispatch order.
func (l *UsageList) Add(u Usage) { l.usages = append(l.usages, u) }

// Dispatch offers req to every usage in order, stopping at the first
// one that consumes it. Reports whether any usage did.
func (l *UsageList) Dispatch(now time.Time, req *message.Request) bool {
	for _, u := range l.usages {
		if u.Receive(now, req) {
			return true
		}
	}
	return false
}
