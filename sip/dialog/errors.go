// Package dialog implements the dialog/usage layer: it
// identifies in-dialog requests, enforces RFC3261 §12.2.2's monotonic
// CSeq ordering (buffering out-of-order arrivals and draining them as
// gaps close), and dispatches in delivery order to usages (INVITE
// session, subscription) in insertion order.
package dialog

import "errors"

var (
	ErrInvalidDialog   = errors.New("sip/dialog: invalid dialog")
	ErrDialogExists    = errors.New("sip/dialog: dialog already registered")
	ErrDialogNotFound  = errors.New("sip/dialog: no dialog matches this key")
	ErrNoUsageConsumed = errors.New("sip/dialog: no usage consumed the request")
)
