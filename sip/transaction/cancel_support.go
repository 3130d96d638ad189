package transaction

import (
	"time"

	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/transport"
)

// SendCancel builds and sends a CANCEL for an outstanding INVITE client
// transaction (RFC3261 §9.1): same Request-URI, same branch, but its
// own transaction (Method "CANCEL" distinguishes the Key). Only legal
// while the INVITE transaction is still Calling/Proceeding; the caller
// must check ClientTransaction.Cancel() first, which this also does.
func (m *Manager) SendCancel(now time.Time, inviteCt *ClientTransaction, target string, tp transport.Transport) (*ClientTransaction, error) {
	if err := inviteCt.Cancel(); err != nil {
		return nil, err
	}
	cancelReq := message.NewCANCEL(inviteCt.request)
	ct, err := NewClientTransaction(now, cancelReq, target, tp)
	if err != nil {
		return nil, err
	}
	if err := m.store.putClient(ct); err != nil {
		return nil, err
	}
	return ct, nil
}
