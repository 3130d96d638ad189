package transaction

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcall/rtcstack/sip/message"
)

// fakeTransport records every Send call instead of touching a socket,
// standing in for the adapter-owned transport the real endpoint wires.
type fakeTransport struct {
	reliable bool
	sent     [][]byte
}

func (f *fakeTransport) Protocol() string   { return "udp" }
func (f *fakeTransport) IsReliable() bool   { return f.reliable }
func (f *fakeTransport) IsSecure() bool     { return false }
func (f *fakeTransport) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 5060}
}
func (f *fakeTransport) Send(target string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, cp)
	return nil
}

func mustParseURI(t *testing.T, raw string) *message.URI {
	t.Helper()
	u, err := message.ParseURI(raw)
	require.NoError(t, err)
	return u
}

func newOptionsRequest(t *testing.T) *message.Request {
	req := &message.Request{Method: "OPTIONS", RequestURI: mustParseURI(t, "sip:bob@192.0.2.2")}
	req.SetHeader("Via", "SIP/2.0/UDP 192.0.2.1:5060;branch="+message.NewBranch())
	req.SetHeader("From", "<sip:alice@192.0.2.1>;tag="+message.NewTag())
	req.SetHeader("To", "<sip:bob@192.0.2.2>")
	req.SetHeader("Call-ID", message.NewCallID())
	req.SetHeader("CSeq", "1 OPTIONS")
	return req
}

func newInviteRequest(t *testing.T) *message.Request {
	req := &message.Request{Method: "INVITE", RequestURI: mustParseURI(t, "sip:bob@192.0.2.2")}
	req.SetHeader("Via", "SIP/2.0/UDP 192.0.2.1:5060;branch="+message.NewBranch())
	req.SetHeader("From", "<sip:alice@192.0.2.1>;tag="+message.NewTag())
	req.SetHeader("To", "<sip:bob@192.0.2.2>")
	req.SetHeader("Call-ID", message.NewCallID())
	req.SetHeader("CSeq", "1 INVITE")
	req.SetHeader("Contact", "<sip:alice@192.0.2.1>")
	return req
}

func responseTo(req *message.Request, status int, reason string) *message.Response {
	return message.NewResponse(req, status, reason)
}

// Scenario 1: non-INVITE client retransmit then success.
func TestClientTransaction_NonInviteRetransmitThenSuccess(t *testing.T) {
	tp := &fakeTransport{}
	req := newOptionsRequest(t)
	start := time.Unix(0, 0)

	ct, err := NewClientTransaction(start, req, "192.0.2.2:5060", tp, WithT1(50*time.Millisecond))
	require.NoError(t, err)
	require.Len(t, tp.sent, 1, "initial send")

	// Drive Poll across 50/100/200ms boundaries; each firing resends.
	for _, elapsed := range []time.Duration{50 * time.Millisecond, 150 * time.Millisecond, 350 * time.Millisecond} {
		now := start.Add(elapsed)
		d, ok := ct.NextDeadline()
		require.True(t, ok)
		require.False(t, now.Before(d), "expected timer to have fired by %s", elapsed)
		_, err := ct.Poll(now)
		require.NoError(t, err)
	}
	assert.Len(t, tp.sent, 4, "initial + 3 retransmits at 50/100/200ms")

	resp := responseTo(req, 200, "OK")
	ev, err := ct.Deliver(start.Add(300*time.Millisecond), resp)
	require.NoError(t, err)
	assert.Equal(t, EventFinal, ev.Kind)
	assert.Equal(t, 200, ev.Response.StatusCode)

	// Property 3 is an INVITE-only guarantee; for non-INVITE the final
	// response stops retransmission outright (no Accepted state).
	sentBefore := len(tp.sent)
	_, err = ct.Poll(start.Add(10 * time.Second))
	require.NoError(t, err)
	assert.Len(t, tp.sent, sentBefore, "no further retransmits after the final response")
}

// Scenario 2: INVITE cancellation sequence.
func TestClientTransaction_InviteCancellation(t *testing.T) {
	tp := &fakeTransport{}
	req := newInviteRequest(t)
	start := time.Unix(0, 0)

	ct, err := NewClientTransaction(start, req, "192.0.2.2:5060", tp)
	require.NoError(t, err)

	trying := responseTo(req, 100, "Trying")
	ev, err := ct.Deliver(start.Add(20*time.Millisecond), trying)
	require.NoError(t, err)
	assert.Equal(t, EventProvisional, ev.Kind)
	assert.Equal(t, StateProceeding, ct.State())

	require.NoError(t, ct.Cancel())

	mgr := NewManager()
	require.NoError(t, mgr.store.putClient(ct))
	cancelTp := &fakeTransport{}
	cancelCt, err := mgr.SendCancel(start.Add(30*time.Millisecond), ct, "192.0.2.2:5060", cancelTp)
	require.NoError(t, err)
	assert.Equal(t, ct.Key().Branch, cancelCt.Key().Branch, "CANCEL reuses the INVITE branch")
	assert.Equal(t, "CANCEL", cancelCt.Key().Method)

	sentBeforeTerminated := len(tp.sent)
	terminated := responseTo(req, 487, "Request Terminated")
	ev, err = ct.Deliver(start.Add(40*time.Millisecond), terminated)
	require.NoError(t, err)
	assert.Equal(t, EventFinal, ev.Kind)
	assert.Equal(t, 487, ev.Response.StatusCode)

	// Property 3: once Accepted an INVITE transaction never retransmits
	// the original INVITE again; here we never reached Accepted (487 is
	// non-2xx) but the same "no more INVITE resends after 100" still
	// holds because the provisional cleared Timer A.
	assert.Equal(t, sentBeforeTerminated, len(tp.sent), "no INVITE resend happened between 100 and 487")

	// Quench timer (Timer D) then Terminated.
	_, err = ct.Poll(start.Add(40*time.Millisecond + 33*time.Second))
	require.NoError(t, err)
	assert.Equal(t, StateTerminated, ct.State())
}

// Property 3: after Accepted, polling never re-sends the INVITE.
func TestClientTransaction_AcceptedNeverRetransmitsInvite(t *testing.T) {
	tp := &fakeTransport{}
	req := newInviteRequest(t)
	start := time.Unix(0, 0)

	ct, err := NewClientTransaction(start, req, "192.0.2.2:5060", tp)
	require.NoError(t, err)

	ok := responseTo(req, 200, "OK")
	ev, err := ct.Deliver(start.Add(10*time.Millisecond), ok)
	require.NoError(t, err)
	assert.Equal(t, EventAccepted, ev.Kind)
	assert.Equal(t, StateAccepted, ct.State())

	sent := len(tp.sent)
	_, ok2 := ct.NextDeadline()
	assert.False(t, ok2, "Accepted transaction has no pending timer of its own")
	assert.Len(t, tp.sent, sent)
}

// Property 1: transaction keys are unique per (branch, sent-by, method, role).
func TestKey_Uniqueness(t *testing.T) {
	mgr := NewManager()
	tp := &fakeTransport{}
	start := time.Unix(0, 0)

	req1 := newOptionsRequest(t)
	ct1, err := mgr.SendRequest(start, req1, "192.0.2.2:5060", tp)
	require.NoError(t, err)

	req2 := newOptionsRequest(t) // fresh branch
	ct2, err := mgr.SendRequest(start, req2, "192.0.2.2:5060", tp)
	require.NoError(t, err)

	assert.NotEqual(t, ct1.Key(), ct2.Key())

	// Reusing the exact same branch/method/role is rejected as a
	// duplicate transaction key.
	dup := req1.Clone()
	_, err = mgr.SendRequest(start, dup, "192.0.2.2:5060", tp)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestServerTransaction_RetransmitAbsorption(t *testing.T) {
	tp := &fakeTransport{}
	req := newOptionsRequest(t)
	start := time.Unix(0, 0)

	mgr := NewManager()
	result, err := mgr.HandleRequest(req, "192.0.2.2:5061", tp)
	require.NoError(t, err)
	require.Equal(t, DispositionNew, result.Disposition)

	require.NoError(t, result.Server.Respond(start, responseTo(req, 200, "OK")))
	require.Len(t, tp.sent, 1)

	// A retransmitted OPTIONS (same Via branch) must not re-invoke the
	// transaction user; it just resends the cached 200.
	result2, err := mgr.HandleRequest(req, "192.0.2.2:5061", tp)
	require.NoError(t, err)
	assert.Equal(t, DispositionRetransmission, result2.Disposition)
	assert.Len(t, tp.sent, 2)
}
