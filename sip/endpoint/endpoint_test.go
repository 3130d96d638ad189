package endpoint

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcall/rtcstack/sip/message"
	"github.com/nordcall/rtcstack/sip/transport"
)

type recordingTransport struct {
	sent [][]byte
}

func (f *recordingTransport) Protocol() string  { return "udp" }
func (f *recordingTransport) IsReliable() bool  { return false }
func (f *recordingTransport) IsSecure() bool    { return false }
func (f *recordingTransport) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 5060}
}
func (f *recordingTransport) Send(target string, data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

// claimAllLayer claims every request for the methods it declares.
type claimAllLayer struct {
	methods []string
	claimed []*message.Request
}

func (l *claimAllLayer) Name() string { return "test-layer" }
func (l *claimAllLayer) Init(caps *Capabilities) {
	for _, m := range l.methods {
		caps.AddAllow(m)
	}
}
func (l *claimAllLayer) Receive(now time.Time, handle *RequestHandle) {
	for _, m := range l.methods {
		if handle.Request.Method == m {
			handle.Take()
			l.claimed = append(l.claimed, handle.Request)
			return
		}
	}
}

func rawOptionsRequest(t *testing.T) []byte {
	t.Helper()
	uri, err := message.ParseURI("sip:bob@192.0.2.2")
	require.NoError(t, err)
	req := &message.Request{Method: "OPTIONS", RequestURI: uri}
	req.SetHeader("Via", "SIP/2.0/UDP 192.0.2.3:5060;branch="+message.NewBranch())
	req.SetHeader("From", "<sip:alice@192.0.2.3>;tag="+message.NewTag())
	req.SetHeader("To", "<sip:bob@192.0.2.2>")
	req.SetHeader("Call-ID", message.NewCallID())
	req.SetHeader("CSeq", "1 OPTIONS")
	req.SetHeader("Content-Length", "0")
	return []byte(req.String())
}

func TestEndpoint_ClaimedRequestDoesNotGetDefaultRejection(t *testing.T) {
	registry := transport.NewRegistry()
	tp := &recordingTransport{}
	require.NoError(t, registry.Register(tp))

	ep := NewEndpoint(registry, true)
	layer := &claimAllLayer{methods: []string{"OPTIONS"}}
	ep.AddLayer(layer)
	ep.Init()

	assert.Equal(t, []string{"OPTIONS"}, ep.Allow())

	result := ep.HandleInbound(time.Unix(0, 0), rawOptionsRequest(t), "192.0.2.3:5060", tp)
	assert.Equal(t, ResultRequestClaimed, result.Kind)
	assert.Len(t, layer.claimed, 1)
	assert.Empty(t, tp.sent, "no default rejection sent once a layer claimed it")
}

func TestEndpoint_UnclaimedUnknownMethodGets404(t *testing.T) {
	registry := transport.NewRegistry()
	tp := &recordingTransport{}
	require.NoError(t, registry.Register(tp))

	ep := NewEndpoint(registry, true)
	ep.AddLayer(&claimAllLayer{methods: []string{"INVITE"}})
	ep.Init()

	result := ep.HandleInbound(time.Unix(0, 0), rawOptionsRequest(t), "192.0.2.3:5060", tp)
	assert.Equal(t, ResultRequestRejected, result.Kind)
	require.Len(t, tp.sent, 1)
	resp, err := message.NewParser(true).ParseMessage(tp.sent[0])
	require.NoError(t, err)
	assert.Equal(t, 404, resp.(*message.Response).StatusCode)
}
