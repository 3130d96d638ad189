package session

import (
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcall/rtcstack/media/keying"
	"github.com/nordcall/rtcstack/media/sdp"
	"github.com/nordcall/rtcstack/media/transport"
)

func opusCodec() sdp.Codec {
	return sdp.Codec{PayloadType: 111, Name: "opus", ClockRate: 48000, Channels: 2}
}

func newTestSession(bundle sdp.BundlePolicy, mux sdp.RTCPMuxPolicy) *SdpSession {
	neg := sdp.NewSession(bundle, mux, sdp.OriginInfo{Addr: "192.0.2.1", SessionID: 1})
	neg.AddMedia(&sdp.LocalMedia{MID: "0", Kind: "audio", Codecs: []sdp.Codec{opusCodec()}, Port: 6000, Addr: "192.0.2.1"})
	return New(neg, transport.DefaultConfig())
}

func TestSdpSession_BuildOffer_CreatesTransportWithSocketPair(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxNegotiate)
	s.BuildOffer()

	changes := s.DrainTransportChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, CreateSocketPair, changes[0].Kind)
	assert.Len(t, s.Transports, 1)
}

func TestSdpSession_BuildOffer_RequirePolicyCreatesSingleSocket(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxRequire)
	s.BuildOffer()

	changes := s.DrainTransportChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, CreateSocket, changes[0].Kind)
}

func TestSdpSession_Receive_BuffersUntilTransportReady(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxRequire)
	s.BuildOffer()
	s.DrainTransportChanges()

	tid := "kind-audio"
	require.Contains(t, s.Transports, tid)
	tr := s.Transports[tid]
	tr.Kind = transport.KindDTLS // force not-ready until keying completes

	s.Receive(time.Now(), tid, []byte{1, 2, 3})
	assert.Equal(t, 1, tr.PendingLen())
	assert.Empty(t, s.DrainEvents())
}

// negotiateLoopback drives an offer/answer exchange between s and a
// peer session that mirrors its media list, so NegotiatedCodec settles
// and syncTransports configures each transport's RtpSession.
func negotiateLoopback(t *testing.T, s *SdpSession) {
	t.Helper()
	offer := s.BuildOffer()

	peerNeg := sdp.NewSession(sdp.BundleBalanced, sdp.RTCPMuxRequire, sdp.OriginInfo{Addr: "192.0.2.2", SessionID: 2})
	peerNeg.AddMedia(&sdp.LocalMedia{MID: "0", Kind: "audio", Codecs: []sdp.Codec{opusCodec()}, Port: 7000, Addr: "192.0.2.2"})
	answer, _ := peerNeg.ApplyOffer(offer)

	s.ApplyAnswer(answer)
	s.DrainTransportChanges()
	s.DrainEvents()
}

func TestSdpSession_Receive_DeliversWhenReady(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxRequire)
	negotiateLoopback(t, s)

	tid := "kind-audio"
	require.NotNil(t, s.Transports[tid].RTP)

	pkt := rtp.Packet{
		Header:  rtp.Header{Version: 2, PayloadType: 111, SequenceNumber: 1, Timestamp: 160, SSRC: 42},
		Payload: []byte{9, 9, 9},
	}
	raw, err := pkt.Marshal()
	require.NoError(t, err)

	s.Receive(time.Now(), tid, raw)
	events := s.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventReceiveRTP, events[0].Kind)
	assert.Equal(t, []byte{9, 9, 9}, events[0].Packet)
}

func TestSdpSession_Receive_NonRTPBytesProduceNoEvent(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxRequire)
	negotiateLoopback(t, s)

	tid := "kind-audio"
	// First byte 9 classifies as neither STUN, DTLS, nor RTP/RTCP.
	s.Receive(time.Now(), tid, []byte{9, 9, 9})
	assert.Empty(t, s.DrainEvents())
}

func TestSdpSession_SubmitRTP_PacesAndEmitsSendData(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxRequire)
	negotiateLoopback(t, s)

	tid := "kind-audio"
	now := time.Now()
	require.NoError(t, s.SubmitRTP(now, tid, 0, []byte{1, 2, 3}, false))

	// Not due yet at an earlier instant.
	s.Poll(now.Add(-time.Second))
	assert.Empty(t, s.DrainEvents())

	s.Poll(now)
	events := s.DrainEvents()
	require.Len(t, events, 1)
	require.Equal(t, EventSendData, events[0].Kind)
	assert.Equal(t, 1, events[0].Component)

	var hdr rtp.Header
	n, err := hdr.Unmarshal(events[0].Bytes)
	require.NoError(t, err)
	assert.Equal(t, uint8(111), hdr.PayloadType)
	assert.Equal(t, []byte{1, 2, 3}, events[0].Bytes[n:])
}

func TestSdpSession_SubmitRTP_UnknownTransportErrors(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxRequire)
	err := s.SubmitRTP(time.Now(), "missing", 0, []byte{1}, false)
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestSdpSession_SubmitRTP_NoCodecYetErrors(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxRequire)
	s.BuildOffer()
	s.DrainTransportChanges()

	err := s.SubmitRTP(time.Now(), "kind-audio", 0, []byte{1}, false)
	assert.ErrorIs(t, err, ErrRTPNotNegotiated)
}

func TestSyncSDES_InstallsCryptoOnceBothCryptoLinesKnown(t *testing.T) {
	tr := transport.New("t0", transport.KindSDES, transport.DefaultConfig())
	localLine, _, err := keying.SelectAnswer([]keying.CryptoLine{{Tag: 1, Suite: "AES_CM_128_HMAC_SHA1_80"}}, onlyZeros{})
	require.NoError(t, err)
	remoteLine, _, err := keying.SelectAnswer([]keying.CryptoLine{{Tag: 1, Suite: "AES_CM_128_HMAC_SHA1_80"}}, onlyZeros{})
	require.NoError(t, err)

	m := &sdp.LocalMedia{Crypto: []string{localLine.Format()}, RemoteCrypto: []string{remoteLine.Format()}}
	syncSDES(tr, m)

	assert.NotNil(t, tr.Crypto)
}

// onlyZeros is a deterministic io.Reader for generating test key material.
type onlyZeros struct{}

func (onlyZeros) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestSdpSession_Timeout_NoTransportsReportsNotFound(t *testing.T) {
	s := newTestSession(sdp.BundleBalanced, sdp.RTCPMuxRequire)
	_, ok := s.Timeout(time.Now())
	assert.False(t, ok)
}
