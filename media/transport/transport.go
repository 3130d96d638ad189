package transport

import (
	"github.com/nordcall/rtcstack/media/ice"
	"github.com/nordcall/rtcstack/media/keying"
)

// Kind is the keying mechanism a Transport uses.
type Kind int

const (
	KindPlain Kind = iota
	KindSDES
	KindDTLS
)

// Config controls per-transport behavior not implied by Kind.
type Config struct {
	// PendingCap bounds how many inbound datagrams are buffered
	// before the transport has usable keying material (0 disables
	// buffering). See DESIGN.md's Open Question 1.
	PendingCap int
}

// DefaultConfig caps pre-ready datagram buffering at 100 entries.
func DefaultConfig() Config {
	return Config{PendingCap: 100}
}

// Transport is one Transport-ID's worth of state: the ICE agent (if
// ICE was offered), the keying mechanism and its connection state, the
// derived SRTP contexts once ready, and the bounded pre-ready
// datagram queue.
type Transport struct {
	ID      string
	Kind    Kind
	RtcpMux bool

	ICE   *ice.Agent // nil unless ICE was offered on this transport
	State *keying.TransportConnectionStateMachine

	Crypto *CryptoContexts // nil until keying completes
	RTP    *RtpSession     // nil until a codec is negotiated

	LocalRTPAddr, RemoteRTPAddr   string
	LocalRTCPAddr, RemoteRTCPAddr string // empty when RtcpMux

	pending *pendingQueue
}

// New creates a Transport in the given kind, starting in
// TransportConnectionState New.
func New(id string, kind Kind, cfg Config) *Transport {
	return &Transport{
		ID:      id,
		Kind:    kind,
		State:   keying.NewTransportConnectionStateMachine(),
		pending: newPendingQueue(cfg.PendingCap),
	}
}

// Ready reports whether this transport has usable SRTP contexts (or,
// for KindPlain, is always ready).
func (t *Transport) Ready() bool {
	return t.Kind == KindPlain || t.Crypto != nil
}

// BufferDatagram queues an inbound datagram that arrived before this
// transport was Ready, returning false if it was dropped due to the
// cap.
func (t *Transport) BufferDatagram(datagram []byte) bool {
	return t.pending.Push(datagram)
}

// DrainPending returns and clears every buffered datagram once the
// transport becomes Ready, in arrival order, for replay through the
// normal receive path.
func (t *Transport) DrainPending() [][]byte {
	return t.pending.Drain()
}

// PendingLen reports how many datagrams are currently buffered.
func (t *Transport) PendingLen() int { return t.pending.Len() }

// DroppedPending reports how many buffered datagrams were rejected
// due to the cap (observability counter per DESIGN.md).
func (t *Transport) DroppedPending() uint64 { return t.pending.Dropped() }

// SetCrypto installs the SRTP contexts once keying (DTLS or SDES)
// completes and marks the connection state Connected.
func (t *Transport) SetCrypto(c *CryptoContexts) error {
	t.Crypto = c
	return t.State.HandshakeComplete()
}

// ConfigureRTP lazily creates this transport's RtpSession on the first
// negotiated codec, and afterward just updates its outbound payload
// type/clock rate to match the latest re-offer.
func (t *Transport) ConfigureRTP(clockRate uint32, payloadType uint8) {
	if t.RTP == nil {
		t.RTP = NewRtpSession(clockRate, payloadType)
		return
	}
	t.RTP.ClockRate = clockRate
	t.RTP.PayloadType = payloadType
}
