package session

import (
	"github.com/nordcall/rtcstack/media/sdp"
)

// TransportChangeKind is one of the four adapter obligations.
type TransportChangeKind int

const (
	CreateSocket TransportChangeKind = iota
	CreateSocketPair
	RemoveTransport
	RemoveRtcpSocket
)

// TransportChange is one action the adapter must satisfy before the
// next SDP produce/consume call: the engine emits these and the
// adapter is expected to apply them before calling back in. Kept as a
// small closed struct rather than a generic pub/sub event.
type TransportChange struct {
	Kind TransportChangeKind
	TID  string
}

// SdpSessionEventKind enumerates the SdpSessionEvent variants.
type SdpSessionEventKind int

const (
	EventMediaAdded SdpSessionEventKind = iota
	EventMediaChanged
	EventMediaRemoved
	EventIceGatheringState
	EventIceConnectionState
	EventTransportConnectionState
	EventSendData
	EventReceiveRTP
)

// SdpSessionEvent is a single typed event surfaced to the owner
// (typically the call façade). Only the fields relevant to Kind are
// populated.
type SdpSessionEvent struct {
	Kind SdpSessionEventKind

	MID        string
	Negotiated sdp.NegotiatedCodec
	Direction  sdp.Direction

	TID   string
	State string // gathering/connection/transport-connection state name

	Component int // 1=RTP, 2=RTCP, for SendData
	Bytes     []byte
	Target    string

	Packet []byte // raw RTP payload, for ReceiveRTP
}

func fromNegotiationEvent(tid string, e sdp.Event) SdpSessionEvent {
	kind := EventMediaAdded
	switch e.Kind {
	case sdp.MediaChanged:
		kind = EventMediaChanged
	case sdp.MediaRemoved:
		kind = EventMediaRemoved
	}
	return SdpSessionEvent{Kind: kind, MID: e.MID, Negotiated: e.Negotiated, Direction: e.Direction, TID: tid}
}
