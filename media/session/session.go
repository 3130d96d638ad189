package session

import (
	"time"

	"github.com/pion/rtp"
	pionsdp "github.com/pion/sdp/v3"

	"github.com/nordcall/rtcstack/media/keying"
	"github.com/nordcall/rtcstack/media/sdp"
	"github.com/nordcall/rtcstack/media/transport"
)

// SdpSession composes the negotiation engine with one Transport per
// bundle group and surfaces every outcome as typed events: the owner
// drives it with receive/poll/timeout and drains
// TransportChange/SdpSessionEvent queues in between. Grounded on
// pkg/media_sdp/handler.go's
// ProcessOffer/ProcessAnswer composition of codec selection +
// transport + RTP session creation, restructured from that handler's
// single eager call into the explicit build/apply + drain shape.
type SdpSession struct {
	Negotiation *sdp.Session
	Config      transport.Config

	Transports map[string]*transport.Transport

	changes []TransportChange
	events  []SdpSessionEvent
}

// New creates an SdpSession around an already-configured negotiation
// engine (bundle/rtcp-mux policy and origin already set).
func New(negotiation *sdp.Session, cfg transport.Config) *SdpSession {
	return &SdpSession{
		Negotiation: negotiation,
		Config:      cfg,
		Transports:  map[string]*transport.Transport{},
	}
}

// DrainTransportChanges returns and clears every TransportChange the
// adapter must satisfy before the next SDP produce/consume call.
func (s *SdpSession) DrainTransportChanges() []TransportChange {
	out := s.changes
	s.changes = nil
	return out
}

// DrainEvents returns and clears every SdpSessionEvent raised since
// the last drain.
func (s *SdpSession) DrainEvents() []SdpSessionEvent {
	out := s.events
	s.events = nil
	return out
}

// BuildOffer produces a local offer, synchronizing the Transports map
// (and queuing the corresponding TransportChange actions) to match the
// bundle assignment the offer carries.
func (s *SdpSession) BuildOffer() *pionsdp.SessionDescription {
	offer := s.Negotiation.BuildOffer()
	s.syncTransports()
	return offer
}

// ApplyAnswer consumes a remote answer, emitting MediaAdded/Changed/
// Removed events and, where the answer confirmed rtcp-mux on a
// transport this session provisioned an RTCP socket pair for, a
// RemoveRtcpSocket change downgrading it to mux-only.
func (s *SdpSession) ApplyAnswer(answer *pionsdp.SessionDescription) {
	negEvents := s.Negotiation.ApplyAnswer(answer)
	s.absorbNegotiationEvents(negEvents)
	s.syncTransports()
	s.reconcileMux()
}

// ApplyOffer consumes a remote offer and returns the answer to send,
// emitting the same event/change bookkeeping as ApplyAnswer.
func (s *SdpSession) ApplyOffer(offer *pionsdp.SessionDescription) *pionsdp.SessionDescription {
	answer, negEvents := s.Negotiation.ApplyOffer(offer)
	s.absorbNegotiationEvents(negEvents)
	s.syncTransports()
	s.reconcileMux()
	return answer
}

func (s *SdpSession) absorbNegotiationEvents(negEvents []sdp.Event) {
	assignment := sdp.AssignTransports(s.Negotiation.Medias, s.Negotiation.Bundle)
	for _, e := range negEvents {
		tid := assignment[e.MID]
		s.events = append(s.events, fromNegotiationEvent(tid, e))
	}
}

// syncTransports reconciles s.Transports against the negotiation
// engine's current bundle assignment: new transport IDs get a fresh
// Transport plus a CreateSocket/CreateSocketPair change, transport IDs
// no longer referenced get removed plus a RemoveTransport change.
func (s *SdpSession) syncTransports() {
	assignment := sdp.AssignTransports(s.Negotiation.Medias, s.Negotiation.Bundle)

	wanted := map[string]bool{}
	for _, m := range s.Negotiation.Medias {
		tid := assignment[m.MID]
		wanted[tid] = true
		if _, ok := s.Transports[tid]; ok {
			continue
		}
		tr := transport.New(tid, kindForMedia(m), s.Config)
		tr.RtcpMux = s.Negotiation.Mux == sdp.RTCPMuxRequire
		s.Transports[tid] = tr
		if tr.RtcpMux {
			s.changes = append(s.changes, TransportChange{Kind: CreateSocket, TID: tid})
		} else {
			s.changes = append(s.changes, TransportChange{Kind: CreateSocketPair, TID: tid})
		}
	}

	for _, m := range s.Negotiation.Medias {
		tid := assignment[m.MID]
		tr, ok := s.Transports[tid]
		if !ok {
			continue
		}
		s.syncICE(tr, m)
		if neg, ok := s.Negotiation.NegotiatedCodec(m.MID); ok {
			tr.ConfigureRTP(uint32(neg.ClockRate), uint8(neg.SendPT))
		}
		if tr.Kind == transport.KindSDES && tr.Crypto == nil {
			syncSDES(tr, m)
		}
	}

	for tid := range s.Transports {
		if !wanted[tid] {
			delete(s.Transports, tid)
			s.changes = append(s.changes, TransportChange{Kind: RemoveTransport, TID: tid})
		}
	}
}

// reconcileMux downgrades a provisioned RTCP socket pair to mux-only
// once the peer's answer confirms rtcp-mux on that media's transport
// (Negotiate policy: both sides offer the attribute, whichever side
// learns the peer accepted it emits the downgrade once).
func (s *SdpSession) reconcileMux() {
	if s.Negotiation.Mux != sdp.RTCPMuxNegotiate {
		return
	}
	assignment := sdp.AssignTransports(s.Negotiation.Medias, s.Negotiation.Bundle)
	for _, m := range s.Negotiation.Medias {
		if !m.RemoteRtcpMux {
			continue
		}
		tid := assignment[m.MID]
		tr, ok := s.Transports[tid]
		if !ok || tr.RtcpMux {
			continue
		}
		tr.RtcpMux = true
		s.changes = append(s.changes, TransportChange{Kind: RemoveRtcpSocket, TID: tid})
	}
}

// syncSDES installs tr's SRTP contexts once both sides' a=crypto lines
// are known: our own freshly generated line (set either by the
// offerer's caller or by the answerer's selectLocalCrypto) keys the
// outbound context, the peer's line keys the inbound one.
func syncSDES(tr *transport.Transport, m *sdp.LocalMedia) {
	if len(m.Crypto) == 0 || len(m.RemoteCrypto) == 0 {
		return
	}
	local, ok := keying.ParseCryptoLine(m.Crypto[0])
	if !ok {
		return
	}
	remote, ok := keying.ParseCryptoLine(m.RemoteCrypto[0])
	if !ok {
		return
	}
	ctx, err := transport.NewSDESContexts(local, remote)
	if err != nil {
		return
	}
	tr.State.Start()
	tr.SetCrypto(ctx)
}

func kindForMedia(m *sdp.LocalMedia) transport.Kind {
	switch {
	case m.Fingerprint != "":
		return transport.KindDTLS
	case len(m.Crypto) > 0:
		return transport.KindSDES
	default:
		return transport.KindPlain
	}
}

// receive delivers an inbound datagram arriving on transport tid.
// Packets arriving before that transport is Ready are buffered in its
// pending-datagram queue rather than dropped, up to its cap.
func (s *SdpSession) Receive(now time.Time, tid string, pkt []byte) {
	tr, ok := s.Transports[tid]
	if !ok {
		return
	}
	if !tr.Ready() {
		tr.BufferDatagram(pkt)
		return
	}
	s.deliver(tid, tr, pkt)
}

// deliver demuxes a datagram on a (possibly rtcp-mux'd) transport
// socket by its first byte, unprotects it if the transport's keying
// has completed, and hands RTP payloads to the jitter buffer.
func (s *SdpSession) deliver(tid string, tr *transport.Transport, pkt []byte) {
	switch keying.Classify(pkt) {
	case keying.ProtocolRTP:
		s.deliverRTP(tid, tr, pkt)
	case keying.ProtocolRTCP:
		s.deliverRTCP(tr, pkt)
	default:
		// STUN/DTLS bytes are routed to the ICE agent/DTLS handshake by
		// the adapter before reaching SdpSession.Receive.
	}
}

func (s *SdpSession) deliverRTP(tid string, tr *transport.Transport, pkt []byte) {
	if tr.RTP == nil {
		return
	}
	plain := pkt
	if tr.Crypto != nil {
		var err error
		plain, err = tr.Crypto.Unprotect(pkt)
		if err != nil {
			return
		}
	}

	var hdr rtp.Header
	n, err := hdr.Unmarshal(plain)
	if err != nil {
		return
	}
	payload := plain[n:]

	tr.RTP.PacketsReceived++
	tr.RTP.Jitter.Push(hdr.SequenceNumber, hdr.Timestamp, payload)

	for {
		entry, ok := tr.RTP.Jitter.Pop(hdr.Timestamp)
		if !ok {
			break
		}
		s.events = append(s.events, SdpSessionEvent{Kind: EventReceiveRTP, TID: tid, Packet: entry.Payload})
	}
}

func (s *SdpSession) deliverRTCP(tr *transport.Transport, pkt []byte) {
	if tr.Crypto == nil {
		return
	}
	if _, err := tr.Crypto.UnprotectRTCP(pkt); err != nil {
		return
	}
}

// SubmitRTP queues an outbound RTP payload on tid's pacer to be sent at
// sendAt, timestamped from mediaTime. The packet is actually marshaled,
// protected and emitted as an EventSendData from the next Poll call
// once its send_at is due.
func (s *SdpSession) SubmitRTP(sendAt time.Time, tid string, mediaTime time.Duration, payload []byte, marker bool) error {
	tr, ok := s.Transports[tid]
	if !ok {
		return ErrUnknownTransport
	}
	if tr.RTP == nil {
		return ErrRTPNotNegotiated
	}
	tr.RTP.Pacer.Push(sendAt, mediaTime, payload, tr.RTP.PayloadType, marker, nil)
	return nil
}

// Poll drives time-based work (ICE checks, keepalives, paced RTP
// sends) across every transport's agent.
func (s *SdpSession) Poll(now time.Time) {
	for tid, tr := range s.Transports {
		if tr.ICE != nil {
			for _, txn := range tr.ICE.PendingChecks(now) {
				if txn.Poll(now) {
					s.events = append(s.events, SdpSessionEvent{Kind: EventIceConnectionState, TID: tid, State: tr.ICE.ConnectionState()})
				}
			}
			if tr.ICE.KeepaliveDue(now) {
				tr.ICE.MarkKeepaliveSent(now)
			}
		}
		s.pollRTP(now, tid, tr)
	}
}

// pollRTP drains every due paced packet on tr, marshals it, protects
// it when the transport's keying has completed, and emits the result
// as an EventSendData for the adapter to put on the wire.
func (s *SdpSession) pollRTP(now time.Time, tid string, tr *transport.Transport) {
	if tr.RTP == nil {
		return
	}
	for {
		paced, ok := tr.RTP.Pacer.Pop(now)
		if !ok {
			break
		}

		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         paced.Marker,
				PayloadType:    paced.PayloadType,
				SequenceNumber: paced.SequenceNumber,
				Timestamp:      paced.Timestamp,
				SSRC:           tr.RTP.SSRC,
			},
			Payload: paced.Payload,
		}
		raw, err := pkt.Marshal()
		if err != nil {
			continue
		}

		out := raw
		if tr.Crypto != nil {
			out, err = tr.Crypto.Protect(&pkt.Header, raw)
			if err != nil {
				continue
			}
		}

		tr.RTP.PacketsSent++
		s.events = append(s.events, SdpSessionEvent{Kind: EventSendData, TID: tid, Component: 1, Bytes: out, Target: tr.RemoteRTPAddr})
	}
}

// Timeout returns the duration until the next time-based work is due
// across every transport, or false if nothing is scheduled.
func (s *SdpSession) Timeout(now time.Time) (time.Duration, bool) {
	var best time.Time
	found := false
	for _, tr := range s.Transports {
		if tr.ICE != nil {
			if d, ok := tr.ICE.NextDeadline(); ok && (!found || d.Before(best)) {
				best, found = d, true
			}
		}
		if tr.RTP != nil {
			if d, ok := tr.RTP.Pacer.NextDeadline(); ok && (!found || d.Before(best)) {
				best, found = d, true
			}
		}
	}
	if !found {
		return 0, false
	}
	if best.Before(now) {
		return 0, true
	}
	return best.Sub(now), true
}
