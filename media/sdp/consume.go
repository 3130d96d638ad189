package sdp

import (
	"crypto/rand"
	"strconv"

	pionsdp "github.com/pion/sdp/v3"

	"github.com/nordcall/rtcstack/media/keying"
)

// ApplyAnswer consumes a remote answer to an offer this session built,
// intersecting codecs per media and diffing the outcome against the
// last negotiation to produce re-offer events.
func (s *Session) ApplyAnswer(answer *pionsdp.SessionDescription) []Event {
	var events []Event
	seen := map[string]bool{}

	for _, rmd := range answer.MediaDescriptions {
		mid, ok := mediaAttr(rmd, "mid")
		if !ok {
			continue
		}
		local := s.media(mid)
		if local == nil {
			continue
		}
		seen[mid] = true

		if rejected(rmd) {
			events = append(events, s.markRemoved(mid)...)
			continue
		}

		neg, ok := Intersect(local.Codecs, parseCodecs(rmd))
		if !ok {
			events = append(events, s.markRemoved(mid)...)
			continue
		}

		recordRemoteTransport(local, rmd)
		dir := parseDirection(rmd)
		events = append(events, s.recordNegotiated(mid, neg, dir)...)
	}

	events = append(events, s.markUnseenRemoved(seen)...)
	return events
}

// ApplyOffer resolves an incoming offer against this session's local
// media, creating a new LocalMedia for any section not previously
// known, negotiates codecs and transport attributes, and returns the
// answer to send back together with the re-offer events produced
//.
func (s *Session) ApplyOffer(offer *pionsdp.SessionDescription) (*pionsdp.SessionDescription, []Event) {
	var events []Event
	seen := map[string]bool{}

	answer := &pionsdp.SessionDescription{
		Version: 0,
		Origin: pionsdp.Origin{
			Username:       originUsername(s.Origin.Username),
			SessionID:      s.Origin.SessionID,
			SessionVersion: s.nextVersion(),
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: s.Origin.Addr,
		},
		SessionName: pionsdp.SessionName(sessionNameOrDefault(s.Name)),
		ConnectionInformation: &pionsdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &pionsdp.Address{Address: s.Origin.Addr},
		},
		TimeDescriptions: []pionsdp.TimeDescription{{Timing: pionsdp.Timing{StartTime: 0, StopTime: 0}}},
	}

	for _, rmd := range offer.MediaDescriptions {
		mid, ok := mediaAttr(rmd, "mid")
		if !ok {
			mid = rmd.MediaName.Media
		}
		local := s.media(mid)
		if local == nil {
			local = &LocalMedia{MID: mid, Kind: rmd.MediaName.Media}
			s.AddMedia(local)
		}
		seen[mid] = true

		neg, ok := Intersect(local.Codecs, parseCodecs(rmd))
		if !ok {
			answer.MediaDescriptions = append(answer.MediaDescriptions, rejectMediaDescription(local))
			events = append(events, s.markRemoved(mid)...)
			continue
		}

		recordRemoteTransport(local, rmd)
		local.RemoteExtMap = parseExtMap(rmd)

		answerMd := &pionsdp.MediaDescription{
			MediaName: pionsdp.MediaName{
				Media:   local.Kind,
				Port:    pionsdp.RangedPort{Value: local.Port},
				Protos:  mediaProtos(local),
				Formats: []string{strconv.Itoa(neg.RecvPT)},
			},
		}
		answerMd.Attributes = append(answerMd.Attributes, pionsdp.NewAttribute("mid", mid))
		answerMd.Attributes = append(answerMd.Attributes, pionsdp.NewAttribute("rtpmap",
			rtpmapValue(Codec{PayloadType: neg.RecvPT, Name: neg.Name, ClockRate: neg.ClockRate, Channels: neg.Channels})))

		for _, id := range sortedExtIDs(local.RemoteExtMap) {
			answerMd.Attributes = append(answerMd.Attributes, pionsdp.NewAttribute("extmap", strconv.Itoa(id)+" "+local.RemoteExtMap[id]))
		}

		remoteDir := parseDirection(rmd)
		answerMd.Attributes = append(answerMd.Attributes, directionAttribute(remoteDir.reverse()))

		for _, fb := range intersectRtcpFB(local.RtcpFB, mediaAttrs(rmd, "rtcp-fb")) {
			answerMd.Attributes = append(answerMd.Attributes, pionsdp.NewAttribute("rtcp-fb", fb))
		}

		attachLocalTransportAttrs(answerMd, local, s.Mux)

		events = append(events, s.recordNegotiated(mid, neg, remoteDir.reverse())...)
		answer.MediaDescriptions = append(answer.MediaDescriptions, answerMd)
	}

	events = append(events, s.markUnseenRemoved(seen)...)
	return answer, events
}

func rejected(md *pionsdp.MediaDescription) bool {
	return md.MediaName.Port.Value == 0
}

func rejectMediaDescription(local *LocalMedia) *pionsdp.MediaDescription {
	return &pionsdp.MediaDescription{
		MediaName: pionsdp.MediaName{
			Media:   local.Kind,
			Port:    pionsdp.RangedPort{Value: 0},
			Protos:  mediaProtos(local),
			Formats: []string{"0"},
		},
		Attributes: []pionsdp.Attribute{pionsdp.NewAttribute("mid", local.MID)},
	}
}

// recordRemoteTransport copies the peer's ICE/DTLS/SDES attributes from
// a resolved media section into m: ICE credentials and candidates, the
// fingerprint and setup role (resolving this side's setup opposite it),
// crypto lines (then selecting a local crypto line), and rtcp-mux. It
// creates no ICE agent and no DTLS session.
func recordRemoteTransport(m *LocalMedia, rmd *pionsdp.MediaDescription) {
	if ufrag, ok := mediaAttr(rmd, "ice-ufrag"); ok {
		m.RemoteICEUfrag = ufrag
		m.RemoteICEPwd, _ = mediaAttr(rmd, "ice-pwd")
		m.RemoteCandidates = mediaAttrs(rmd, "candidate")
	}
	if fp, ok := mediaAttr(rmd, "fingerprint"); ok {
		m.RemoteFingerprint = fp
		if setup, ok := mediaAttr(rmd, "setup"); ok {
			m.RemoteSetup = setup
			if m.SetupRole == "" || m.SetupRole == "actpass" {
				m.SetupRole = oppositeSetup(setup)
			}
		}
	}
	if crypto := mediaAttrs(rmd, "crypto"); len(crypto) > 0 {
		m.RemoteCrypto = crypto
		selectLocalCrypto(m)
	}
	if _, ok := mediaAttr(rmd, "rtcp-mux"); ok {
		m.RemoteRtcpMux = true
	}
}

// selectLocalCrypto answers an SDES offer: pick the first locally
// supported suite the peer also offered and generate fresh key
// material for it, the answerer's half of RFC4568 negotiation. A
// fingerprint already present means this section is DTLS, not SDES, so
// crypto lines are left alone. Re-selection is skipped once this side
// has already committed to a line (either as answerer here, or as the
// original offerer, whose own GenerateOffer-produced lines already sit
// in m.Crypto).
func selectLocalCrypto(m *LocalMedia) {
	if m.Fingerprint != "" || len(m.Crypto) > 0 {
		return
	}
	var remote []keying.CryptoLine
	for _, raw := range m.RemoteCrypto {
		if line, ok := keying.ParseCryptoLine(raw); ok {
			remote = append(remote, line)
		}
	}
	selected, ok, err := keying.SelectAnswer(remote, rand.Reader)
	if err != nil || !ok {
		return
	}
	m.Crypto = []string{selected.Format()}
}

func (s *Session) recordNegotiated(mid string, neg NegotiatedCodec, dir Direction) []Event {
	prev, hadPrev := s.negotiated[mid]
	cur := negotiatedMedia{Codec: neg, Direction: dir, Present: true}
	s.negotiated[mid] = cur

	switch {
	case !hadPrev || !prev.Present:
		return []Event{{Kind: MediaAdded, MID: mid, Negotiated: neg, Direction: dir}}
	case prev.Codec != neg || prev.Direction != dir:
		return []Event{{Kind: MediaChanged, MID: mid, Negotiated: neg, Direction: dir}}
	default:
		return nil
	}
}

func (s *Session) markRemoved(mid string) []Event {
	prev, hadPrev := s.negotiated[mid]
	s.negotiated[mid] = negotiatedMedia{Present: false}
	if hadPrev && prev.Present {
		return []Event{{Kind: MediaRemoved, MID: mid}}
	}
	return nil
}

func (s *Session) markUnseenRemoved(seen map[string]bool) []Event {
	var events []Event
	for mid, prev := range s.negotiated {
		if !seen[mid] && prev.Present {
			s.negotiated[mid] = negotiatedMedia{Present: false}
			events = append(events, Event{Kind: MediaRemoved, MID: mid})
		}
	}
	return events
}
