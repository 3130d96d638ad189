package sdp

import (
	"strconv"

	pionsdp "github.com/pion/sdp/v3"
)

// BuildOffer constructs a new offer from this session's local media
// list, "Offer construction": transport assignment
// (bundle grouping), codec intersection's local half, RTP extension
// IDs, rtcp-mux, ICE/DTLS/SDES attachment, and direction. Grounded on
// pkg/media_sdp/builder.go's CreateOffer, generalized from one fixed
// audio section to an arbitrary bundled media list.
func (s *Session) BuildOffer() *pionsdp.SessionDescription {
	transports := AssignTransports(s.Medias, s.Bundle)

	sd := &pionsdp.SessionDescription{
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

	for _, group := range bundleGroups(s.Medias, transports) {
		sd.Attributes = append(sd.Attributes, pionsdp.NewAttribute("group", "BUNDLE "+group))
	}

	for _, m := range s.Medias {
		sd.MediaDescriptions = append(sd.MediaDescriptions, buildMediaDescription(m, s.Mux))
	}
	return sd
}

func buildMediaDescription(m *LocalMedia, mux RTCPMuxPolicy) *pionsdp.MediaDescription {
	formats := make([]string, 0, len(m.Codecs))
	for _, c := range m.Codecs {
		formats = append(formats, strconv.Itoa(c.PayloadType))
	}

	md := &pionsdp.MediaDescription{
		MediaName: pionsdp.MediaName{
			Media:   m.Kind,
			Port:    pionsdp.RangedPort{Value: m.Port},
			Protos:  mediaProtos(m),
			Formats: formats,
		},
	}
	if m.Addr != "" {
		md.ConnectionInformation = &pionsdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &pionsdp.Address{Address: m.Addr},
		}
	}

	md.Attributes = append(md.Attributes, pionsdp.NewAttribute("mid", m.MID))

	for _, c := range m.Codecs {
		md.Attributes = append(md.Attributes, pionsdp.NewAttribute("rtpmap", rtpmapValue(c)))
		if len(c.Fmtp) > 0 {
			md.Attributes = append(md.Attributes, pionsdp.NewAttribute("fmtp", strconv.Itoa(c.PayloadType)+" "+FormatFmtp(c.Fmtp)))
		}
	}

	for _, id := range sortedExtIDs(m.ExtMap) {
		md.Attributes = append(md.Attributes, pionsdp.NewAttribute("extmap", strconv.Itoa(id)+" "+m.ExtMap[id]))
	}
	for _, fb := range m.RtcpFB {
		md.Attributes = append(md.Attributes, pionsdp.NewAttribute("rtcp-fb", fb))
	}

	md.Attributes = append(md.Attributes, directionAttribute(m.Direction))
	attachLocalTransportAttrs(md, m, mux)

	return md
}

// attachLocalTransportAttrs appends this side's rtcp-mux, ICE, DTLS
// and SDES attributes to a media description being offered or
// answered,'s "attach ... depending on transport type".
func attachLocalTransportAttrs(md *pionsdp.MediaDescription, m *LocalMedia, mux RTCPMuxPolicy) {
	if mux == RTCPMuxRequire || mux == RTCPMuxNegotiate {
		md.Attributes = append(md.Attributes, pionsdp.NewPropertyAttribute("rtcp-mux"))
	}

	if m.ICEUfrag != "" {
		md.Attributes = append(md.Attributes, pionsdp.NewAttribute("ice-ufrag", m.ICEUfrag))
		md.Attributes = append(md.Attributes, pionsdp.NewAttribute("ice-pwd", m.ICEPwd))
		for _, cand := range m.Candidates {
			md.Attributes = append(md.Attributes, pionsdp.NewAttribute("candidate", cand))
		}
	}

	if m.Fingerprint != "" {
		role := m.SetupRole
		if role == "" {
			role = "actpass"
		}
		md.Attributes = append(md.Attributes, pionsdp.NewAttribute("setup", role))
		md.Attributes = append(md.Attributes, pionsdp.NewAttribute("fingerprint", m.Fingerprint))
	}

	for _, cr := range m.Crypto {
		md.Attributes = append(md.Attributes, pionsdp.NewAttribute("crypto", cr))
	}
}
