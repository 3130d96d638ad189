package keying

// Protocol classifies one inbound datagram on a muxed media transport
// by its first byte (this framing table).
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolSTUN
	ProtocolDTLS
	ProtocolRTP
	ProtocolRTCP
)

// Classify reads the first byte (and, for the RTP/RTCP range, the
// packet-type octet) of a datagram to determine which protocol it
// belongs to: 0-3 STUN, 20-63 DTLS, 128-191 RTP/RTCP.
func Classify(datagram []byte) Protocol {
	if len(datagram) == 0 {
		return ProtocolUnknown
	}
	b := datagram[0]
	switch {
	case b <= 3:
		return ProtocolSTUN
	case b >= 20 && b <= 63:
		return ProtocolDTLS
	case b >= 128 && b <= 191:
		return classifyRTCPOrRTP(datagram)
	default:
		return ProtocolUnknown
	}
}

// A second octet in 192-223 marks RTCP (the RFC5761 demultiplexing
// range, which covers SR, RR, SDES, BYE, APP and the feedback/XR
// types); anything else in the 128-191 first-byte range is RTP.
func classifyRTCPOrRTP(datagram []byte) Protocol {
	if len(datagram) < 2 {
		return ProtocolRTP
	}
	pt := datagram[1]
	if pt >= 192 && pt <= 223 {
		return ProtocolRTCP
	}
	return ProtocolRTP
}
