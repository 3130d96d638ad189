package transport

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pion/randutil"

	"github.com/nordcall/rtcstack/media/rtpio"
)

// RtpSession is the per-transport RTP session: a jitter buffer for
// inbound packets and a pacing queue plus SSRC/payload-type bookkeeping
// for outbound ones. Grounded on pkg/rtp/rtp_session.go's
// SSRC/payloadType/clockRate fields, restructured from its
// atomic-counter goroutine shape into the sans-I/O push/pop rhythm
// media/rtpio already uses.
type RtpSession struct {
	SSRC        uint32
	PayloadType uint8
	ClockRate   uint32

	Jitter  *rtpio.JitterBuffer
	Pacer   *rtpio.Pacer
	Reports *rtpio.ReportComposer

	PacketsSent     uint64
	PacketsReceived uint64
	PacketsLost     uint64
}

// NewRtpSession creates an RtpSession for a newly negotiated clock
// rate and outbound payload type, generating a fresh SSRC.
func NewRtpSession(clockRate uint32, payloadType uint8) *RtpSession {
	return &RtpSession{
		SSRC:        generateSSRC(),
		PayloadType: payloadType,
		ClockRate:   clockRate,
		Jitter:      rtpio.NewJitterBuffer(0),
		Pacer:       rtpio.NewPacer(clockRate, randutil.NewMathRandomGenerator()),
		Reports:     rtpio.NewReportComposer(),
	}
}

func generateSSRC() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(buf[:])
}
