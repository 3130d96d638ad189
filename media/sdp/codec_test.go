package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Scenario 6: SDP offer/answer codec intersection. Local
// offers PCMU/8000 (pt 0) and opus/48000/2 (pt 111); remote answers
// opus/48000/2 (pt 96). Expect NegotiatedCodec{send_pt=96, recv_pt=111,
// name="opus", clock_rate=48000, channels=2}.
func TestIntersect_ScenarioSix(t *testing.T) {
	local := []Codec{
		{PayloadType: 0, Name: "PCMU", ClockRate: 8000, Channels: 1},
		{PayloadType: 111, Name: "opus", ClockRate: 48000, Channels: 2},
	}
	remote := []Codec{
		{PayloadType: 96, Name: "opus", ClockRate: 48000, Channels: 2},
	}

	got, ok := Intersect(local, remote)
	assert.True(t, ok)
	assert.Equal(t, NegotiatedCodec{SendPT: 96, RecvPT: 111, Name: "opus", ClockRate: 48000, Channels: 2}, got)
}

func TestIntersect_NoCommonCodec(t *testing.T) {
	local := []Codec{{PayloadType: 0, Name: "PCMU", ClockRate: 8000, Channels: 1}}
	remote := []Codec{{PayloadType: 8, Name: "PCMA", ClockRate: 8000, Channels: 1}}
	_, ok := Intersect(local, remote)
	assert.False(t, ok)
}

func TestIntersect_FmtpMismatchRejects(t *testing.T) {
	local := []Codec{{PayloadType: 96, Name: "H264", ClockRate: 90000, Channels: 1,
		Fmtp: ParseFmtp("packetization-mode=1")}}
	remote := []Codec{{PayloadType: 100, Name: "H264", ClockRate: 90000, Channels: 1,
		Fmtp: ParseFmtp("packetization-mode=0")}}
	_, ok := Intersect(local, remote)
	assert.False(t, ok)
}

func TestFmtpRoundTrip(t *testing.T) {
	raw := "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f"
	m := ParseFmtp(raw)
	assert.Equal(t, "1", m["packetization-mode"])
	out := FormatFmtp(m)
	assert.Equal(t, ParseFmtp(out), m)
}
