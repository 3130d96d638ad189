package sdp

import (
	"sort"
	"strconv"
	"strings"
)

// Codec is one rtpmap/fmtp pair parsed from an SDP media section.
type Codec struct {
	PayloadType int
	Name        string
	ClockRate   int
	Channels    int // 0 means unspecified (defaults to 1 for audio)
	Fmtp        map[string]string
}

// channelsOrDefault returns Channels, defaulting to 1 for audio codecs
// that omit the optional rtpmap channel count.
func (c Codec) channelsOrDefault() int {
	if c.Channels == 0 {
		return 1
	}
	return c.Channels
}

// sameEncoding reports whether two codecs name the same encoding at
// the same clock rate/channel count, case-insensitively (RFC8866
// §6.6's encoding-name match; this is the first gate before fmtp
// comparison).
func (c Codec) sameEncoding(other Codec) bool {
	return strings.EqualFold(c.Name, other.Name) &&
		c.ClockRate == other.ClockRate &&
		c.channelsOrDefault() == other.channelsOrDefault()
}

// fmtpCompatible compares two fmtp sets as normalized key=value sets:
// order-independent, case-insensitive keys. An empty fmtp on either
// side is always compatible (no additional constraint asserted).
func (c Codec) fmtpCompatible(other Codec) bool {
	if len(c.Fmtp) == 0 || len(other.Fmtp) == 0 {
		return true
	}
	for k, v := range c.Fmtp {
		if ov, ok := other.Fmtp[strings.ToLower(k)]; ok && !strings.EqualFold(ov, v) {
			return false
		}
	}
	return true
}

// NegotiatedCodec is the result of intersecting a local codec list
// against a remote one.
type NegotiatedCodec struct {
	SendPT    int
	RecvPT    int
	Name      string
	ClockRate int
	Channels  int
}

// Intersect picks the first local codec with a compatible match in
// remote, in local's preference order, producing
// (send_pt, recv_pt, clock_rate, channels, fmtp).
// SendPT is the remote's payload type for that encoding (what this
// side must stamp into outbound RTP); RecvPT is the local payload type
// (what inbound RTP will arrive tagged with).
func Intersect(local, remote []Codec) (NegotiatedCodec, bool) {
	for _, l := range local {
		for _, r := range remote {
			if l.sameEncoding(r) && l.fmtpCompatible(r) {
				return NegotiatedCodec{
					SendPT:    r.PayloadType,
					RecvPT:    l.PayloadType,
					Name:      l.Name,
					ClockRate: l.ClockRate,
					Channels:  l.channelsOrDefault(),
				}, true
			}
		}
	}
	return NegotiatedCodec{}, false
}

// ParseFmtp turns a raw fmtp parameter string ("profile-level-id=42e01f;packetization-mode=1")
// into a normalized, lower-cased key map.
func ParseFmtp(raw string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			out[strings.ToLower(strings.TrimSpace(part[:eq]))] = strings.TrimSpace(part[eq+1:])
		} else {
			out[strings.ToLower(part)] = ""
		}
	}
	return out
}

// FormatFmtp serializes a normalized fmtp map back to wire form with a
// stable key order (for reproducible SDP output).
func FormatFmtp(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := m[k]; v != "" {
			parts = append(parts, k+"="+v)
		} else {
			parts = append(parts, k)
		}
	}
	return strings.Join(parts, ";")
}

// ParseRtpmap splits an rtpmap value ("111 opus/48000/2") into payload
// type, encoding name, clock rate, and channel count.
func ParseRtpmap(value string) (Codec, bool) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return Codec{}, false
	}
	pt, err := strconv.Atoi(fields[0])
	if err != nil {
		return Codec{}, false
	}
	encParts := strings.Split(fields[1], "/")
	if len(encParts) < 2 {
		return Codec{}, false
	}
	clock, err := strconv.Atoi(encParts[1])
	if err != nil {
		return Codec{}, false
	}
	channels := 0
	if len(encParts) >= 3 {
		if c, err := strconv.Atoi(encParts[2]); err == nil {
			channels = c
		}
	}
	return Codec{PayloadType: pt, Name: encParts[0], ClockRate: clock, Channels: channels}, true
}
