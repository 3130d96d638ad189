package sdp

import (
	"sort"
	"strconv"
	"strings"

	pionsdp "github.com/pion/sdp/v3"
)

func mediaAttr(md *pionsdp.MediaDescription, key string) (string, bool) {
	for _, a := range md.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func mediaAttrs(md *pionsdp.MediaDescription, key string) []string {
	var out []string
	for _, a := range md.Attributes {
		if a.Key == key {
			out = append(out, a.Value)
		}
	}
	return out
}

// parseCodecs rebuilds a media section's codec list from its
// rtpmap/fmtp attribute pairs, in the order given by MediaName.Formats.
func parseCodecs(md *pionsdp.MediaDescription) []Codec {
	byPT := map[int]Codec{}
	for _, a := range md.Attributes {
		if a.Key == "rtpmap" {
			if c, ok := ParseRtpmap(a.Value); ok {
				byPT[c.PayloadType] = c
			}
		}
	}
	for _, a := range md.Attributes {
		if a.Key != "fmtp" {
			continue
		}
		fields := strings.SplitN(a.Value, " ", 2)
		if len(fields) != 2 {
			continue
		}
		pt, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		if c, ok := byPT[pt]; ok {
			c.Fmtp = ParseFmtp(fields[1])
			byPT[pt] = c
		}
	}

	codecs := make([]Codec, 0, len(md.MediaName.Formats))
	for _, f := range md.MediaName.Formats {
		pt, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		if c, ok := byPT[pt]; ok {
			codecs = append(codecs, c)
		}
	}
	return codecs
}

func parseDirection(md *pionsdp.MediaDescription) Direction {
	for _, a := range md.Attributes {
		switch a.Key {
		case "sendrecv":
			return SendRecv
		case "sendonly":
			return SendOnly
		case "recvonly":
			return RecvOnly
		case "inactive":
			return Inactive
		}
	}
	return SendRecv
}

func parseExtMap(md *pionsdp.MediaDescription) map[int]string {
	out := map[int]string{}
	for _, a := range md.Attributes {
		if a.Key != "extmap" {
			continue
		}
		fields := strings.SplitN(a.Value, " ", 2)
		if len(fields) != 2 {
			continue
		}
		idField := fields[0]
		if slash := strings.IndexByte(idField, '/'); slash >= 0 {
			idField = idField[:slash]
		}
		id, err := strconv.Atoi(idField)
		if err != nil {
			continue
		}
		out[id] = fields[1]
	}
	return out
}

func sortedExtIDs(m map[int]string) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// intersectRtcpFB keeps local rtcp-fb lines also advertised by the
// remote side, in local's preference order.
func intersectRtcpFB(local, remote []string) []string {
	remoteSet := make(map[string]struct{}, len(remote))
	for _, fb := range remote {
		remoteSet[fb] = struct{}{}
	}
	var out []string
	for _, fb := range local {
		if _, ok := remoteSet[fb]; ok {
			out = append(out, fb)
		}
	}
	return out
}

func oppositeSetup(remote string) string {
	switch remote {
	case "active":
		return "passive"
	case "passive":
		return "active"
	default:
		return "active"
	}
}

func directionAttribute(d Direction) pionsdp.Attribute {
	return pionsdp.NewPropertyAttribute(d.String())
}

func rtpmapValue(c Codec) string {
	if c.Channels > 1 {
		return strconv.Itoa(c.PayloadType) + " " + c.Name + "/" + strconv.Itoa(c.ClockRate) + "/" + strconv.Itoa(c.Channels)
	}
	return strconv.Itoa(c.PayloadType) + " " + c.Name + "/" + strconv.Itoa(c.ClockRate)
}

func mediaProtos(m *LocalMedia) []string {
	if len(m.Crypto) > 0 {
		return []string{"RTP", "SAVP"}
	}
	return []string{"RTP", "AVP"}
}
