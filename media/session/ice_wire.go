package session

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/nordcall/rtcstack/media/ice"
	"github.com/nordcall/rtcstack/media/sdp"
	"github.com/nordcall/rtcstack/media/transport"
)

// syncICE creates or updates a transport's ICE agent from the ICE
// attributes its representative media carries (recordRemoteTransport in
// media/sdp/consume.go only records the peer's ICE attributes; the agent
// itself is created here). It is idempotent and safe to call after
// every BuildOffer/ApplyOffer/ApplyAnswer: the agent is created once,
// on the side that first sees local or remote credentials, and remote
// credentials/candidates are merged in as they arrive.
func (s *SdpSession) syncICE(tr *transport.Transport, m *sdp.LocalMedia) {
	if m.ICEUfrag == "" && m.RemoteICEUfrag == "" {
		return
	}

	if tr.ICE == nil {
		role := ice.RoleControlling
		if m.ICEUfrag == "" && m.RemoteICEUfrag != "" {
			// Remote credentials arrived with no local pair yet offered:
			// this side is answering, so it takes the controlled role.
			role = ice.RoleControlled
		}
		tr.ICE = ice.NewAgent(role, randomTieBreaker())
		tr.ICE.LocalUfrag, tr.ICE.LocalPwd = m.ICEUfrag, m.ICEPwd
	}

	if m.RemoteICEUfrag != "" && tr.ICE.RemoteUfrag == "" {
		tr.ICE.RemoteUfrag, tr.ICE.RemotePwd = m.RemoteICEUfrag, m.RemoteICEPwd
	}

	existing := make(map[string]bool, len(tr.ICE.RemoteCandidates))
	for _, c := range tr.ICE.RemoteCandidates {
		existing[candidateKey(c)] = true
	}
	for _, raw := range m.RemoteCandidates {
		c, ok := parseCandidateAttr(raw)
		if !ok || existing[candidateKey(c)] {
			continue
		}
		tr.ICE.AddRemoteCandidate(c)
		existing[candidateKey(c)] = true
	}
}

func candidateKey(c *ice.Candidate) string {
	return c.Foundation + "/" + strconv.Itoa(c.Component) + "/" + c.Addr + "/" + strconv.Itoa(c.Port)
}

// parseCandidateAttr parses one RFC8839 candidate-attribute value (the
// part after "candidate:"): foundation component transport priority
// address port "typ" type [raddr address rport port] ...
func parseCandidateAttr(raw string) (*ice.Candidate, bool) {
	fields := strings.Fields(raw)
	if len(fields) < 8 {
		return nil, false
	}
	component, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, false
	}
	priority, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return nil, false
	}
	port, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, false
	}
	if fields[6] != "typ" {
		return nil, false
	}

	c := &ice.Candidate{
		Foundation: fields[0],
		Component:  component,
		Addr:       fields[4],
		Port:       port,
		Type:       candidateTypeFromString(fields[7]),
		LocalPref:  uint32((priority >> 8) & 0xFFFF),
	}

	for i := 8; i+1 < len(fields); i += 2 {
		switch fields[i] {
		case "raddr":
			c.RelatedAddr = fields[i+1]
		case "rport":
			if rp, err := strconv.Atoi(fields[i+1]); err == nil {
				c.RelatedPort = rp
			}
		}
	}
	return c, true
}

func candidateTypeFromString(s string) ice.CandidateType {
	switch s {
	case "srflx":
		return ice.CandidateServerReflexive
	case "prflx":
		return ice.CandidatePeerReflexive
	case "relay":
		return ice.CandidateRelay
	default:
		return ice.CandidateHost
	}
}

// randomTieBreaker generates a fresh RFC8445 §5.2 ICE-CONTROLLING/
// ICE-CONTROLLED tie-breaker, grounded on media/keying/dtls.go's use
// of crypto/rand for other connection-identity values.
func randomTieBreaker() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return binary.BigEndian.Uint64(buf[:])
}
