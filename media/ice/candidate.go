package ice

// CandidateType distinguishes how a candidate was discovered (RFC8445 §5.1.1).
type CandidateType int

const (
	CandidateHost CandidateType = iota
	CandidateServerReflexive
	CandidatePeerReflexive
	CandidateRelay
)

func (t CandidateType) String() string {
	switch t {
	case CandidateHost:
		return "host"
	case CandidateServerReflexive:
		return "srflx"
	case CandidatePeerReflexive:
		return "prflx"
	case CandidateRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// typePreference values are RFC8445 §5.1.2.1's recommended defaults.
func (t CandidateType) typePreference() uint32 {
	switch t {
	case CandidateHost:
		return 126
	case CandidatePeerReflexive:
		return 110
	case CandidateServerReflexive:
		return 100
	case CandidateRelay:
		return 0
	default:
		return 0
	}
}

// Candidate is one ICE candidate for a single component.
type Candidate struct {
	Type         CandidateType
	Foundation   string
	Component    int // 1 = RTP, 2 = RTCP
	Addr         string
	Port         int
	RelatedAddr  string
	RelatedPort  int
	LocalPref    uint32 // 0-65535, tie-break among candidates of the same type
	Priority     uint32
}

// ComputePriority fills Priority using the RFC8445 §5.1.2.1 formula:
// priority = (2^24)*type_pref + (2^8)*local_pref + (2^0)*(256-component_id).
func (c *Candidate) ComputePriority() {
	c.Priority = (c.Type.typePreference() << 24) | (c.LocalPref&0xFFFF)<<8 | uint32(256-c.Component)
}

// CandidatePair is a local/remote candidate pairing for one component.
type CandidatePair struct {
	Local, Remote *Candidate
	Priority      uint64
	Nominated     bool
}

// ComputePairPriority fills Priority using the RFC8445 §6.1.2.3
// formula with controlling/controlled priorities g (this agent, if
// controlling) and d (the peer, if controlled): the higher tie-break
// goes to the controlling agent.
func (p *CandidatePair) ComputePairPriority(controllingPriority, controlledPriority uint32) {
	g := uint64(controllingPriority)
	d := uint64(controlledPriority)
	min, max := g, d
	if d < g {
		min, max = d, g
	}
	tieBreak := uint64(0)
	if g > d {
		tieBreak = 1
	}
	p.Priority = (min << 32) + 2*max + tieBreak
}
