package sdp

// OriginInfo seeds the o= line of every SessionDescription this
// Session produces.
type OriginInfo struct {
	Username  string
	Addr      string
	SessionID uint64
	version   uint64
}

// Session is the SDP offer/answer negotiation engine: it
// holds this side's media list and bundle/rtcp-mux policy, builds
// offers, consumes offers and answers, and reports re-offer outcomes
// as Events keyed by stable media ID.
type Session struct {
	Bundle BundlePolicy
	Mux    RTCPMuxPolicy
	Origin OriginInfo
	Name   string
	Medias []*LocalMedia

	negotiated map[string]negotiatedMedia
}

// NewSession constructs an empty negotiation session under the given
// bundle and rtcp-mux policies.
func NewSession(bundle BundlePolicy, mux RTCPMuxPolicy, origin OriginInfo) *Session {
	return &Session{
		Bundle:     bundle,
		Mux:        mux,
		Origin:     origin,
		negotiated: map[string]negotiatedMedia{},
	}
}

// AddMedia registers a local media section. It must be called before
// BuildOffer references it, and is how an answering side pre-declares
// its own codec preferences and transport attributes before
// ApplyOffer resolves a remote section against it.
func (s *Session) AddMedia(m *LocalMedia) {
	s.Medias = append(s.Medias, m)
}

// NegotiatedCodec reports the codec currently negotiated for mid, if
// any ApplyOffer/ApplyAnswer has settled one and the media hasn't
// since been removed.
func (s *Session) NegotiatedCodec(mid string) (NegotiatedCodec, bool) {
	n, ok := s.negotiated[mid]
	if !ok || !n.Present {
		return NegotiatedCodec{}, false
	}
	return n.Codec, true
}

func (s *Session) media(mid string) *LocalMedia {
	for _, m := range s.Medias {
		if m.MID == mid {
			return m
		}
	}
	return nil
}

func (s *Session) nextVersion() uint64 {
	s.Origin.version++
	return s.Origin.version
}

func originUsername(u string) string {
	if u == "" {
		return "-"
	}
	return u
}

func sessionNameOrDefault(n string) string {
	if n == "" {
		return "-"
	}
	return n
}
