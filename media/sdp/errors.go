// Package sdp implements an SDP offer/answer negotiation engine built
// on pion/sdp/v3: bundle and rtcp-mux policy, codec intersection,
// fmtp comparison, RTP extension and rtcp-fb copy, and re-offer
// diffing into MediaAdded/MediaChanged/MediaRemoved events.
// Grounded on pkg/media_sdp/builder.go's use of pion/sdp/v3 to build
// session/media descriptions, generalized from that package's
// single-fixed-codec offer into full two-sided negotiation.
package sdp

import "errors"

var (
	ErrNoCodecIntersection = errors.New("media/sdp: no common codec between offer and answer")
	ErrMalformedSDP        = errors.New("media/sdp: malformed SDP")
	ErrUnknownMediaSection = errors.New("media/sdp: media section not found")
)
