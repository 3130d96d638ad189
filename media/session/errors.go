// Package session implements an adapter-facing SdpSession façade:
// sans-I/O composition of the SDP negotiation engine (media/sdp),
// per-media transports (media/transport, media/ice, media/keying) and
// RTP handling (media/rtpio), driven entirely by receive/poll/timeout
// calls from the owning adapter. Grounded on pkg/media_sdp/handler.go's
// ProcessOffer/ProcessAnswer composition and pkg/ua_media/ua_media.go's
// session-level wiring, restructured from their goroutine-driven
// handler into this explicit driving-loop shape.
package session

import "errors"

var (
	ErrUnknownTransport = errors.New("media/session: transport id not recognized")
	ErrUnknownMedia     = errors.New("media/session: media id not recognized")
	ErrRTPNotNegotiated = errors.New("media/session: transport has no negotiated codec yet")
)
