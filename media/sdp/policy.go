package sdp

// BundlePolicy controls how local medias are grouped onto transports
//.
type BundlePolicy int

const (
	// BundleBalanced groups medias by media-type onto shared transports
	// unless bundling is disallowed for a given media.
	BundleBalanced BundlePolicy = iota
	// BundleMaxCompat allocates one transport per media-type, favoring
	// interop with peers that mishandle bundling.
	BundleMaxCompat
	// BundleMaxBundle places every media on the first transport.
	BundleMaxBundle
)

// RTCPMuxPolicy controls whether the RTP and RTCP components share a
// single transport component.
type RTCPMuxPolicy int

const (
	// RTCPMuxNegotiate offers both a dedicated RTCP component and
	// rtcp-mux, accepting whichever the answer selects.
	RTCPMuxNegotiate RTCPMuxPolicy = iota
	// RTCPMuxRequire offers only the muxed RTP component.
	RTCPMuxRequire
)
