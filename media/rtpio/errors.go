// Package rtpio implements the RTP session primitives:
// extended-sequence-number tracking, a bounded sans-I/O jitter buffer,
// an outbound pacing queue, and an RTCP SR/RR/BYE composer. Restructured
// from pkg/media/jitter_buffer.go's goroutine-driven heap buffer into
// an explicit push/pop(max_ts) API, and from pkg/rtp/rtp_session.go
// and pkg/rtp/rtcp_session.go's report composition.
package rtpio

import "errors"

var (
	ErrBufferFull         = errors.New("media/rtpio: jitter buffer at capacity")
	ErrNotReady           = errors.New("media/rtpio: no entry ready at or before the requested timestamp")
	ErrEmptyPacer         = errors.New("media/rtpio: pacing queue is empty")
	ErrCompoundExceedsMTU = errors.New("media/rtpio: RTCP compound packet exceeds MTU")
)
