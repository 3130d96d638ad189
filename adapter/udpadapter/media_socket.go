package udpadapter

// MediaPair is one Transport ID's RTP/RTCP socket pair (or a single mux
// socket, once rtcp-mux is confirmed). Grounded on
// _examples/arzzra-soft_phone/pkg/rtp/transport_udp.go's RTP/RTCP socket
// pairing, simplified down to the two sockets media/session.Transport
// itself already tracks addressing for.
type MediaPair struct {
	TID  string
	RTP  *Socket
	RTCP *Socket // nil once rtcp-mux is in effect; RTP carries both.
}

// Close releases both sockets (RTCP may already be nil).
func (p *MediaPair) Close() error {
	err := p.RTP.Close()
	if p.RTCP != nil {
		if rerr := p.RTCP.Close(); err == nil {
			err = rerr
		}
	}
	return err
}

// NewMediaPair binds a fresh RTP socket and, unless muxed, a companion
// RTCP socket. addr is the local bind address ("host:0" picks a free
// port for each).
func NewMediaPair(tid, addr string, mux bool) (*MediaPair, error) {
	rtp, err := ListenUDP(addr)
	if err != nil {
		return nil, err
	}
	p := &MediaPair{TID: tid, RTP: rtp}
	if mux {
		return p, nil
	}
	rtcp, err := ListenUDP(addr)
	if err != nil {
		rtp.Close()
		return nil, err
	}
	p.RTCP = rtcp
	return p, nil
}

// DowngradeToMux closes the RTCP socket once the peer confirms
// rtcp-mux mid-session (media/session.RemoveRtcpSocket).
func (p *MediaPair) DowngradeToMux() error {
	if p.RTCP == nil {
		return nil
	}
	err := p.RTCP.Close()
	p.RTCP = nil
	return err
}
