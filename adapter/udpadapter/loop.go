package udpadapter

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nordcall/rtcstack/call"
	mediasession "github.com/nordcall/rtcstack/media/session"
)

// datagram is what a reader goroutine hands to the driving loop: raw
// bytes plus enough addressing to route them. kind distinguishes a SIP
// signaling packet from RTP/RTCP so the loop dispatches to the right
// engine without probing the payload.
type datagram struct {
	kind   sourceKind
	source string
	data   []byte

	callID    string // media datagrams only
	tid       string
	component int // 1=RTP, 2=RTCP
}

type sourceKind int

const (
	sourceSIP sourceKind = iota
	sourceMedia
)

// Loop is the single-threaded cooperative driver: every reader
// goroutine below only ever pushes bytes onto inbound, and Run is the
// one goroutine that calls into call.Manager/SdpSession, so nothing
// downstream of it needs its own synchronization. Grounded on
// pkg/sip/transport/udp.go's read loop, restructured from a worker pool
// fanning OUT into one fanning IN, since the sans-I/O split asks the
// adapter (not the engine) to own socket I/O.
type Loop struct {
	SIP     *Socket
	Manager *call.Manager

	media map[string]*MediaPair // "callID|tid" -> sockets

	inbound chan datagram
	done    chan struct{}

	log zerolog.Logger
}

// NewLoop wires a driver around an already-bound SIP socket and the
// call Manager it feeds.
func NewLoop(sip *Socket, mgr *call.Manager) *Loop {
	return &Loop{
		SIP:     sip,
		Manager: mgr,
		media:   map[string]*MediaPair{},
		inbound: make(chan datagram, 256),
		done:    make(chan struct{}),
		log:     log.Logger.With().Str("caller", "udpadapter.Loop").Logger(),
	}
}

func mediaKey(callID, tid string) string { return callID + "|" + tid }

// AddMediaPair registers the sockets serving one call's Transport ID and
// starts reader goroutines for them. The caller is expected to have
// already bound them (e.g. via NewMediaPair) in response to a
// CreateSocket/CreateSocketPair TransportChange.
func (l *Loop) AddMediaPair(callID string, pair *MediaPair) {
	l.media[mediaKey(callID, pair.TID)] = pair
	go l.readMedia(callID, pair.TID, 1, pair.RTP)
	if pair.RTCP != nil {
		go l.readMedia(callID, pair.TID, 2, pair.RTCP)
	}
}

// RemoveMediaPair closes and forgets the sockets for a Transport ID that
// is no longer in the negotiated bundle (RemoveTransport).
func (l *Loop) RemoveMediaPair(callID, tid string) {
	key := mediaKey(callID, tid)
	if p, ok := l.media[key]; ok {
		_ = p.Close()
		delete(l.media, key)
	}
}

// DowngradeMux satisfies a RemoveRtcpSocket change: the peer confirmed
// rtcp-mux, so the separate RTCP socket this side provisioned up front
// is no longer needed.
func (l *Loop) DowngradeMux(callID, tid string) {
	if p, ok := l.media[mediaKey(callID, tid)]; ok {
		_ = p.DowngradeToMux()
	}
}

// Start launches the SIP reader goroutine. Run still has to be called
// (on whatever goroutine the caller wants to own engine state) to
// actually drive the engines.
func (l *Loop) Start() {
	go l.readSIP()
}

// Stop closes every owned socket and unblocks Run.
func (l *Loop) Stop() {
	close(l.done)
	_ = l.SIP.Close()
	for _, p := range l.media {
		_ = p.Close()
	}
}

func (l *Loop) readSIP() {
	buf := make([]byte, 65535)
	for {
		select {
		case <-l.done:
			return
		default:
		}
		n, addr, err := l.SIP.conn.ReadFromUDP(buf)
		if err != nil {
			if !l.SIP.isOpen() {
				return
			}
			l.log.Error().Err(err).Msg("sip read error")
			continue
		}
		l.SIP.markReceived()
		cp := append([]byte(nil), buf[:n]...)
		select {
		case l.inbound <- datagram{kind: sourceSIP, source: addr.String(), data: cp}:
		case <-l.done:
			return
		}
	}
}

func (l *Loop) readMedia(callID, tid string, component int, sock *Socket) {
	buf := make([]byte, 65535)
	for {
		select {
		case <-l.done:
			return
		default:
		}
		n, addr, err := sock.conn.ReadFromUDP(buf)
		if err != nil {
			if !sock.isOpen() {
				return
			}
			l.log.Error().Err(err).Str("tid", tid).Msg("media read error")
			continue
		}
		sock.markReceived()
		cp := append([]byte(nil), buf[:n]...)
		select {
		case l.inbound <- datagram{kind: sourceMedia, source: addr.String(), data: cp, callID: callID, tid: tid, component: component}:
		case <-l.done:
			return
		}
	}
}

// Run is the single driving loop: it is the only goroutine that ever
// touches call.Manager or any Call's SdpSession. It returns once Stop
// closes done.
func (l *Loop) Run(now func() time.Time) {
	for {
		deadline, hasDeadline := l.Manager.NextDeadline(now())
		var timerC <-chan time.Time
		var t *time.Timer
		if hasDeadline {
			d := deadline.Sub(now())
			if d < 0 {
				d = 0
			}
			t = time.NewTimer(d)
			timerC = t.C
		}

		select {
		case <-l.done:
			if t != nil {
				t.Stop()
			}
			return
		case dg := <-l.inbound:
			if t != nil {
				t.Stop()
			}
			l.dispatch(now(), dg)
			l.reconcileAll(now())
		case <-timerC:
			l.Manager.Poll(now())
			l.reconcileAll(now())
		}
	}
}

func (l *Loop) dispatch(now time.Time, dg datagram) {
	switch dg.kind {
	case sourceSIP:
		l.Manager.HandleInbound(now, dg.data, dg.source, l.SIP)
	case sourceMedia:
		c, ok := l.Manager.Lookup(dg.callID)
		if !ok {
			return
		}
		c.Media.Receive(now, dg.tid, dg.data)
	}
}

// reconcileAll satisfies every pending TransportChange and forwards
// every outbound-data event across every live call. Run unconditionally
// after any engine-mutating step, since BuildOffer/ApplyAnswer/
// ApplyOffer (called deep inside call.Manager) are exactly where
// changes get queued, and the adapter must satisfy them before the
// next SDP produce/consume call.
func (l *Loop) reconcileAll(now time.Time) {
	for _, c := range l.Manager.Calls() {
		l.reconcileMedia(now, c)
	}
}

func (l *Loop) reconcileMedia(now time.Time, c *call.Call) {
	for _, ch := range c.Media.DrainTransportChanges() {
		switch ch.Kind {
		case mediasession.CreateSocket:
			if _, exists := l.media[mediaKey(c.ID, ch.TID)]; exists {
				continue
			}
			pair, err := NewMediaPair(ch.TID, "0.0.0.0:0", true)
			if err != nil {
				l.log.Error().Err(err).Str("tid", ch.TID).Msg("failed to bind mux media socket")
				continue
			}
			l.AddMediaPair(c.ID, pair)
		case mediasession.CreateSocketPair:
			if _, exists := l.media[mediaKey(c.ID, ch.TID)]; exists {
				continue
			}
			pair, err := NewMediaPair(ch.TID, "0.0.0.0:0", false)
			if err != nil {
				l.log.Error().Err(err).Str("tid", ch.TID).Msg("failed to bind media socket pair")
				continue
			}
			l.AddMediaPair(c.ID, pair)
		case mediasession.RemoveTransport:
			l.RemoveMediaPair(c.ID, ch.TID)
		case mediasession.RemoveRtcpSocket:
			l.DowngradeMux(c.ID, ch.TID)
		}
	}

	for _, ev := range c.Media.DrainEvents() {
		if ev.Kind != mediasession.EventSendData {
			continue
		}
		pair, ok := l.media[mediaKey(c.ID, ev.TID)]
		if !ok {
			continue
		}
		sock := pair.RTP
		if ev.Component == 2 && pair.RTCP != nil {
			sock = pair.RTCP
		}
		if err := sock.Send(ev.Target, ev.Bytes); err != nil {
			l.log.Error().Err(err).Str("tid", ev.TID).Msg("media send failed")
		}
	}
}

// LocalMediaAddr reports the bound RTP address for a Transport ID, for
// filling in the SDP body's c=/m= lines before BuildOffer is called.
func (l *Loop) LocalMediaAddr(callID, tid string) (string, bool) {
	p, ok := l.media[mediaKey(callID, tid)]
	if !ok {
		return "", false
	}
	return p.RTP.localAddr.String(), true
}
