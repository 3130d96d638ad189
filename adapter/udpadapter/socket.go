package udpadapter

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxUDPPayload = 65507

// Socket wraps one bound UDP conn and satisfies sip/transport.Transport,
// so it can be registered directly into a sip/transport.Registry.
// Grounded on pkg/sip/transport/udp.go's UDPTransport, stripped of its
// worker pool: reads are pumped by the loop's single reader goroutine
// per socket (see loop.go), and Send is a direct syscall since writes
// never need to be serialized against the engine's own state.
type Socket struct {
	conn      *net.UDPConn
	localAddr *net.UDPAddr
	protocol  string
	secure    bool

	closed   int32
	received uint64
	sent     uint64
	errors   uint64

	log zerolog.Logger
}

// ListenUDP binds a UDP socket at addr ("host:port", port 0 picks a
// free one) and applies the platform socket options available.
func ListenUDP(addr string) (*Socket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udpadapter: invalid address %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("udpadapter: listen %q: %w", addr, err)
	}
	if err := applyVoiceSockopts(conn); err != nil {
		log.Debug().Err(err).Str("addr", addr).Msg("udpadapter: sockopt tuning unavailable, continuing without it")
	}
	s := &Socket{
		conn:      conn,
		localAddr: conn.LocalAddr().(*net.UDPAddr),
		protocol:  "udp",
		log:       log.Logger.With().Str("caller", "udpadapter.Socket").Str("local", conn.LocalAddr().String()).Logger(),
	}
	return s, nil
}

// Protocol satisfies sip/transport.Transport.
func (s *Socket) Protocol() string { return s.protocol }

// IsReliable satisfies sip/transport.Transport: UDP never is.
func (s *Socket) IsReliable() bool { return false }

// IsSecure satisfies sip/transport.Transport.
func (s *Socket) IsSecure() bool { return s.secure }

// LocalAddr satisfies sip/transport.Transport.
func (s *Socket) LocalAddr() net.Addr { return s.localAddr }

// Send satisfies sip/transport.Transport: a direct, unbuffered write.
func (s *Socket) Send(target string, data []byte) error {
	if atomic.LoadInt32(&s.closed) != 0 {
		return ErrClosed
	}
	if len(data) > maxUDPPayload {
		return ErrMessageTooBig
	}
	dst, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return fmt.Errorf("udpadapter: invalid target %q: %w", target, err)
	}
	if _, err := s.conn.WriteToUDP(data, dst); err != nil {
		atomic.AddUint64(&s.errors, 1)
		s.log.Error().Err(err).Str("target", target).Msg("udp write failed")
		return err
	}
	atomic.AddUint64(&s.sent, 1)
	return nil
}

// Close stops accepting reads (a Loop reader goroutine observes a
// use-of-closed-connection error, sees the socket is no longer open,
// and returns).
func (s *Socket) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	return s.conn.Close()
}

// Stats reports this socket's datagram counters, for metrics.Registry.
func (s *Socket) Stats() (received, sent, errs uint64) {
	return atomic.LoadUint64(&s.received), atomic.LoadUint64(&s.sent), atomic.LoadUint64(&s.errors)
}

func (s *Socket) isOpen() bool { return atomic.LoadInt32(&s.closed) == 0 }

func (s *Socket) markReceived() { atomic.AddUint64(&s.received, 1) }
