// Package transport is the sans-I/O transport abstraction:
// a uniform send/receive capability set over datagram (UDP) and framed
// stream (TCP/TLS) transports, with the connection lifecycle and
// retransmit/MTU concerns owned here and the actual socket I/O delegated
// to an adapter (adapter/udpadapter) per the §5 sans-I/O split.
package transport

import "net"

// Transport is the capability set the transaction and endpoint layers
// depend on: send bytes, report reliability/security/addressing, and
// be notified of inbound bytes via a handler the owning adapter invokes.
type Transport interface {
	// Protocol returns the lower-case scheme token: "udp", "tcp", "tls".
	Protocol() string
	// IsReliable is true for framed stream transports (TCP/TLS/WS); an
	// unreliable (datagram) transport requires transaction-layer
	// retransmission per RFC3261 §17.
	IsReliable() bool
	// IsSecure is true for TLS/SIPS-capable transports.
	IsSecure() bool
	// LocalAddr is this transport's bound address, used to build Via
	// sent-by and Contact host:port.
	LocalAddr() net.Addr
	// Send queues/writes data to target ("host:port"). For a framed
	// transport this resolves (or requires) a pooled connection; for a
	// datagram transport every call is independent.
	Send(target string, data []byte) error
}

// MessageHandler receives (sourceAddr, bytes) pushed by an adapter. The
// slice is only valid for the duration of the call; implementations that
// need to retain it must copy.
type MessageHandler func(source string, data []byte)

// Registry holds one Transport per protocol and routes an outbound
// target to the transport that can reach it. It is pure bookkeeping; it
// never itself touches a socket.
type Registry struct {
	transports map[string]Transport
}

// NewRegistry returns an empty transport registry.
func NewRegistry() *Registry {
	return &Registry{transports: make(map[string]Transport)}
}

// Register adds a transport under its own Protocol() name.
func (r *Registry) Register(t Transport) error {
	proto := t.Protocol()
	if _, exists := r.transports[proto]; exists {
		return ErrAlreadyRegistered
	}
	r.transports[proto] = t
	return nil
}

// Get returns the transport registered for protocol, if any.
func (r *Registry) Get(protocol string) (Transport, bool) {
	t, ok := r.transports[protocol]
	return t, ok
}

// All returns every registered transport, keyed by protocol.
func (r *Registry) All() map[string]Transport {
	out := make(map[string]Transport, len(r.transports))
	for k, v := range r.transports {
		out[k] = v
	}
	return out
}

// Resolve picks a transport for an outbound request given the preferred
// protocol (from the Request-URI's "transport" parameter, or "udp" when
// unspecified, per RFC3261 §18.1.1), falling back to any registered
// transport if the preferred one is absent.
func (r *Registry) Resolve(preferredProtocol string) (Transport, error) {
	if preferredProtocol == "" {
		preferredProtocol = "udp"
	}
	if t, ok := r.transports[preferredProtocol]; ok {
		return t, nil
	}
	for _, t := range r.transports {
		return t, nil
	}
	return nil, ErrNoTransport
}
