// Package keying implements its key negotiation: first-byte
// datagram demultiplexing, DTLS-SRTP certificate/fingerprint handling
// and setup-role negotiation, SDES-SRTP crypto-line selection in RFC
// preference order, and the transport connection-state machine.
// Grounded on pkg/rtp/transport_dtls.go's dtls.Config/ExportKeyingMaterial
// shape; actual handshake I/O belongs to the adapter that owns the
// socket (this package is sans-I/O: it builds configs and classifies
// bytes, it does not read or write a net.Conn).
package keying

import "errors"

var (
	ErrNoCompatibleSuite = errors.New("media/keying: no compatible SRTP suite in the offer")
	ErrNoCryptoLine      = errors.New("media/keying: SDES crypto line could not be parsed")
	ErrUnknownDatagram   = errors.New("media/keying: first byte does not match any known protocol")
)
