// Package udpadapter is the async I/O adapter that owns every socket:
// the sans-I/O sip/transaction, sip/endpoint, and media/session engines
// never touch a net.Conn directly, so something has to read datagrams,
// push them through HandleInbound/Receive, and write whatever those
// produce back out. Grounded on
// _examples/arzzra-soft_phone/pkg/sip/transport/udp.go's worker-pool UDP
// transport, restructured from per-datagram goroutines into the single
// cooperative driving loop the sans-I/O split requires: every reader
// goroutine only pushes bytes onto one channel, and the one loop
// goroutine that drains it is the only thing that ever calls into the
// engines, so nothing there needs its own locking.
package udpadapter

import "errors"

var (
	ErrClosed        = errors.New("udpadapter: socket closed")
	ErrMessageTooBig = errors.New("udpadapter: datagram exceeds maximum UDP payload")
)
