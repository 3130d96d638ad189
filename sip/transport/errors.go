package transport

import "errors"

var (
	ErrTransportClosed    = errors.New("sip/transport: transport closed")
	ErrNoTransport        = errors.New("sip/transport: no transport registered for protocol")
	ErrUnroutable         = errors.New("sip/transport: no transport can reach address")
	ErrMessageTooLarge    = errors.New("sip/transport: message exceeds transport MTU")
	ErrAlreadyRegistered  = errors.New("sip/transport: protocol already registered")
	ErrConnectionRequired = errors.New("sip/transport: framed transport has no pooled connection for target")
)
