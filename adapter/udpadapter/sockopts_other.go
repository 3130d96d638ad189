//go:build !linux

package udpadapter

import "net"

// applyVoiceSockopts is a no-op outside Linux: SO_PRIORITY/SO_BUSY_POLL/
// DSCP-via-IP_TOS tuning in sockopts_linux.go has no portable equivalent
// the other platforms in scope need.
func applyVoiceSockopts(conn *net.UDPConn) error { return nil }

func bindToDevice(conn *net.UDPConn, device string) error { return nil }
