//go:build linux

package udpadapter

import (
	"net"

	"golang.org/x/sys/unix"
)

// applyVoiceSockopts tunes a just-bound UDP socket for low-latency voice
// traffic (Linux only). Grounded on
// pkg/rtp/transport_socket_linux.go's setSockOptVoiceOptimizations/
// setSockOptDSCP, ported from raw syscall.SetsockoptInt calls to
// golang.org/x/sys/unix via conn.SyscallConn, since that is the
// portable way to reach the fd without cgo. Best-effort: a container or
// restricted kernel may reject any of these, which is not fatal.
func applyVoiceSockopts(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var firstErr error
	setErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	ctrlErr := raw.Control(func(fd uintptr) {
		setErr(unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PRIORITY, 6))
		setErr(unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BUSY_POLL, 50))
		// DSCP EF (46) for voice, placed in the high 6 bits of the TOS byte.
		setErr(unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, 46<<2))
		setErr(unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1))
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return firstErr
}

// bindToDevice restricts the socket to a single network interface
// (multi-homed hosts), Linux-only per SO_BINDTODEVICE's semantics.
func bindToDevice(conn *net.UDPConn, device string) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var optErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		optErr = unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, device)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return optErr
}
