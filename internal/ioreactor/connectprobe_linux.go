//go:build linux

package ioreactor

import "golang.org/x/sys/unix"

// TCPConnectProbe is the real tcp_connect_probe(Connection*) implementation
// of §4.4 step 7: it reads SO_ERROR on conn's descriptor to decide whether a
// non-blocking connect has completed. By the time the event facility
// reports a descriptor writable while WAIT_L4_CONN is set, the kernel has
// already resolved the connect attempt one way or the other, so a single
// getsockopt is enough; there is no "still in progress" result to report
// back through established. Per SPEC_FULL's Open Question (b), a confirmed
// failure latches ERROR here rather than leaving that to the caller; a
// successful connect clears WAIT_L4_CONN so the readiness handler can latch
// CONNECTED.
func TCPConnectProbe(conn *Connection) bool {
	errno, err := unix.GetsockoptInt(conn.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil || errno != 0 {
		conn.flags = conn.flags.Set(FlagError)
		return true
	}
	conn.flags = conn.flags.Clear(FlagWaitL4Conn)
	return true
}
