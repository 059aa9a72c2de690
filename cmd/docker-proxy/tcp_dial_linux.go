package main

import (
	"net"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/moby/l4reactor/internal/ioreactor"
)

// dialBackendReactor opens a non-blocking TCP connection to addr, driving
// the connect itself through the reactor core: a real EpollFacility is
// registered against the socket with WAIT_L4_CONN set, and every writable
// edge epoll reports is handed to ioreactor.HandleReady exactly as the
// production event loop would, which routes into DispatchData's
// connect-probe step and calls ioreactor.TCPConnectProbe (SO_ERROR) to
// decide whether the connect has completed. This is the one caller in this
// binary that drives HandleReady/EpollFacility end to end against a real
// descriptor rather than a FakePoller; the steady-state relay that follows
// still uses plain io.Copy, since once both peer sockets are just
// forwarding bytes a goroutine-per-connection model already gives the
// concurrency a reactor loop would otherwise be needed for.
func dialBackendReactor(addr *net.TCPAddr) (*net.TCPConn, error) {
	domain := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := addr.IP.To4(); ip4 != nil {
		s := &unix.SockaddrInet4{Port: addr.Port}
		copy(s.Addr[:], ip4)
		sa = s
	} else {
		domain = unix.AF_INET6
		s := &unix.SockaddrInet6{Port: addr.Port}
		copy(s.Addr[:], addr.IP.To16())
		sa = s
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(os.NewSyscallError("socket", err), "docker-proxy: reactor dial")
	}

	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		return nil, errors.Wrap(os.NewSyscallError("connect", err), "docker-proxy: reactor dial")
	}

	fac, err := ioreactor.NewEpollFacility()
	if err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "docker-proxy: reactor dial")
	}
	defer fac.Close()

	conn := ioreactor.NewConnection(
		fd,
		ioreactor.FlagWaitL4Conn|ioreactor.FlagCurrWREna,
		ioreactor.AppCallbacks{},
		ioreactor.SockOps{ConnectProbe: ioreactor.TCPConnectProbe},
		nil,
	)
	conn.SetDesiredSend(true, false)
	if err := fac.Register(fd, conn); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "docker-proxy: reactor dial")
	}

	for !conn.Flags().Has(ioreactor.FlagConnected) && !conn.Flags().Has(ioreactor.FlagError) {
		if err := fac.Wait(-1, func(readyFD int) { ioreactor.HandleReady(fac, readyFD) }); err != nil {
			_ = unix.Close(fd)
			return nil, errors.Wrap(err, "docker-proxy: reactor dial wait")
		}
	}
	_ = fac.Forget(fd)

	if conn.Flags().Has(ioreactor.FlagError) {
		_ = unix.Close(fd)
		return nil, errors.Errorf("docker-proxy: connect to %s failed", addr)
	}

	f := os.NewFile(uintptr(fd), "backend")
	nc, err := net.FileConn(f)
	closeErr := f.Close()
	if err != nil {
		return nil, errors.Wrap(err, "docker-proxy: reactor dial adopt")
	}
	if closeErr != nil {
		return nil, errors.Wrap(closeErr, "docker-proxy: reactor dial adopt close")
	}
	tcpConn, ok := nc.(*net.TCPConn)
	if !ok {
		_ = nc.Close()
		return nil, errors.New("docker-proxy: reactor dial adopt: not a TCP connection")
	}
	return tcpConn, nil
}
