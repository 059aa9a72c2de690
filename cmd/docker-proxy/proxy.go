// Command docker-proxy forwards a single published port to a container,
// one process per port binding. It is spawned and supervised by the
// port-mapping manager in daemon/libnetwork/portmappers/proxy.
package main

import (
	"net"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Proxy relays traffic between a frontend (host-facing) address and a
// backend (container) address for the lifetime of the process.
type Proxy interface {
	// Run blocks, relaying traffic until Close is called.
	Run()
	// Close stops relaying and releases the frontend listener/socket.
	Close()
}

// ProxyConfig describes one port binding. ListenSock, when non-nil, is an
// already-bound listening (TCP) or packet (UDP) socket handed down by the
// parent process instead of being created here; SCTP never receives one
// and always binds HostIP:HostPort itself.
type ProxyConfig struct {
	Proto         string
	HostIP        net.IP
	HostPort      int
	ContainerIP   net.IP
	ContainerPort int
	ListenSock    *os.File
}

// newProxy builds the concrete Proxy implementation for config.Proto.
func newProxy(config ProxyConfig) (Proxy, error) {
	frontendAddrStr := net.JoinHostPort(config.HostIP.String(), strconv.Itoa(config.HostPort))
	backendAddrStr := net.JoinHostPort(config.ContainerIP.String(), strconv.Itoa(config.ContainerPort))

	switch config.Proto {
	case "tcp":
		frontendAddr, err := net.ResolveTCPAddr("tcp", frontendAddrStr)
		if err != nil {
			return nil, errors.Wrap(err, "docker-proxy: resolve frontend address")
		}
		backendAddr, err := net.ResolveTCPAddr("tcp", backendAddrStr)
		if err != nil {
			return nil, errors.Wrap(err, "docker-proxy: resolve backend address")
		}
		return NewTCPProxy(frontendAddr, backendAddr, config.ListenSock)
	case "udp":
		frontendAddr, err := net.ResolveUDPAddr("udp", frontendAddrStr)
		if err != nil {
			return nil, errors.Wrap(err, "docker-proxy: resolve frontend address")
		}
		backendAddr, err := net.ResolveUDPAddr("udp", backendAddrStr)
		if err != nil {
			return nil, errors.Wrap(err, "docker-proxy: resolve backend address")
		}

		var frontend *net.UDPConn
		if config.ListenSock != nil {
			fc, err := net.FilePacketConn(config.ListenSock)
			config.ListenSock.Close()
			if err != nil {
				return nil, errors.Wrap(err, "docker-proxy: adopt listening socket")
			}
			var ok bool
			frontend, ok = fc.(*net.UDPConn)
			if !ok {
				return nil, errors.New("docker-proxy: listen socket is not a UDP socket")
			}
		} else {
			frontend, err = net.ListenUDP("udp", frontendAddr)
			if err != nil {
				return nil, errors.Wrap(err, "docker-proxy: listen UDP")
			}
		}

		version := ip4
		if frontendAddr.IP.To4() == nil {
			version = ip6
		}
		return NewUDPProxy(frontend, backendAddr, version)
	case "sctp":
		frontendAddr, err := resolveSCTPAddr("sctp", frontendAddrStr)
		if err != nil {
			return nil, errors.Wrap(err, "docker-proxy: resolve frontend address")
		}
		backendAddr, err := resolveSCTPAddr("sctp", backendAddrStr)
		if err != nil {
			return nil, errors.Wrap(err, "docker-proxy: resolve backend address")
		}
		return NewSCTPProxy(frontendAddr, backendAddr)
	default:
		return nil, errors.Errorf("docker-proxy: unsupported protocol %q", config.Proto)
	}
}
