// Package portmapperapi defines the interface a port-mapping backend
// implements, so the network controller can drive different mapping
// strategies (userland proxy, routed, nftables-DNAT, ...) through one
// shape.
package portmapperapi

import (
	"os"

	"github.com/moby/l4reactor/daemon/libnetwork/types"
)

// Proxy is a running port forwarder for one binding.
type Proxy interface {
	// Stop terminates the forwarder and releases its host port.
	Stop() error
}

// ProxyProvider starts a Proxy for pb. listenSock, when non-nil, is an
// already-bound host-facing socket the provider should adopt instead of
// binding pb.HostIP:pb.HostPort itself.
type ProxyProvider interface {
	StartProxy(pb types.PortBinding, listenSock *os.File) (Proxy, error)
}

// PortBindingReq is one port binding a caller wants mapped.
type PortBindingReq struct {
	types.PortBinding
}

// PortBinding is a successfully mapped port binding together with the
// handle needed to tear it back down.
type PortBinding struct {
	types.PortBinding
	Proxy Proxy
}
