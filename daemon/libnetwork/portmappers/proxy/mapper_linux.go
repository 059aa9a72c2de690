//go:build linux

// Package proxy implements a port-mapping backend that forwards published
// ports through userland docker-proxy processes rather than kernel NAT
// rules: one docker-proxy per binding, claiming the host port itself and
// relaying every byte on to the container.
package proxy

import (
	"context"
	"net"
	"os"

	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/moby/l4reactor/daemon/libnetwork/portmapperapi"
	"github.com/moby/l4reactor/daemon/libnetwork/types"
)

// PortMapper maps published ports by handing each one off to pp, a
// docker-proxy process manager (or a test stub standing in for one).
type PortMapper struct {
	pp portmapperapi.ProxyProvider
}

// NewPortMapper builds a PortMapper that starts proxies through pp.
func NewPortMapper(pp portmapperapi.ProxyProvider) *PortMapper {
	return &PortMapper{pp: pp}
}

// MapPorts claims a host port for each of reqs and starts a proxy for it.
// If any request can't be satisfied, every proxy already started for this
// call is torn back down and the error is returned with no bindings.
func (pm *PortMapper) MapPorts(ctx context.Context, reqs []portmapperapi.PortBindingReq, _ any) ([]portmapperapi.PortBinding, error) {
	out := make([]portmapperapi.PortBinding, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			pm.unmapAll(out)
			return []portmapperapi.PortBinding{}, err
		}

		pb, err := pm.mapPort(req.PortBinding)
		if err != nil {
			pm.unmapAll(out)
			return []portmapperapi.PortBinding{}, err
		}
		out = append(out, pb)
	}
	return out, nil
}

// UnmapPorts stops the proxy behind every binding in pbs, continuing past
// individual failures and joining them into a single error.
func (pm *PortMapper) UnmapPorts(ctx context.Context, pbs []portmapperapi.PortBinding, _ any) error {
	var errs []error
	for _, pb := range pbs {
		if pb.Proxy == nil {
			continue
		}
		if err := pb.Proxy.Stop(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to stop userland proxy"))
		}
	}
	return stderrors.Join(errs...)
}

func (pm *PortMapper) unmapAll(pbs []portmapperapi.PortBinding) {
	for _, pb := range pbs {
		if pb.Proxy != nil {
			_ = pb.Proxy.Stop()
		}
	}
}

// mapPort claims the first free host port in [pb.HostPort, pb.HostPortEnd]
// and starts a proxy bound to it.
func (pm *PortMapper) mapPort(pb types.PortBinding) (portmapperapi.PortBinding, error) {
	if pb.Proto == types.SCTP {
		// docker-proxy binds its own SCTP listening socket; there is no
		// pre-bound fd to hand down, and no port-range probing.
		proxy, err := pm.pp.StartProxy(pb, nil)
		if err != nil {
			return portmapperapi.PortBinding{}, errors.Wrap(err, "failed to start userland proxy")
		}
		return portmapperapi.PortBinding{PortBinding: pb, Proxy: proxy}, nil
	}

	var lastErr error
	for port := pb.HostPort; port <= pb.HostPortEnd; port++ {
		listenSock, err := bindHostPort(pb.Proto, pb.HostIP, port)
		if err != nil {
			lastErr = err
			if port == pb.HostPortEnd {
				return portmapperapi.PortBinding{}, errors.Errorf(
					"failed to bind host port %s:%d/%s: %s", pb.HostIP, port, pb.Proto, unwrapSyscallErr(lastErr))
			}
			continue
		}

		assigned := pb
		assigned.HostPort = port
		assigned.HostPortEnd = port

		proxy, serr := pm.pp.StartProxy(assigned, listenSock)
		_ = listenSock.Close()
		if serr != nil {
			return portmapperapi.PortBinding{}, errors.Wrap(serr, "failed to start userland proxy")
		}
		return portmapperapi.PortBinding{PortBinding: assigned, Proxy: proxy}, nil
	}

	return portmapperapi.PortBinding{}, errors.Errorf(
		"no free host port in %s:%d-%d/%s", pb.HostIP, pb.HostPort, pb.HostPortEnd, pb.Proto)
}

// hostListener is the subset of *net.TCPListener / *net.UDPConn bindHostPort
// needs: a way to extract a duplicated, independently-ownable fd and to
// release its own reference afterward.
type hostListener interface {
	File() (*os.File, error)
	Close() error
}

// bindHostPort claims ip:port for proto and returns a duplicated descriptor
// for it. The caller owns the returned file; bindHostPort always releases
// its own listener/conn reference before returning.
func bindHostPort(proto types.Proto, ip net.IP, port uint16) (*os.File, error) {
	var l hostListener
	var err error
	switch proto {
	case types.UDP:
		l, err = net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: int(port)})
	default:
		l, err = net.ListenTCP("tcp", &net.TCPAddr{IP: ip, Port: int(port)})
	}
	if err != nil {
		return nil, err
	}

	f, ferr := l.File()
	cerr := l.Close()
	if ferr != nil {
		return nil, ferr
	}
	if cerr != nil {
		return nil, cerr
	}
	return f, nil
}

// unwrapSyscallErr peels net.OpError/os.SyscallError wrappers off err to
// surface the bare syscall error text (e.g. "address already in use")
// without the "listen tcp ...: bind: " noise net's errors add around it.
func unwrapSyscallErr(err error) error {
	for {
		switch e := err.(type) {
		case *net.OpError:
			err = e.Err
		case *os.SyscallError:
			err = e.Err
		default:
			return err
		}
	}
}
