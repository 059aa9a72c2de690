package main

import (
	"bufio"
	"io"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/moby/l4reactor/internal/ioreactor"
	"github.com/moby/l4reactor/internal/proxyproto"
)

// TCPProxy relays TCP connections from a frontend listener to a fixed
// backend address, one goroutine pair per client connection. When PROXY
// protocol is enabled on either side, the one-shot handshake phase for a
// connection is driven through the reactor core's handshake dispatcher
// before the steady-state relay begins; the dial to the backend is itself
// driven through the reactor core's readiness handler against a real
// EpollFacility (see dialBackendReactor), so the connect-probe and
// established-edge machinery in internal/ioreactor runs against a live
// descriptor, not just test doubles. The steady-state relay still uses
// plain io.Copy pipes, since once both peer sockets are simply forwarding
// bytes a goroutine-per-connection model already gives the concurrency a
// non-blocking reactor loop would otherwise be needed for.
type TCPProxy struct {
	listener      *net.TCPListener
	frontendAddr  *net.TCPAddr
	backendAddr   *net.TCPAddr
	proxyAccept   bool
	proxySend     bool
	closeOnce     sync.Once
}

// NewTCPProxy builds a TCPProxy. If listenSock is non-nil it is adopted as
// the frontend listener instead of binding frontendAddr directly.
func NewTCPProxy(frontendAddr, backendAddr *net.TCPAddr, listenSock *os.File) (*TCPProxy, error) {
	var listener *net.TCPListener
	if listenSock != nil {
		l, err := net.FileListener(listenSock)
		closeErr := listenSock.Close()
		if err != nil {
			return nil, errors.Wrap(err, "docker-proxy: adopt listening socket")
		}
		if closeErr != nil {
			return nil, errors.Wrap(closeErr, "docker-proxy: close inherited listen fd")
		}
		tcpListener, ok := l.(*net.TCPListener)
		if !ok {
			return nil, errors.New("docker-proxy: listen socket is not a TCP socket")
		}
		listener = tcpListener
	} else {
		var err error
		listener, err = net.ListenTCP("tcp", frontendAddr)
		if err != nil {
			return nil, errors.Wrap(err, "docker-proxy: listen TCP")
		}
	}
	return &TCPProxy{
		listener:     listener,
		frontendAddr: frontendAddr,
		backendAddr:  backendAddr,
	}, nil
}

// WithProxyProtocol turns on PROXY-protocol parsing on accept (accept) and
// emission toward the backend (send).
func (p *TCPProxy) WithProxyProtocol(accept, send bool) *TCPProxy {
	p.proxyAccept = accept
	p.proxySend = send
	return p
}

func (p *TCPProxy) Run() {
	for {
		client, err := p.listener.Accept()
		if err != nil {
			return
		}
		go p.handle(client.(*net.TCPConn))
	}
}

func (p *TCPProxy) Close() {
	p.closeOnce.Do(func() {
		p.listener.Close()
	})
}

func (p *TCPProxy) handle(client *net.TCPConn) {
	log := logrus.WithFields(logrus.Fields{
		"frontend": p.frontendAddr.String(),
		"backend":  p.backendAddr.String(),
	})

	var clientReader io.Reader = client
	var hdr *proxyproto.Header
	if p.proxyAccept {
		br := bufio.NewReader(client)
		conn := ioreactor.NewConnection(int(fdOf(client)), ioreactor.FlagAcceptProxy, ioreactor.AppCallbacks{}, ioreactor.SockOps{}, nil)
		conn.SetRaw(br)

		if err := ioreactor.DispatchHandshake(conn, ioreactor.NewFakePoller()); err != nil || conn.Flags().Has(ioreactor.FlagError) {
			log.WithError(err).Debug("docker-proxy: rejecting connection with malformed PROXY header")
			client.Close()
			return
		}
		hdr = proxyproto.ParsedHeader(conn)
		if r, ok := conn.Raw().(io.Reader); ok {
			clientReader = r
		}
	}

	backend, err := dialBackendReactor(p.backendAddr)
	if err != nil {
		log.WithError(err).Debug("docker-proxy: could not dial backend")
		client.Close()
		return
	}

	if p.proxySend {
		if hdr == nil {
			hdr = &proxyproto.Header{
				SrcAddr: client.RemoteAddr().(*net.TCPAddr),
				DstAddr: client.LocalAddr().(*net.TCPAddr),
			}
		}
		sendConn := ioreactor.NewConnection(int(fdOf(backend)), ioreactor.FlagSISendProxy, ioreactor.AppCallbacks{}, ioreactor.SockOps{}, nil)
		sendConn.SetRaw(&proxyproto.SendContext{Conn: backend, Hdr: hdr})
		if err := ioreactor.DispatchHandshake(sendConn, ioreactor.NewFakePoller()); err != nil {
			log.WithError(err).Debug("docker-proxy: could not send PROXY header to backend")
			client.Close()
			backend.Close()
			return
		}
	}

	relay(log, clientReader, client, backend)
}

// relay performs the bidirectional copy between the (possibly
// PROXY-protocol-stripped) client reader/writer and the backend
// connection, propagating half-close in either direction.
func relay(log *logrus.Entry, clientReader io.Reader, client *net.TCPConn, backend *net.TCPConn) {
	var wg sync.WaitGroup
	wg.Add(2)

	broker := func(dst, src interface{ Write([]byte) (int, error) }, r io.Reader, closeWrite func() error) {
		defer wg.Done()
		if _, err := io.Copy(dst, r); err != nil {
			log.WithError(err).Debug("docker-proxy: relay copy ended")
		}
		if closeWrite != nil {
			_ = closeWrite()
		}
	}

	go broker(backend, client, clientReader, backend.CloseWrite)
	go broker(client, backend, backend, client.CloseWrite)

	wg.Wait()
	client.Close()
	backend.Close()
}

// fdOf returns an opaque, stable key to pass as an ioreactor.Connection's fd
// for the one-shot synchronous handshake dispatch above; no actual fd-based
// polling happens here, so the real descriptor number is not needed.
func fdOf(c net.Conn) uintptr {
	return 0
}
