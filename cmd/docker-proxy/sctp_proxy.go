package main

import (
	"io"
	"sync"

	"github.com/ishidawataru/sctp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// resolveSCTPAddr parses addr the way net.ResolveTCPAddr does for TCP,
// delegating to the sctp package since the standard library has no SCTP
// support at all.
func resolveSCTPAddr(network, addr string) (*sctp.SCTPAddr, error) {
	a, err := sctp.ResolveSCTPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "docker-proxy: resolve SCTP address")
	}
	return a, nil
}

// SCTPProxy relays SCTP associations from a frontend listener to a fixed
// backend address, one goroutine pair per accepted association. SCTP never
// receives an inherited listen socket; it always binds frontendAddr itself.
type SCTPProxy struct {
	listener     *sctp.SCTPListener
	frontendAddr *sctp.SCTPAddr
	backendAddr  *sctp.SCTPAddr
	closeOnce    sync.Once
}

func NewSCTPProxy(frontendAddr, backendAddr *sctp.SCTPAddr) (*SCTPProxy, error) {
	listener, err := sctp.ListenSCTP("sctp", frontendAddr)
	if err != nil {
		return nil, errors.Wrap(err, "docker-proxy: listen SCTP")
	}
	return &SCTPProxy{
		listener:     listener,
		frontendAddr: frontendAddr,
		backendAddr:  backendAddr,
	}, nil
}

func (p *SCTPProxy) Run() {
	for {
		client, err := p.listener.Accept()
		if err != nil {
			return
		}
		go p.handle(client.(*sctp.SCTPConn))
	}
}

func (p *SCTPProxy) Close() {
	p.closeOnce.Do(func() {
		p.listener.Close()
	})
}

func (p *SCTPProxy) handle(client *sctp.SCTPConn) {
	log := logrus.WithFields(logrus.Fields{
		"frontend": p.frontendAddr.String(),
		"backend":  p.backendAddr.String(),
	})

	backend, err := sctp.DialSCTP("sctp", nil, p.backendAddr)
	if err != nil {
		log.WithError(err).Debug("docker-proxy: could not dial SCTP backend")
		client.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	cp := func(dst, src io.ReadWriteCloser) {
		defer wg.Done()
		if _, err := io.Copy(dst, src); err != nil {
			log.WithError(err).Debug("docker-proxy: SCTP relay copy ended")
		}
	}
	go cp(backend, client)
	go cp(client, backend)
	wg.Wait()

	client.Close()
	backend.Close()
}
