package main

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ipVersion distinguishes which address family a UDPProxy's frontend was
// bound on, so conntrack keys can normalize IPv4-mapped IPv6 addresses down
// to their bare IPv4 form instead of tracking the same client twice.
type ipVersion uint8

const (
	ip4 ipVersion = iota
	ip6
)

// defaultUDPConnTrackTimeout is how long a per-client backend association
// is kept around after its last observed activity in either direction.
const defaultUDPConnTrackTimeout = 90 * time.Second

// udpConn is one client's dedicated dialed connection to the backend. UDP
// has no notion of a "connection" on the wire, so this is purely an
// in-process conntrack entry: a fixed backend-facing ephemeral port that
// lets the backend's replies be routed back to the right client.
type udpConn struct {
	conn         *net.UDPConn
	mu           sync.Mutex
	lastActivity time.Time
}

func (u *udpConn) touch(now time.Time) {
	u.mu.Lock()
	u.lastActivity = now
	u.mu.Unlock()
}

func (u *udpConn) idleSince(now time.Time) time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return now.Sub(u.lastActivity)
}

// UDPProxy relays UDP datagrams between a frontend socket and a fixed
// backend address, conntracking one dialed backend connection per client
// source address so backend replies can find their way home.
type UDPProxy struct {
	listener         *net.UDPConn
	backendAddr      *net.UDPAddr
	ipVersion        ipVersion
	connTrackTimeout time.Duration

	mu    sync.Mutex
	conns map[string]*udpConn

	quit      chan struct{}
	closeOnce sync.Once
}

// NewUDPProxy builds a UDPProxy relaying datagrams received on listener to
// backendAddr. version is used only to normalize conntrack keys.
func NewUDPProxy(listener *net.UDPConn, backendAddr *net.UDPAddr, version ipVersion) (*UDPProxy, error) {
	return &UDPProxy{
		listener:         listener,
		backendAddr:      backendAddr,
		ipVersion:        version,
		connTrackTimeout: defaultUDPConnTrackTimeout,
		conns:            make(map[string]*udpConn),
		quit:             make(chan struct{}),
	}, nil
}

func (p *UDPProxy) Run() {
	go p.reapLoop()

	readBuf := make([]byte, 65536)
	for {
		n, from, err := p.listener.ReadFromUDP(readBuf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, readBuf[:n])
		p.forward(from, data)
	}
}

func (p *UDPProxy) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.listener.Close()
		p.mu.Lock()
		for _, uc := range p.conns {
			uc.conn.Close()
		}
		p.mu.Unlock()
	})
}

func (p *UDPProxy) key(addr *net.UDPAddr) string {
	ip := addr.IP
	if p.ipVersion == ip4 {
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}
	}
	return (&net.UDPAddr{IP: ip, Port: addr.Port, Zone: addr.Zone}).String()
}

func (p *UDPProxy) forward(from *net.UDPAddr, data []byte) {
	uc := p.getOrDial(from)
	if uc == nil {
		return
	}
	now := time.Now()
	uc.touch(now)
	if _, err := uc.conn.Write(data); err != nil {
		logrus.WithError(err).Debug("docker-proxy: udp write to backend failed")
	}
}

func (p *UDPProxy) getOrDial(from *net.UDPAddr) *udpConn {
	key := p.key(from)

	p.mu.Lock()
	if uc, ok := p.conns[key]; ok {
		p.mu.Unlock()
		return uc
	}
	p.mu.Unlock()

	backendConn, err := net.DialUDP("udp", nil, p.backendAddr)
	if err != nil {
		logrus.WithError(err).Debug("docker-proxy: dial backend failed")
		return nil
	}
	uc := &udpConn{conn: backendConn, lastActivity: time.Now()}

	p.mu.Lock()
	if existing, ok := p.conns[key]; ok {
		p.mu.Unlock()
		backendConn.Close()
		return existing
	}
	p.conns[key] = uc
	p.mu.Unlock()

	go p.replyLoop(from, uc)
	return uc
}

// replyLoop relays datagrams the backend sends back on uc's dialed
// connection to the original client address via the shared frontend
// socket.
func (p *UDPProxy) replyLoop(client *net.UDPAddr, uc *udpConn) {
	buf := make([]byte, 65536)
	for {
		n, err := uc.conn.Read(buf)
		if err != nil {
			return
		}
		uc.touch(time.Now())
		if _, err := p.listener.WriteToUDP(buf[:n], client); err != nil {
			logrus.WithError(err).Debug("docker-proxy: udp write to client failed")
		}
	}
}

// reapLoop evicts conntrack entries idle for at least connTrackTimeout,
// checked once per connTrackTimeout tick. An entry can therefore live up to
// twice connTrackTimeout past its last activity before being GC'd.
func (p *UDPProxy) reapLoop() {
	ticker := time.NewTicker(p.connTrackTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-p.quit:
			return
		case now := <-ticker.C:
			p.reap(now)
		}
	}
}

func (p *UDPProxy) reap(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, uc := range p.conns {
		if uc.idleSince(now) >= p.connTrackTimeout {
			uc.conn.Close()
			delete(p.conns, key)
		}
	}
}
