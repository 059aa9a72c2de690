// Package proxyproto implements the two PROXY-protocol v1 handshake kinds:
// parsing an inbound header off a freshly accepted connection, and emitting
// an outbound header before relaying to a backend. Both register themselves
// against the reactor core's handshake dispatcher; neither reads or writes
// a single byte beyond the header itself.
package proxyproto

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/moby/l4reactor/errdefs"
	"github.com/moby/l4reactor/internal/ioreactor"
)

func init() {
	ioreactor.RegisterHandshakeKind(ioreactor.FlagAcceptProxy, "accept-proxy", acceptProxy)
	ioreactor.RegisterHandshakeKind(ioreactor.FlagSISendProxy, "si-send-proxy", siSendProxy)
}

// Header is the result of parsing (or the input to emitting) a PROXY
// protocol v1 text header.
type Header struct {
	SrcAddr *net.TCPAddr
	DstAddr *net.TCPAddr
}

// reader describes a buffered byte-at-a-time reader, the kind of raw
// transport under which the parse never consumes bytes belonging to the
// application stream. acceptProxy itself accepts only a *bufio.Reader.
type reader interface {
	ReadByte() (byte, error)
}

// writer is what siSendProxy needs to emit the header.
type writer interface {
	Write([]byte) (int, error)
}

// acceptProxy is the ACCEPT_PROXY handshake sub-handler: it parses a v1
// text header ("PROXY TCP4 <src> <dst> <sport> <dport>\r\n") off the
// connection's raw transport. raw must be a *bufio.Reader attached by the
// caller that built the connection; any other value is rejected as an
// invalid parameter.
func acceptProxy(conn *ioreactor.Connection, bit ioreactor.Flags) (done bool, err error) {
	br, ok := conn.Raw().(*bufio.Reader)
	if !ok {
		return false, errdefs.InvalidParameter(errors.New("proxyproto: connection has no buffered reader attached"))
	}

	line, err := br.ReadString('\n')
	if err != nil {
		// Not enough bytes yet: leave the bit set and ask for another read
		// edge; the dispatcher will abandon this cycle.
		conn.SetDesiredRecv(true, true)
		return false, nil
	}

	hdr, err := parseHeaderV1(line)
	if err != nil {
		return false, errdefs.InvalidParameter(errors.Wrap(err, "proxyproto: parse PROXY header"))
	}

	conn.SetRaw(&parsedHeader{Reader: br, Header: hdr})
	conn.SetFlags(conn.Flags().Clear(bit))
	return true, nil
}

// parsedHeader is what acceptProxy leaves attached to the connection once
// the header has been consumed, so the application recv callback can still
// read the buffered reader and also learn the original client address.
type parsedHeader struct {
	Reader *bufio.Reader
	Header *Header
}

func (p *parsedHeader) Read(b []byte) (int, error) { return p.Reader.Read(b) }

// ParsedHeader extracts the header parsed by acceptProxy from conn's raw
// transport, if any.
func ParsedHeader(conn *ioreactor.Connection) *Header {
	p, ok := conn.Raw().(*parsedHeader)
	if !ok {
		return nil
	}
	return p.Header
}

// SendContext is the Raw value a connection pending SI_SEND_PROXY should
// carry: the backend-facing writer plus the header to emit on it.
type SendContext struct {
	net.Conn
	Hdr *Header
}

// ProxyHeader implements the interface siSendProxy looks for.
func (s *SendContext) ProxyHeader() *Header { return s.Hdr }

// siSendProxy is the SI_SEND_PROXY handshake sub-handler: it emits a v1
// text header to the backend-facing connection before any application
// bytes are relayed.
func siSendProxy(conn *ioreactor.Connection, bit ioreactor.Flags) (done bool, err error) {
	w, ok := conn.Raw().(writer)
	if !ok {
		return false, errdefs.InvalidParameter(errors.New("proxyproto: connection has no writer attached"))
	}
	hdr, _ := conn.Raw().(interface{ ProxyHeader() *Header })
	var h *Header
	if hdr != nil {
		h = hdr.ProxyHeader()
	}
	if h == nil {
		return false, errdefs.InvalidParameter(errors.New("proxyproto: no header to send"))
	}

	line := FormatHeaderV1(h)
	if _, err := w.Write([]byte(line)); err != nil {
		return false, errors.Wrap(err, "proxyproto: write PROXY header")
	}

	conn.SetFlags(conn.Flags().Clear(bit))
	return true, nil
}

// FormatHeaderV1 renders h as a PROXY protocol v1 text header.
func FormatHeaderV1(h *Header) string {
	family := "TCP4"
	if h.SrcAddr.IP.To4() == nil {
		family = "TCP6"
	}
	return fmt.Sprintf("PROXY %s %s %s %d %d\r\n",
		family, h.SrcAddr.IP.String(), h.DstAddr.IP.String(), h.SrcAddr.Port, h.DstAddr.Port)
}

// parseHeaderV1 parses a single PROXY protocol v1 text line, including its
// trailing CRLF.
func parseHeaderV1(line string) (*Header, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, " ")
	if len(fields) != 6 || fields[0] != "PROXY" {
		return nil, errors.Errorf("malformed PROXY header: %q", line)
	}
	switch fields[1] {
	case "TCP4", "TCP6":
	default:
		return nil, errors.Errorf("unsupported PROXY protocol family: %q", fields[1])
	}

	srcIP := net.ParseIP(fields[2])
	dstIP := net.ParseIP(fields[3])
	if srcIP == nil || dstIP == nil {
		return nil, errors.Errorf("malformed PROXY header addresses: %q", line)
	}
	srcPort, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, errors.Wrap(err, "malformed PROXY header source port")
	}
	dstPort, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, errors.Wrap(err, "malformed PROXY header destination port")
	}

	return &Header{
		SrcAddr: &net.TCPAddr{IP: srcIP, Port: srcPort},
		DstAddr: &net.TCPAddr{IP: dstIP, Port: dstPort},
	}, nil
}
