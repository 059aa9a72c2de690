// Package tlsreneg implements the TLS_RENEG handshake kind: re-entering a
// *tls.Conn's handshake on top of an already-established stream, driven by
// stdlib crypto/tls rather than a hand-rolled record-layer parser.
package tlsreneg

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/moby/l4reactor/errdefs"
	"github.com/moby/l4reactor/internal/ioreactor"
)

func init() {
	ioreactor.RegisterHandshakeKind(ioreactor.FlagTLSReneg, "tls-reneg", renegotiate)
}

// handshakePollTimeout bounds how long a single renegotiate attempt may
// occupy the owning thread waiting on the peer's next flight. The core
// forbids callbacks from blocking indefinitely (SPEC_FULL §5); arming a
// short read deadline before every attempt turns "the peer hasn't sent the
// rest yet" into a timeout wouldBlock recognizes, instead of hanging the
// goroutine until bytes arrive.
const handshakePollTimeout = 50 * time.Millisecond

// renegotiate is the TLS_RENEG handshake sub-handler. conn.Raw() must be a
// *tls.Conn. It re-enters HandshakeContext until it stops reporting a
// would-block style error; a would-block condition simply leaves the bit
// set and asks the dispatcher to abandon the cycle so the next readiness
// edge re-enters here.
func renegotiate(conn *ioreactor.Connection, bit ioreactor.Flags) (done bool, err error) {
	tlsConn, ok := conn.Raw().(*tls.Conn)
	if !ok {
		return false, errdefs.InvalidParameter(errors.New("tlsreneg: connection has no *tls.Conn attached"))
	}

	if err := tlsConn.SetReadDeadline(time.Now().Add(handshakePollTimeout)); err != nil {
		return false, errors.Wrap(err, "tlsreneg: arm read deadline")
	}
	err = tlsConn.HandshakeContext(context.Background())
	_ = tlsConn.SetReadDeadline(time.Time{})
	if err == nil {
		conn.SetFlags(conn.Flags().Clear(bit))
		return true, nil
	}

	if wouldBlock(err) {
		conn.SetDesiredRecv(true, true)
		return false, nil
	}

	return false, errors.Wrap(err, "tlsreneg: handshake failed")
}

// wouldBlock reports whether err indicates the handshake simply needs more
// I/O rather than having failed outright.
func wouldBlock(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return stderrors.Is(err, context.DeadlineExceeded)
}
