package ioreactor

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
)

// Scenario 1: fresh incoming PROXY-protocol accept, bytes already
// available. The handshake kind completes in one pass and the connection
// becomes established.
func TestScenarioFreshAcceptProxySucceeds(t *testing.T) {
	fac := NewFakePoller()
	conn := newTestConn(20, fac, FlagAcceptProxy|FlagCurrRDEna)
	defer clearBehavior(20)
	setBehavior(20, &handshakeBehavior{done: true})
	conn.SetDesiredRecv(true, false)

	fac.SetEvents(20, PollIn)
	HandleReady(fac, 20)

	assert.Check(t, !conn.flags.Has(FlagError))
	assert.Check(t, !conn.flags.HasHandshake())
	assert.Check(t, conn.flags.Has(FlagConnected))
	assert.Equal(t, fac.EventSlot(20), EventMask(0))
}

// Scenario 2: same as (1) but the PROXY parse fails, latching ERROR.
func TestScenarioAcceptProxyParseFails(t *testing.T) {
	fac := NewFakePoller()
	conn := newTestConn(21, fac, FlagAcceptProxy|FlagCurrRDEna)
	defer clearBehavior(21)
	setBehavior(21, &handshakeBehavior{err: errors.New("malformed PROXY header")})

	fac.SetEvents(21, PollIn)
	HandleReady(fac, 21)

	assert.Check(t, conn.flags.Has(FlagError))
}

// Scenario 3: outgoing connect, writable edge. The data dispatcher invokes
// the connect probe, which confirms establishment.
func TestScenarioOutgoingConnectWritableEdge(t *testing.T) {
	fac := NewFakePoller()
	probed := false
	sockOps := SockOps{ConnectProbe: func(c *Connection) bool {
		probed = true
		c.flags = c.flags.Clear(FlagWaitL4Conn)
		return true
	}}
	conn := NewConnection(22, FlagWaitL4Conn|FlagCurrWREna, AppCallbacks{}, sockOps, nil)
	fac.Register(22, conn)
	conn.SetDesiredSend(true, false)

	fac.SetEvents(22, PollOut)
	HandleReady(fac, 22)

	assert.Check(t, probed)
	assert.Check(t, !conn.flags.Has(FlagWaitL4Conn))
	assert.Check(t, conn.flags.Has(FlagConnected))
}

// Scenario 3b: the connect probe reports not-yet-established; the cycle
// must exit without latching CONNECTED.
func TestScenarioOutgoingConnectNotYetEstablished(t *testing.T) {
	fac := NewFakePoller()
	sockOps := SockOps{ConnectProbe: func(c *Connection) bool { return false }}
	conn := NewConnection(23, FlagWaitL4Conn|FlagCurrWREna, AppCallbacks{}, sockOps, nil)
	fac.Register(23, conn)
	conn.SetDesiredSend(true, false)

	fac.SetEvents(23, PollOut)
	HandleReady(fac, 23)

	assert.Check(t, conn.flags.Has(FlagWaitL4Conn))
	assert.Check(t, !conn.flags.Has(FlagConnected))
}

// Scenario 4: renegotiation mid-stream. The recv callback re-raises
// TLS_RENEG; the dispatcher must route back through the handshake phase and
// then resume the data phase, running the send half-step within the same
// cycle since its edge is also latched.
func TestScenarioRenegotiationMidStream(t *testing.T) {
	fac := NewFakePoller()
	defer clearBehavior(24)
	reentered := false
	sendCalled := false
	appCB := AppCallbacks{
		Recv: func(c *Connection) error {
			c.flags = c.flags.Set(FlagTLSReneg)
			return nil
		},
		Send: func(c *Connection) error {
			sendCalled = true
			return nil
		},
	}
	conn := NewConnection(24, FlagCurrRDEna|FlagCurrWREna, appCB, SockOps{}, nil)
	fac.Register(24, conn)
	conn.SetDesiredRecv(true, false)
	conn.SetDesiredSend(true, false)
	setBehavior(24, &handshakeBehavior{done: true})

	fac.SetEvents(24, PollIn|PollOut)
	HandleReady(fac, 24)
	reentered = !conn.flags.Has(FlagTLSReneg)

	assert.Check(t, reentered)
	assert.Check(t, !conn.flags.Has(FlagError))
	assert.Check(t, sendCalled)
}

// Scenario 5: unowned fd. HandleReady must return silently with no panic
// and no primitive calls.
func TestScenarioUnownedFD(t *testing.T) {
	fac := NewFakePoller()
	HandleReady(fac, 999)
	assert.Equal(t, len(fac.Calls()), 0)
}

// Scenario 6: interest-edge minimality at the HandleReady level — a
// connection with no change in desired interest issues no primitive calls
// during reconciliation.
func TestScenarioInterestEdgeMinimalityAtReadyLevel(t *testing.T) {
	fac := NewFakePoller()
	conn := NewConnection(25, FlagCurrRDEna|FlagConnected, AppCallbacks{}, SockOps{}, nil)
	fac.Register(25, conn)
	conn.SetDesiredRecv(true, false)

	fac.SetEvents(25, PollIn)
	HandleReady(fac, 25)

	assert.Equal(t, len(fac.Calls()), 0)
}

func TestEmbryonicSessionAbortOnErrorBeforeCompletion(t *testing.T) {
	fac := NewFakePoller()
	defer clearBehavior(26)
	aborted := false
	owner := &fakeOwner{abort: func(c *Connection) { aborted = true }}
	conn := NewConnection(26, FlagAcceptProxy|FlagInitSess|FlagCurrRDEna, AppCallbacks{}, SockOps{}, owner)
	fac.Register(26, conn)
	setBehavior(26, &handshakeBehavior{err: errors.New("handshake failed")})

	fac.SetEvents(26, PollIn)
	HandleReady(fac, 26)

	assert.Check(t, aborted)
	assert.Check(t, !conn.flags.Has(FlagInitSess))
}

type fakeOwner struct {
	complete func(*Connection) error
	abort    func(*Connection)
	notify   func(*Connection)
}

func (o *fakeOwner) CompleteSession(c *Connection) error {
	if o.complete != nil {
		return o.complete(c)
	}
	return nil
}

func (o *fakeOwner) AbortSession(c *Connection) {
	if o.abort != nil {
		o.abort(c)
	}
}

func (o *fakeOwner) Notify(c *Connection) {
	if o.notify != nil {
		o.notify(c)
	}
}
