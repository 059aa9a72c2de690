package ioreactor

import (
	"testing"

	"gotest.tools/v3/assert"
)

func newTestConn(fd int, fac *FakePoller, initial Flags) *Connection {
	conn := NewConnection(fd, initial, AppCallbacks{}, SockOps{}, nil)
	fac.Register(fd, conn)
	return conn
}

func TestReconcileIdempotentAtRest(t *testing.T) {
	fac := NewFakePoller()
	conn := newTestConn(1, fac, FlagCurrRDEna)

	err := Reconcile(conn, fac, conn.CurrBits())
	assert.NilError(t, err)
	assert.Equal(t, len(fac.Calls()), 0)
}

func TestReconcileBackToBackIssuesSameAsOnce(t *testing.T) {
	fac := NewFakePoller()
	conn := newTestConn(1, fac, 0)

	err := Reconcile(conn, fac, FlagCurrRDEna)
	assert.NilError(t, err)
	first := fac.Calls()

	fac.Reset()
	conn2 := newTestConn(2, fac, 0)
	err = Reconcile(conn2, fac, FlagCurrRDEna)
	assert.NilError(t, err)
	err = Reconcile(conn2, fac, FlagCurrRDEna)
	assert.NilError(t, err)
	second := fac.Calls()

	assert.Equal(t, len(first), 1)
	assert.Equal(t, len(second), 1)
	assert.Equal(t, first[0].Op, second[0].Op)
}

func TestReconcileWantOnZeroToOneTransition(t *testing.T) {
	fac := NewFakePoller()
	conn := newTestConn(1, fac, 0)

	assert.NilError(t, Reconcile(conn, fac, FlagCurrRDEna))
	calls := fac.Calls()
	assert.Equal(t, len(calls), 1)
	assert.Equal(t, calls[0].Op, "want_recv")
	assert.Check(t, conn.flags.Has(FlagCurrRDEna))
}

func TestReconcilePollOnTransitionToEnaAndPoll(t *testing.T) {
	fac := NewFakePoller()
	conn := newTestConn(1, fac, 0)

	assert.NilError(t, Reconcile(conn, fac, FlagCurrRDEna|FlagCurrRDPoll))
	calls := fac.Calls()
	assert.Equal(t, len(calls), 1)
	assert.Equal(t, calls[0].Op, "poll_recv")
}

func TestReconcileStopOnOneToZeroTransition(t *testing.T) {
	fac := NewFakePoller()
	conn := newTestConn(1, fac, FlagCurrRDEna)

	assert.NilError(t, Reconcile(conn, fac, 0))
	calls := fac.Calls()
	assert.Equal(t, len(calls), 1)
	assert.Equal(t, calls[0].Op, "stop_recv")
	assert.Check(t, !conn.flags.Has(FlagCurrRDEna))
}

func TestReconcileSendDirectionIsSymmetric(t *testing.T) {
	fac := NewFakePoller()
	conn := newTestConn(1, fac, 0)

	assert.NilError(t, Reconcile(conn, fac, FlagCurrWREna|FlagCurrWRPoll))
	calls := fac.Calls()
	assert.Equal(t, len(calls), 1)
	assert.Equal(t, calls[0].Op, "poll_send")
}

func TestReconcileInterestEdgeMinimality(t *testing.T) {
	// Scenario 6: a connection wanting both directions, transitioning only
	// its read side, should issue exactly one call.
	fac := NewFakePoller()
	conn := newTestConn(1, fac, FlagCurrRDEna|FlagCurrWREna)

	assert.NilError(t, Reconcile(conn, fac, FlagCurrWREna))
	calls := fac.Calls()
	assert.Equal(t, len(calls), 1)
	assert.Equal(t, calls[0].Op, "stop_recv")
}
