// Package ioreactor implements the per-connection I/O state machine that
// drives a pluggable handshake sequence, a data-transfer phase, and the
// reconciliation of desired poll interest against what is currently
// registered with the event facility (epoll or an in-memory double).
package ioreactor

// Flags is the connection's state bitset. It is modified only by the
// goroutine that currently owns the connection's readiness cycle; reads from
// any other goroutine are for diagnostics only and may observe torn state.
type Flags uint32

const (
	// FlagWaitL4Conn is set while the transport-level connect (e.g. TCP
	// three-way handshake) has not yet been confirmed.
	FlagWaitL4Conn Flags = 1 << iota
	// FlagWaitL6Conn is set while a lower-layer session protocol (e.g. TLS)
	// has not yet completed its initial handshake.
	FlagWaitL6Conn
	// FlagConnected is set exactly once, on the first cycle where neither
	// wait bit is held.
	FlagConnected
	// FlagError is terminal. Once set it is never cleared.
	FlagError
	// FlagInitSess marks an embryonic incoming session awaiting completion.
	FlagInitSess
	// FlagNotifySI marks that the upstream stream interface needs poking
	// after this cycle's I/O.
	FlagNotifySI
	// FlagPollSock means the handshake layer still wants raw socket polling
	// once the handshake phase itself is done.
	FlagPollSock

	// FlagAcceptProxy marks a pending inbound PROXY-protocol header parse.
	FlagAcceptProxy
	// FlagSISendProxy marks a pending outbound PROXY-protocol header emit.
	FlagSISendProxy
	// FlagTLSReneg marks a pending (or re-raised) TLS renegotiation.
	FlagTLSReneg

	// FlagCurrRDEna reflects that the event facility is currently registered
	// for read readiness.
	FlagCurrRDEna
	// FlagCurrRDPoll additionally requests an explicit one-shot read edge.
	FlagCurrRDPoll
	// FlagCurrWREna reflects that the event facility is currently registered
	// for write readiness.
	FlagCurrWREna
	// FlagCurrWRPoll additionally requests an explicit one-shot write edge.
	FlagCurrWRPoll
)

// handshakePendingMask is the set of flag bits that represent a pending
// handshake kind. HANDSHAKE is derived, never stored directly: it is true
// iff any of these bits is set.
const handshakePendingMask = FlagAcceptProxy | FlagSISendProxy | FlagTLSReneg

// interestMask is the set of bits the poll reconciler reads and commits; it
// is used both for the "currently registered" state stored on the
// connection and for the "desired" shape passed into Reconcile.
const interestMask = FlagCurrRDEna | FlagCurrRDPoll | FlagCurrWREna | FlagCurrWRPoll

// Has reports whether any bit in mask is set in f.
func (f Flags) Has(mask Flags) bool {
	return f&mask != 0
}

// HasAll reports whether every bit in mask is set in f.
func (f Flags) HasAll(mask Flags) bool {
	return f&mask == mask
}

// Set returns f with every bit in mask set.
func (f Flags) Set(mask Flags) Flags {
	return f | mask
}

// Clear returns f with every bit in mask cleared.
func (f Flags) Clear(mask Flags) Flags {
	return f &^ mask
}

// HasHandshake reports whether at least one handshake kind is pending.
func (f Flags) HasHandshake() bool {
	return f.Has(handshakePendingMask)
}
