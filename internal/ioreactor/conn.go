package ioreactor

// AppCallbacks are the application-layer recv/send hooks the data-phase
// dispatcher invokes. Implementations must return promptly; they may latch
// ERROR by returning a non-nil error, or re-raise HANDSHAKE by setting a
// pending handshake bit on the connection. They must never free the
// connection.
type AppCallbacks struct {
	Recv func(*Connection) error
	Send func(*Connection) error
}

// SockOps bundles the lower-layer transport operation the data dispatcher
// needs beyond recv/send: the non-blocking connect-completion probe.
type SockOps struct {
	// ConnectProbe reports whether a pending TCP connect has completed. It
	// latches ERROR on the connection itself on a confirmed failure; it is
	// only consulted while FlagWaitL4Conn is set.
	ConnectProbe func(*Connection) (established bool)
}

// SessionOwner is the upper layer that owns the session built on top of a
// connection. The core calls back into it at well-defined points: to finish
// constructing an embryonic session, to tear one down on a hard failure,
// and to poke the stream interface after I/O.
type SessionOwner interface {
	// CompleteSession finishes constructing the session for conn. A non-nil
	// error means the session could not be built; the caller (the session
	// completion shim) destroys conn and returns the error.
	CompleteSession(conn *Connection) error
	// AbortSession tears down any session state associated with conn after
	// a hard failure. conn must not be touched afterward.
	AbortSession(conn *Connection)
	// Notify pokes the upstream stream interface after this cycle's I/O.
	Notify(conn *Connection)
}

// Connection is the central per-descriptor entity the core operates on.
type Connection struct {
	fd       int
	flags    Flags
	desired  Flags
	appCB    AppCallbacks
	sockOps  SockOps
	ownerRef SessionOwner
	raw      any
}

// NewConnection builds a connection for descriptor fd with the given
// initial flags (handshake kinds, wait bits, initial registered interest)
// and callbacks. The desired interest starts out equal to the initial
// registered interest; callers adjust it via SetDesiredRecv/SetDesiredSend
// as the connection's needs change.
func NewConnection(fd int, initial Flags, appCB AppCallbacks, sockOps SockOps, owner SessionOwner) *Connection {
	return &Connection{
		fd:       fd,
		flags:    initial,
		desired:  initial & interestMask,
		appCB:    appCB,
		sockOps:  sockOps,
		ownerRef: owner,
	}
}

// FD returns the connection's descriptor key.
func (c *Connection) FD() int { return c.fd }

// Flags returns the connection's current bitset. Intended for diagnostics
// and for tests asserting on invariants; core logic should prefer the
// typed predicates below.
func (c *Connection) Flags() Flags { return c.flags }

// SetFlags overwrites the connection's bitset. Exposed for constructing
// test fixtures and for handshake sub-handlers that need to clear their own
// bit or latch ERROR.
func (c *Connection) SetFlags(f Flags) { c.flags = f }

// Owner returns the session owner back-reference, or nil.
func (c *Connection) Owner() SessionOwner { return c.ownerRef }

// Raw returns the underlying transport object handshake kinds need to read
// or write bytes directly (typically a net.Conn or *tls.Conn), as attached
// by SetRaw. The core itself never inspects it.
func (c *Connection) Raw() any { return c.raw }

// SetRaw attaches the underlying transport object for handshake kinds to
// use.
func (c *Connection) SetRaw(v any) { c.raw = v }

// CurrBits returns the four currently-registered interest bits, the shape
// Reconcile compares its input against.
func (c *Connection) CurrBits() Flags { return c.flags & interestMask }

// DesiredInterest returns the four bits describing what the connection
// currently wants registered. It is fed into Reconcile at the end of a
// readiness cycle.
func (c *Connection) DesiredInterest() Flags { return c.desired }

// SetDesiredRecv updates the desired read interest. poll implies ena.
func (c *Connection) SetDesiredRecv(ena, poll bool) {
	c.desired = c.desired.Clear(FlagCurrRDEna | FlagCurrRDPoll)
	if poll {
		c.desired = c.desired.Set(FlagCurrRDEna | FlagCurrRDPoll)
	} else if ena {
		c.desired = c.desired.Set(FlagCurrRDEna)
	}
}

// SetDesiredSend updates the desired write interest. poll implies ena.
func (c *Connection) SetDesiredSend(ena, poll bool) {
	c.desired = c.desired.Clear(FlagCurrWREna | FlagCurrWRPoll)
	if poll {
		c.desired = c.desired.Set(FlagCurrWREna | FlagCurrWRPoll)
	} else if ena {
		c.desired = c.desired.Set(FlagCurrWREna)
	}
}
