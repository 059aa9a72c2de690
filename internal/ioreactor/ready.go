package ioreactor

// HandleReady is the entry point the event loop calls with a descriptor
// that has a latched edge. It composes the handshake dispatcher, the data
// dispatcher, post-I/O notification, embryonic-session handling, and the
// poll reconciler, then returns once the connection has reached a
// quiescent, correctly-registered state (or has been destroyed).
func HandleReady(fac EventFacility, fd int) {
	conn := fac.Owner(fd)
	if conn == nil {
		// The descriptor was closed between the kernel reporting the edge
		// and user space picking it up. Nothing to do.
		return
	}

	if handshakeWasPending := conn.flags.HasHandshake(); handshakeWasPending {
		_ = DispatchHandshake(conn, fac)

		if !conn.flags.HasHandshake() && !conn.flags.Has(FlagPollSock) {
			// Stop both directions at the socket layer by dropping the
			// desired interest; Reconcile below issues the Stop* calls and
			// keeps the current-interest bits in step with the facility.
			// Upper layers re-request interest when they take over.
			conn.SetDesiredRecv(false, false)
			conn.SetDesiredSend(false, false)
		}
	}

	if conn.flags.Has(FlagInitSess) && !conn.flags.Has(FlagError) {
		if err := SessionComplete(conn, FlagInitSess); err != nil {
			return
		}
	}

	slot := fac.EventSlot(fd)
	DispatchData(conn, fac, slot)

	switch {
	case conn.flags.Has(FlagError) && conn.flags.Has(FlagInitSess):
		forceFailSession(conn, FlagInitSess)
		return
	case conn.flags.Has(FlagNotifySI):
		if conn.ownerRef != nil {
			conn.ownerRef.Notify(conn)
		}
	}

	if !conn.flags.Has(FlagWaitL4Conn) && !conn.flags.Has(FlagWaitL6Conn) && !conn.flags.Has(FlagConnected) {
		conn.flags = conn.flags.Set(FlagConnected)
	}

	fac.ClearEventSlot(fd)
	_ = Reconcile(conn, fac, conn.DesiredInterest())
}
