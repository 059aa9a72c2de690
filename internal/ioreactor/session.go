package ioreactor

// SessionComplete finishes creating an incoming session when bit (normally
// FlagInitSess) is pending. It clears bit unconditionally, then asks the
// connection's owner to complete the session. If that fails, it aborts the
// session and returns the error; callers must not touch conn afterward in
// that case.
func SessionComplete(conn *Connection, bit Flags) error {
	conn.flags = conn.flags.Clear(bit)
	if conn.ownerRef == nil {
		return nil
	}
	if err := conn.ownerRef.CompleteSession(conn); err != nil {
		conn.ownerRef.AbortSession(conn)
		return err
	}
	return nil
}

// forceFailSession clears bit and tears down the embryonic session without
// attempting to complete it, for the case where ERROR was already latched
// before the session could be finished.
func forceFailSession(conn *Connection, bit Flags) {
	conn.flags = conn.flags.Clear(bit)
	if conn.ownerRef != nil {
		conn.ownerRef.AbortSession(conn)
	}
}
