package ioreactor

// Reconcile translates a change in desired interest into the minimal set of
// event-facility operations, then commits the four current-interest bits
// from newBits into conn.flags. newBits is masked to the interest bits
// before use; any other bits are ignored.
//
// Per direction, at most one of Poll*/Want*/Stop* is issued:
//   - Poll*(fd) when transitioning to the (ENA,POLL)=(1,1) state from
//     anything else.
//   - Want*(fd) when ENA transitions 0->1 and POLL is not newly set.
//   - Stop*(fd) when ENA transitions 1->0.
//   - nothing when no relevant edge occurred.
func Reconcile(conn *Connection, fac EventFacility, newBits Flags) error {
	newBits &= interestMask

	if err := reconcileDirection(conn.fd, fac,
		conn.flags.Has(FlagCurrRDEna), conn.flags.Has(FlagCurrRDPoll),
		newBits.Has(FlagCurrRDEna), newBits.Has(FlagCurrRDPoll),
		fac.PollRecv, fac.WantRecv, fac.StopRecv,
	); err != nil {
		return err
	}

	if err := reconcileDirection(conn.fd, fac,
		conn.flags.Has(FlagCurrWREna), conn.flags.Has(FlagCurrWRPoll),
		newBits.Has(FlagCurrWREna), newBits.Has(FlagCurrWRPoll),
		fac.PollSend, fac.WantSend, fac.StopSend,
	); err != nil {
		return err
	}

	conn.flags = conn.flags.Clear(interestMask) | newBits
	return nil
}

func reconcileDirection(fd int, _ EventFacility, oldEna, oldPoll, newEna, newPoll bool, poll, want, stop func(int) error) error {
	switch {
	case newEna && newPoll && !(oldEna && oldPoll):
		return poll(fd)
	case newEna && !oldEna && !newPoll:
		return want(fd)
	case oldEna && !newEna:
		return stop(fd)
	default:
		return nil
	}
}
