package ioreactor

// dataStage marks where DispatchData is within the recv/send/connect-probe
// sequence of SPEC_FULL §4.4. It exists so a HANDSHAKE re-raise partway
// through can route back through the handshake dispatcher and then resume
// the data phase exactly where it left off, instead of re-running earlier
// half-steps or abandoning the later ones for the cycle.
type dataStage int

const (
	dataStageRecv dataStage = iota
	dataStageSend
	dataStageProbe
	dataStageDone
)

// DispatchData runs the data-transfer phase for one readiness cycle given
// the descriptor's latched edge mask: recv, then send, then the connect
// probe, in that order. If a sub-handler (e.g. TLS renegotiation) re-raises
// HANDSHAKE after either half-step, it dispatches the handshake registry via
// fac and, once HANDSHAKE clears again, continues into the next stage
// within the same cycle rather than stopping short. Failures are never
// returned as errors; they are folded into FlagError on the connection, per
// the core's propagation policy.
func DispatchData(conn *Connection, fac EventFacility, slot EventMask) {
	stage := dataStageRecv
	for stage != dataStageDone {
		switch stage {
		case dataStageRecv:
			if slot.Any(PollIn | PollHup | PollErr) {
				if conn.appCB.Recv != nil {
					if err := conn.appCB.Recv(conn); err != nil {
						conn.flags = conn.flags.Set(FlagError)
					}
				}
			}
			if conn.flags.Has(FlagError) {
				return
			}
			if conn.flags.HasHandshake() {
				_ = DispatchHandshake(conn, fac)
				if conn.flags.HasHandshake() {
					// Not done (or failed, which leaves its bit set too):
					// abandon the cycle here, same as §4.3 exiting with
					// HANDSHAKE still set.
					return
				}
			}
			stage = dataStageSend

		case dataStageSend:
			if slot.Any(PollOut | PollErr) {
				if conn.appCB.Send != nil {
					if err := conn.appCB.Send(conn); err != nil {
						conn.flags = conn.flags.Set(FlagError)
					}
				}
			}
			if conn.flags.Has(FlagError) {
				return
			}
			if conn.flags.HasHandshake() {
				_ = DispatchHandshake(conn, fac)
				if conn.flags.HasHandshake() {
					return
				}
			}
			stage = dataStageProbe

		case dataStageProbe:
			if conn.flags.Has(FlagWaitL4Conn) && conn.sockOps.ConnectProbe != nil {
				if !conn.sockOps.ConnectProbe(conn) {
					return
				}
			}
			stage = dataStageDone
		}
	}
}
