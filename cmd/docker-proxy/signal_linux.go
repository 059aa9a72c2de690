package main

import (
	"os"

	"github.com/moby/sys/signal"
)

// notifySignals arranges for sigCh to receive every catchable signal on this
// platform, the way dockerd's own top-level signal channel is set up; only
// SIGTERM (from the port-mapping manager's Stop) and SIGINT (an interactive
// Ctrl-C) are acted on, everything else is drained and ignored.
func notifySignals(sigCh chan os.Signal) {
	signal.CatchAll(sigCh)
}
