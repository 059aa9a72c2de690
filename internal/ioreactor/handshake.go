package ioreactor

import (
	"fmt"
	"sync"
)

// HandshakeFunc is the contract a pluggable handshake kind implements. It
// returns done=true iff it has cleared its own bit from the connection's
// flags and arranged any further polling itself; done=false means it has
// adjusted polling and the dispatcher must abandon the cycle. A non-nil err
// latches ERROR.
type HandshakeFunc func(conn *Connection, bit Flags) (done bool, err error)

type handshakeKind struct {
	bit  Flags
	name string
	fn   HandshakeFunc
}

var (
	handshakeMu       sync.Mutex
	handshakeRegistry []handshakeKind
)

// RegisterHandshakeKind adds a handshake kind to the registry. Kinds are
// dispatched in registration order, so callers should register in the
// order their preconditions require (e.g. an inbound header parse before an
// outbound header emit). It panics if bit has already been registered,
// mirroring the database/sql driver-registration idiom.
func RegisterHandshakeKind(bit Flags, name string, fn HandshakeFunc) {
	handshakeMu.Lock()
	defer handshakeMu.Unlock()
	for _, k := range handshakeRegistry {
		if k.bit == bit {
			panic(fmt.Sprintf("ioreactor: handshake kind %q already registered for this bit (existing: %q)", name, k.name))
		}
	}
	handshakeRegistry = append(handshakeRegistry, handshakeKind{bit: bit, name: name, fn: fn})
}

// DispatchHandshake makes a single ordered pass over the registry, invoking
// the sub-handler for every pending bit. It stops as soon as a sub-handler
// reports "not done" or returns an error. Only the error case latches ERROR
// and returns that error; "not done", a pass with nothing pending, and a
// pass where every pending kind reported done all return nil.
func DispatchHandshake(conn *Connection, fac EventFacility) error {
	handshakeMu.Lock()
	kinds := handshakeRegistry
	handshakeMu.Unlock()

	for _, k := range kinds {
		if !conn.flags.Has(k.bit) {
			continue
		}
		done, err := k.fn(conn, k.bit)
		if err != nil {
			conn.flags = conn.flags.Set(FlagError)
			return err
		}
		if !done {
			return nil
		}
	}
	return nil
}
