package ioreactor

// EventMask carries the latched readiness edges for a descriptor, as
// reported by the event facility and consumed by the readiness handler.
type EventMask uint8

const (
	PollIn EventMask = 1 << iota
	PollOut
	PollHup
	PollErr
)

// Any reports whether any bit in mask is present in m.
func (m EventMask) Any(mask EventMask) bool {
	return m&mask != 0
}

// EventFacility is the capability interface the core requires from its
// event-facility binding: registering and withdrawing read/write interest,
// reading and clearing the latched edge for a descriptor, and resolving a
// descriptor back to its owning connection. A real epoll-backed adapter and
// an in-memory double both implement it.
type EventFacility interface {
	WantRecv(fd int) error
	StopRecv(fd int) error
	PollRecv(fd int) error

	WantSend(fd int) error
	StopSend(fd int) error
	PollSend(fd int) error

	// EventSlot returns the latched edge mask for fd. The core clears it
	// (via ClearEventSlot) once it has been consumed for this cycle.
	EventSlot(fd int) EventMask
	// ClearEventSlot clears PollIn|PollOut|PollHup|PollErr for fd.
	ClearEventSlot(fd int)

	// Owner resolves fd to the connection registered against it, or nil if
	// the descriptor is unowned (e.g. it was closed between the kernel
	// reporting the edge and user space picking it up).
	Owner(fd int) *Connection
}
