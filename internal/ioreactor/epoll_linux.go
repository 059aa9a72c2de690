//go:build linux

package ioreactor

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// recvFlags/sendFlags are the epoll event masks corresponding to the two
// directions' "ena" (level-triggered want) registration. "poll" adds
// EPOLLONESHOT semantics conceptually, but since this adapter re-arms via
// explicit Control calls rather than relying on EPOLLONESHOT, poll and ena
// both register the same underlying epoll bits; the distinction that
// matters to Reconcile is already captured by which primitive it called.
const (
	recvFlags = unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLHUP | unix.EPOLLERR
	sendFlags = unix.EPOLLOUT | unix.EPOLLHUP | unix.EPOLLERR
)

// EpollFacility is the real event-facility adapter, backed directly by
// epoll_create1/epoll_ctl/epoll_wait.
type EpollFacility struct {
	epfd int

	mu    sync.Mutex
	owner map[int]*Connection
	slot  map[int]EventMask
	rd    map[int]bool
	wr    map[int]bool

	events []unix.EpollEvent
}

// NewEpollFacility creates a fresh epoll instance.
func NewEpollFacility() (*EpollFacility, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &EpollFacility{
		epfd:   fd,
		owner:  make(map[int]*Connection),
		slot:   make(map[int]EventMask),
		rd:     make(map[int]bool),
		wr:     make(map[int]bool),
		events: make([]unix.EpollEvent, 128),
	}, nil
}

// Close releases the epoll instance.
func (e *EpollFacility) Close() error {
	return os.NewSyscallError("close", unix.Close(e.epfd))
}

// Register associates fd with conn and arms it for the interest already
// present in conn's current bits.
func (e *EpollFacility) Register(fd int, conn *Connection) error {
	e.mu.Lock()
	e.owner[fd] = conn
	e.slot[fd] = 0
	e.mu.Unlock()

	ev := unix.EpollEvent{Fd: int32(fd)}
	if conn.flags.Has(FlagCurrRDEna) {
		ev.Events |= recvFlags
	}
	if conn.flags.Has(FlagCurrWREna) {
		ev.Events |= sendFlags
	}
	if ev.Events == 0 {
		return nil
	}
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return os.NewSyscallError("epoll_ctl add", err)
	}
	e.mu.Lock()
	e.rd[fd] = conn.flags.Has(FlagCurrRDEna)
	e.wr[fd] = conn.flags.Has(FlagCurrWREna)
	e.mu.Unlock()
	return nil
}

// Forget withdraws fd from epoll and drops its ownership.
func (e *EpollFacility) Forget(fd int) error {
	e.mu.Lock()
	delete(e.owner, fd)
	delete(e.slot, fd)
	_, had := e.rd[fd]
	delete(e.rd, fd)
	delete(e.wr, fd)
	e.mu.Unlock()
	if !had {
		return nil
	}
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl del", err)
	}
	return nil
}

func (e *EpollFacility) ctl(fd int, rd, wr bool) error {
	e.mu.Lock()
	hadAny := e.rd[fd] || e.wr[fd]
	wantAny := rd || wr
	e.rd[fd] = rd
	e.wr[fd] = wr
	e.mu.Unlock()

	ev := unix.EpollEvent{Fd: int32(fd)}
	if rd {
		ev.Events |= recvFlags
	}
	if wr {
		ev.Events |= sendFlags
	}

	switch {
	case wantAny && hadAny:
		return errors.Wrap(os.NewSyscallError("epoll_ctl mod", unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, fd, &ev)), "ioreactor: rearm")
	case wantAny && !hadAny:
		return errors.Wrap(os.NewSyscallError("epoll_ctl add", unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, &ev)), "ioreactor: arm")
	case !wantAny && hadAny:
		return errors.Wrap(os.NewSyscallError("epoll_ctl del", unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil)), "ioreactor: disarm")
	default:
		return nil
	}
}

func (e *EpollFacility) currRD(fd int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rd[fd]
}

func (e *EpollFacility) currWR(fd int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wr[fd]
}

func (e *EpollFacility) WantRecv(fd int) error { return e.ctl(fd, true, e.currWR(fd)) }
func (e *EpollFacility) StopRecv(fd int) error { return e.ctl(fd, false, e.currWR(fd)) }
func (e *EpollFacility) PollRecv(fd int) error { return e.ctl(fd, true, e.currWR(fd)) }

func (e *EpollFacility) WantSend(fd int) error { return e.ctl(fd, e.currRD(fd), true) }
func (e *EpollFacility) StopSend(fd int) error { return e.ctl(fd, e.currRD(fd), false) }
func (e *EpollFacility) PollSend(fd int) error { return e.ctl(fd, e.currRD(fd), true) }

func (e *EpollFacility) EventSlot(fd int) EventMask {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slot[fd]
}

func (e *EpollFacility) ClearEventSlot(fd int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slot[fd] = 0
}

func (e *EpollFacility) Owner(fd int) *Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner[fd]
}

// Wait blocks in epoll_wait, latches every reported edge into its
// descriptor's event slot, and calls handle for each ready fd. timeoutMS<0
// blocks indefinitely.
func (e *EpollFacility) Wait(timeoutMS int, handle func(fd int)) error {
	n, err := unix.EpollWait(e.epfd, e.events, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return os.NewSyscallError("epoll_wait", err)
	}
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ev := e.events[i]
		fd := int(ev.Fd)
		var mask EventMask
		if ev.Events&unix.EPOLLIN != 0 {
			mask |= PollIn
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			mask |= PollOut
		}
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
			mask |= PollHup
		}
		if ev.Events&unix.EPOLLERR != 0 {
			mask |= PollErr
		}
		e.mu.Lock()
		e.slot[fd] |= mask
		e.mu.Unlock()
		ready = append(ready, fd)
	}
	for _, fd := range ready {
		handle(fd)
	}
	return nil
}
