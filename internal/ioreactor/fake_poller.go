package ioreactor

import "sync"

// FakePoller is an in-memory EventFacility double standing in for the
// kernel in tests. It records every Want/Stop/Poll call it receives so
// tests can assert on the minimal-operation-set properties of Reconcile
// and the readiness handler.
type FakePoller struct {
	mu    sync.Mutex
	owner map[int]*Connection
	slot  map[int]EventMask
	calls []FakeCall
}

// FakeCall records a single primitive invocation against a descriptor.
type FakeCall struct {
	Op string // "want_recv", "stop_recv", "poll_recv", "want_send", "stop_send", "poll_send"
	FD int
}

// NewFakePoller returns an empty FakePoller.
func NewFakePoller() *FakePoller {
	return &FakePoller{
		owner: make(map[int]*Connection),
		slot:  make(map[int]EventMask),
	}
}

// Register makes fd resolve to conn via Owner, and seeds its event slot.
func (p *FakePoller) Register(fd int, conn *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owner[fd] = conn
	if _, ok := p.slot[fd]; !ok {
		p.slot[fd] = 0
	}
}

// Forget removes fd's ownership, simulating descriptor close/reuse.
func (p *FakePoller) Forget(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.owner, fd)
	delete(p.slot, fd)
}

// SetEvents latches mask on fd's event slot, as if the kernel reported it.
func (p *FakePoller) SetEvents(fd int, mask EventMask) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slot[fd] |= mask
}

// Calls returns a snapshot of every primitive invoked so far, in order.
func (p *FakePoller) Calls() []FakeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FakeCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// Reset clears the recorded call log without touching owner/slot state.
func (p *FakePoller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

func (p *FakePoller) record(op string, fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, FakeCall{Op: op, FD: fd})
}

func (p *FakePoller) WantRecv(fd int) error { p.record("want_recv", fd); return nil }
func (p *FakePoller) StopRecv(fd int) error { p.record("stop_recv", fd); return nil }
func (p *FakePoller) PollRecv(fd int) error { p.record("poll_recv", fd); return nil }

func (p *FakePoller) WantSend(fd int) error { p.record("want_send", fd); return nil }
func (p *FakePoller) StopSend(fd int) error { p.record("stop_send", fd); return nil }
func (p *FakePoller) PollSend(fd int) error { p.record("poll_send", fd); return nil }

func (p *FakePoller) EventSlot(fd int) EventMask {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slot[fd]
}

func (p *FakePoller) ClearEventSlot(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slot[fd] = 0
}

func (p *FakePoller) Owner(fd int) *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owner[fd]
}
