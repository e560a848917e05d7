//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd
// +build linux darwin dragonfly freebsd netbsd openbsd

// File: backend/poll_unix.go
// Author: momentics <momentics@gmail.com>
//
// Portable poll(2) backend, strictly level-triggered. Unlike epoll/kqueue
// there is no kernel-side registration object: the fd set is rebuilt from
// the interest map on every wait, and a self-pipe both interrupts blocked
// waits and forces a rebuild after concurrent registration changes. Ready
// descriptors that do not fit the caller's batch are parked in a FIFO and
// delivered by the next wait before polling again.

package backend

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-poll/api"
)

type pollBackend struct {
	mu       sync.Mutex
	interest map[int]api.Events
	overflow *queue.Queue // of api.RawEvent
	rd, wr   int          // self-pipe ends
	userWake atomic.Bool  // distinguishes Wake from internal rebuild nudges
}

func newPollBackend(cfg api.Config) (*pollBackend, error) {
	if cfg.EdgeTriggered {
		return nil, fmt.Errorf("%w: poll backend is level-triggered only", api.ErrNotSupported)
	}
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, sysErr("pipe", err)
	}
	for _, fd := range p {
		unix.SetNonblock(fd, true)
		unix.CloseOnExec(fd)
	}
	return &pollBackend{
		interest: make(map[int]api.Events),
		overflow: queue.New(),
		rd:       p[0],
		wr:       p[1],
	}, nil
}

func (b *pollBackend) Register(fd int, interest api.Events) error {
	b.mu.Lock()
	b.interest[fd] = interest
	b.mu.Unlock()
	// A blocked wait polls a stale fd set until nudged into a rebuild.
	return b.nudge()
}

func (b *pollBackend) Modify(fd int, interest api.Events) error {
	return b.Register(fd, interest)
}

func (b *pollBackend) Unregister(fd int) error {
	b.mu.Lock()
	delete(b.interest, fd)
	b.purgeOverflow(fd)
	b.mu.Unlock()
	return b.nudge()
}

// purgeOverflow drops parked events for fd so a removed descriptor is never
// reported by a later wait. Caller holds b.mu.
func (b *pollBackend) purgeOverflow(fd int) {
	for n := b.overflow.Length(); n > 0; n-- {
		ev := b.overflow.Remove().(api.RawEvent)
		if ev.Fd != fd {
			b.overflow.Add(ev)
		}
	}
}

// snapshot builds the pollfd set under the lock; index 0 is the wake pipe.
func (b *pollBackend) snapshot() []unix.PollFd {
	b.mu.Lock()
	defer b.mu.Unlock()
	fds := make([]unix.PollFd, 1, len(b.interest)+1)
	fds[0] = unix.PollFd{Fd: int32(b.rd), Events: unix.POLLIN}
	for fd, interest := range b.interest {
		var bits int16
		if interest.HasRead() {
			bits |= unix.POLLIN
		}
		if interest.HasWrite() {
			bits |= unix.POLLOUT
		}
		// POLLERR/POLLHUP are always reported; nothing to request.
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: bits})
	}
	return fds
}

func (b *pollBackend) Wait(buf []api.RawEvent, t api.Timeout) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if n := b.drainOverflow(buf); n > 0 {
		return n, nil
	}
	deadline, bounded := deadlineFor(t)
	for {
		fds := b.snapshot()
		n, err := unix.Poll(fds, remainingMillis(deadline, bounded))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, sysErr("poll", err)
		}
		if n == 0 {
			// Timeout expiry.
			return 0, nil
		}
		out := b.collect(fds, buf)
		if out > 0 {
			return out, nil
		}
		if b.userWake.Swap(false) {
			return 0, nil
		}
		// Internal nudge or stale-only revents: rebuild the fd set and
		// keep waiting out the remaining budget.
	}
}

// drainOverflow moves parked events from a previous oversized wait into buf.
func (b *pollBackend) drainOverflow(buf []api.RawEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := 0
	for out < len(buf) && b.overflow.Length() > 0 {
		buf[out] = b.overflow.Remove().(api.RawEvent)
		out++
	}
	return out
}

// collect translates revents into buf, parking what does not fit.
func (b *pollBackend) collect(fds []unix.PollFd, buf []api.RawEvent) (out int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fds[0].Revents != 0 {
		b.drainPipe()
		if fds[0].Revents&(unix.POLLNVAL|unix.POLLERR|unix.POLLHUP) != 0 {
			// Pipe torn down by Close while a wait was in flight;
			// surface it as a wake so the waiter exits cleanly.
			b.userWake.Store(true)
		}
	}
	for _, pfd := range fds[1:] {
		if pfd.Revents == 0 {
			continue
		}
		if pfd.Revents&unix.POLLNVAL != 0 {
			// Closed behind our back; drop silently like the kernel
			// facilities do.
			delete(b.interest, int(pfd.Fd))
			continue
		}
		var ev api.Events
		if pfd.Revents&unix.POLLIN != 0 {
			ev = ev.WithRead()
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			ev = ev.WithWrite()
		}
		if pfd.Revents&unix.POLLERR != 0 {
			ev = ev.WithError()
		}
		if pfd.Revents&unix.POLLHUP != 0 {
			ev = ev.WithHangUp()
		}
		if ev.IsEmpty() {
			continue
		}
		raw := api.RawEvent{Fd: int(pfd.Fd), Events: ev}
		if out < len(buf) {
			buf[out] = raw
			out++
		} else {
			b.overflow.Add(raw)
		}
	}
	return out
}

// nudge interrupts a blocked poll without surfacing a caller-visible wake;
// the waiter rebuilds its fd set and keeps waiting.
func (b *pollBackend) nudge() error {
	_, err := unix.Write(b.wr, []byte{0})
	if err == unix.EAGAIN {
		// Pipe full: an interrupt is already pending.
		return nil
	}
	if err != nil {
		return sysErr("write", err)
	}
	return nil
}

func (b *pollBackend) Wake() error {
	b.userWake.Store(true)
	return b.nudge()
}

// drainPipe empties the wake pipe. Caller holds b.mu.
func (b *pollBackend) drainPipe() {
	var scratch [64]byte
	for {
		if _, err := unix.Read(b.rd, scratch[:]); err != nil {
			return
		}
	}
}

func (b *pollBackend) EdgeTriggered() bool { return false }

func (b *pollBackend) Close() error {
	unix.Close(b.wr)
	return unix.Close(b.rd)
}
