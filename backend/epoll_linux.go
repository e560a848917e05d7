//go:build linux
// +build linux

// File: backend/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) backend. Level-triggered by default, edge-triggered
// (EPOLLET, persistent, no ONESHOT) when requested. An internal eventfd is
// registered for cross-thread wake-ups and never surfaces in results.

package backend

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-poll/api"
)

type epollBackend struct {
	epfd   int
	wakefd int
	edge   bool
	raw    []unix.EpollEvent // reused wait batch
}

func newEpollBackend(cfg api.Config) (*epollBackend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, sysErr("epoll_create1", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, sysErr("eventfd", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, sysErr("epoll_ctl", err)
	}
	return &epollBackend{epfd: epfd, wakefd: wakefd, edge: cfg.EdgeTriggered}, nil
}

// interestBits maps the portable mask to epoll event bits. Error and hang-up
// conditions are delivered by the kernel regardless of interest; requesting
// them here only adds EPOLLRDHUP for half-close detection.
func (b *epollBackend) interestBits(interest api.Events) uint32 {
	var ev uint32
	if interest.HasRead() {
		ev |= unix.EPOLLIN
	}
	if interest.HasWrite() {
		ev |= unix.EPOLLOUT
	}
	if interest.HasError() {
		ev |= unix.EPOLLERR
	}
	if interest.HasHangUp() {
		ev |= unix.EPOLLHUP | unix.EPOLLRDHUP
	}
	if b.edge {
		ev |= unix.EPOLLET
	}
	return ev
}

func observedFromEpoll(bits uint32) api.Events {
	var out api.Events
	if bits&unix.EPOLLIN != 0 {
		out = out.WithRead()
	}
	if bits&unix.EPOLLOUT != 0 {
		out = out.WithWrite()
	}
	if bits&unix.EPOLLERR != 0 {
		out = out.WithError()
	}
	if bits&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		out = out.WithHangUp()
	}
	return out
}

func (b *epollBackend) Register(fd int, interest api.Events) error {
	ev := unix.EpollEvent{Events: b.interestBits(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return sysErr("epoll_ctl", err)
	}
	return nil
}

func (b *epollBackend) Modify(fd int, interest api.Events) error {
	ev := unix.EpollEvent{Events: b.interestBits(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return sysErr("epoll_ctl", err)
	}
	return nil
}

func (b *epollBackend) Unregister(fd int) error {
	err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	switch err {
	case nil:
		return nil
	case unix.ENOENT, unix.EBADF, unix.EPERM:
		// The kernel auto-deregisters closed descriptors.
		return nil
	}
	return sysErr("epoll_ctl", err)
}

func (b *epollBackend) Wait(buf []api.RawEvent, t api.Timeout) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if cap(b.raw) < len(buf) {
		b.raw = make([]unix.EpollEvent, len(buf))
	}
	raw := b.raw[:len(buf)]
	deadline, bounded := deadlineFor(t)
	for {
		n, err := unix.EpollWait(b.epfd, raw, remainingMillis(deadline, bounded))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, sysErr("epoll_wait", err)
		}
		out := 0
		for i := 0; i < n; i++ {
			fd := int(raw[i].Fd)
			if fd == b.wakefd {
				b.drainWake()
				continue
			}
			buf[out] = api.RawEvent{Fd: fd, Events: observedFromEpoll(raw[i].Events)}
			out++
		}
		return out, nil
	}
}

func (b *epollBackend) Wake() error {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	_, err := unix.Write(b.wakefd, one[:])
	if err == unix.EAGAIN {
		// Counter saturated: a wake is already pending.
		return nil
	}
	if err != nil {
		return sysErr("write", err)
	}
	return nil
}

func (b *epollBackend) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(b.wakefd, buf[:]); err != nil {
			return
		}
	}
}

func (b *epollBackend) EdgeTriggered() bool { return b.edge }

func (b *epollBackend) Close() error {
	unix.Close(b.wakefd)
	return unix.Close(b.epfd)
}
