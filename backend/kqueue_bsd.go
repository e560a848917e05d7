//go:build darwin || dragonfly || freebsd
// +build darwin dragonfly freebsd

// File: backend/kqueue_bsd.go
// Author: momentics <momentics@gmail.com>
//
// kqueue(2) backend for Darwin and the BSDs. kqueue arms one kevent per
// filter, so read and write interest are separate registrations and a wait
// may report the same descriptor through two kevents; those are coalesced
// into a single RawEvent before returning. Wake-ups ride on EVFILT_USER, so
// no extra descriptor is consumed.

package backend

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-poll/api"
)

// wakeIdent is the EVFILT_USER identifier reserved for wake-ups.
const wakeIdent = 0

type kqueueBackend struct {
	kq   int
	edge bool
	raw  []unix.Kevent_t
}

func newKqueueBackend(cfg api.Config) (*kqueueBackend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, sysErr("kqueue", err)
	}
	unix.CloseOnExec(kq)

	var ev unix.Kevent_t
	unix.SetKevent(&ev, wakeIdent, unix.EVFILT_USER, unix.EV_ADD|unix.EV_CLEAR)
	if _, err := unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		unix.Close(kq)
		return nil, sysErr("kevent", err)
	}
	return &kqueueBackend{kq: kq, edge: cfg.EdgeTriggered}, nil
}

// armFilters builds the change list adding the filters named by interest.
func (b *kqueueBackend) armFilters(fd int, interest api.Events) []unix.Kevent_t {
	flags := unix.EV_ADD | unix.EV_ENABLE
	if b.edge {
		flags |= unix.EV_CLEAR
	}
	changes := make([]unix.Kevent_t, 0, 2)
	if interest.HasRead() {
		var ev unix.Kevent_t
		unix.SetKevent(&ev, fd, unix.EVFILT_READ, flags)
		changes = append(changes, ev)
	}
	if interest.HasWrite() {
		var ev unix.Kevent_t
		unix.SetKevent(&ev, fd, unix.EVFILT_WRITE, flags)
		changes = append(changes, ev)
	}
	return changes
}

// dropFilters removes both filters for fd. Filters that were never armed or
// that the kernel already dropped with the descriptor report ENOENT/EBADF,
// which is the expected no-op case.
func (b *kqueueBackend) dropFilters(fd int) error {
	for _, filter := range []int{unix.EVFILT_READ, unix.EVFILT_WRITE} {
		var ev unix.Kevent_t
		unix.SetKevent(&ev, fd, filter, unix.EV_DELETE)
		_, err := unix.Kevent(b.kq, []unix.Kevent_t{ev}, nil, nil)
		switch err {
		case nil, unix.ENOENT, unix.EBADF:
		default:
			return sysErr("kevent", err)
		}
	}
	return nil
}

func (b *kqueueBackend) Register(fd int, interest api.Events) error {
	changes := b.armFilters(fd, interest)
	if len(changes) == 0 {
		// Empty interest: tracked by the facade, nothing armed kernel-side.
		return nil
	}
	// One filter per call: a batched change list could leave the read
	// filter armed behind a rejected write filter, desyncing kernel state
	// from the facade's rolled-back table.
	for i := range changes {
		if _, err := unix.Kevent(b.kq, changes[i:i+1], nil, nil); err != nil {
			b.dropFilters(fd)
			return sysErr("kevent", err)
		}
	}
	return nil
}

// Modify hides kqueue's lack of in-place update: both filters are dropped
// and the new interest re-armed.
func (b *kqueueBackend) Modify(fd int, interest api.Events) error {
	if err := b.dropFilters(fd); err != nil {
		return err
	}
	return b.Register(fd, interest)
}

func (b *kqueueBackend) Unregister(fd int) error {
	return b.dropFilters(fd)
}

func (b *kqueueBackend) Wait(buf []api.RawEvent, t api.Timeout) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	// Retrieve at most len(buf) kevents: coalescing can only shrink the
	// count, so buf never overruns, and whatever is not retrieved stays
	// queued in the kernel for the next wait. Fetching more and dropping
	// the excess would lose EV_CLEAR events for good.
	if cap(b.raw) < len(buf) {
		b.raw = make([]unix.Kevent_t, len(buf))
	}
	raw := b.raw[:len(buf)]
	deadline, bounded := deadlineFor(t)
	for {
		var ts *unix.Timespec
		if bounded {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			v := unix.NsecToTimespec(remaining.Nanoseconds())
			ts = &v
		}
		n, err := unix.Kevent(b.kq, nil, raw, ts)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, sysErr("kevent", err)
		}
		out := 0
		for i := 0; i < n; i++ {
			k := raw[i]
			if k.Filter == unix.EVFILT_USER {
				continue
			}
			fd := int(k.Ident)
			var ev api.Events
			switch k.Filter {
			case unix.EVFILT_READ:
				ev = ev.WithRead()
			case unix.EVFILT_WRITE:
				ev = ev.WithWrite()
			}
			if k.Flags&unix.EV_EOF != 0 {
				ev = ev.WithHangUp()
			}
			if k.Flags&unix.EV_ERROR != 0 {
				ev = ev.WithError()
			}
			merged := false
			for j := 0; j < out; j++ {
				if buf[j].Fd == fd {
					buf[j].Events |= ev
					merged = true
					break
				}
			}
			if !merged {
				buf[out] = api.RawEvent{Fd: fd, Events: ev}
				out++
			}
		}
		return out, nil
	}
}

func (b *kqueueBackend) Wake() error {
	var ev unix.Kevent_t
	unix.SetKevent(&ev, wakeIdent, unix.EVFILT_USER, 0)
	ev.Fflags = unix.NOTE_TRIGGER
	if _, err := unix.Kevent(b.kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		return sysErr("kevent", err)
	}
	return nil
}

func (b *kqueueBackend) EdgeTriggered() bool { return b.edge }

func (b *kqueueBackend) Close() error {
	return unix.Close(b.kq)
}
