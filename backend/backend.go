// File: backend/backend.go
// Author: momentics <momentics@gmail.com>
//
// Shared plumbing for the platform backends: errno wrapping and timeout
// bookkeeping across EINTR retries.

// Package backend provides the OS readiness-notification adapters behind the
// poller facade: epoll on Linux, kqueue on Darwin and the BSDs, and a
// portable poll(2) fallback. The factory New selects one per api.Config.
package backend

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/momentics/hioload-poll/api"
)

// sysErr wraps a syscall failure into api.BackendError, preserving errno.
func sysErr(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &api.BackendError{Op: op, Errno: errno}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// deadlineFor converts a Timeout into an absolute deadline. ok is false for
// unbounded waits.
func deadlineFor(t api.Timeout) (deadline time.Time, ok bool) {
	d, bounded := t.Duration()
	if !bounded {
		return time.Time{}, false
	}
	return time.Now().Add(d), true
}

// remainingMillis returns the millisecond budget left until deadline, in the
// poll syscall convention (-1 unbounded, 0 expired). Recomputed after every
// EINTR so retries never extend the overall wait.
func remainingMillis(deadline time.Time, bounded bool) int {
	if !bounded {
		return -1
	}
	return api.After(time.Until(deadline)).Millis()
}
