// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types shared by the poller facade and the backends.

package api

import (
	"fmt"
	"syscall"
)

// Caller protocol violations and facade state errors. All of them are
// recoverable: the Poller instance stays usable after reporting one.
var (
	ErrAlreadyRegistered = fmt.Errorf("descriptor already registered")
	ErrNotRegistered     = fmt.Errorf("descriptor not registered")
	ErrPollerClosed      = fmt.Errorf("poller is closed")
	ErrWaitInProgress    = fmt.Errorf("another wait is already in flight")
	ErrNotSupported      = fmt.Errorf("not supported")
)

// BackendError reports that the OS polling facility rejected an operation.
// The original errno is preserved for callers that dispatch on it.
type BackendError struct {
	Op    string // syscall name, e.g. "epoll_ctl"
	Errno syscall.Errno
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Errno)
}

// Unwrap exposes the errno for errors.Is comparisons against unix constants.
func (e *BackendError) Unwrap() error { return e.Errno }

// Temporary reports whether retrying the operation may succeed.
func (e *BackendError) Temporary() bool { return e.Errno.Temporary() }
