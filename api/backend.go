// File: api/backend.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for OS readiness-notification backends
// used to multiplex descriptors across poll-mode facilities
// (epoll, kqueue, poll(2)).

package api

// RawEvent is one readiness report as produced by a backend wait call,
// before the facade resolves the registered context.
type RawEvent struct {
	Fd     int    // file descriptor
	Events Events // observed readiness
}

// Backend is one concrete OS polling facility. A Backend instance is owned
// by exactly one Poller and holds the kernel-side registration state.
type Backend interface {
	// Register adds fd with the given interest to the OS facility.
	Register(fd int, interest Events) error

	// Modify replaces the interest of an already-registered fd. Facilities
	// without in-place modification re-register internally.
	Modify(fd int, interest Events) error

	// Unregister removes fd from the OS facility. Descriptors the OS has
	// already dropped (closed fds) unregister as a no-op, not an error.
	Unregister(fd int) error

	// Wait blocks until readiness, timeout expiry, or a Wake call, and
	// fills buf with at most len(buf) reports. Timeout expiry and wake-ups
	// return n == 0 with a nil error. Signal interruptions are retried
	// internally against the remaining timeout budget and never surface.
	Wait(buf []RawEvent, t Timeout) (n int, err error)

	// Wake forces an in-flight Wait to return early with an empty result.
	// Safe to call from any goroutine; a wake with no waiter is remembered
	// and consumed by the next Wait.
	Wake() error

	// EdgeTriggered reports the delivery semantics of this backend:
	// true means one report per transition to ready, false means a ready
	// descriptor is re-reported on every wait.
	EdgeTriggered() bool

	// Close releases the OS facility.
	Close() error
}
