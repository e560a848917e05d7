// File: api/events.go
// Author: momentics <momentics@gmail.com>
//
// Readiness event mask shared by all poll backends.

package api

import "strings"

// Events is a bit set describing either the interest registered for a
// descriptor or the readiness observed on it.
type Events uint8

const (
	// Readable means a read can proceed without blocking.
	Readable Events = 1 << iota
	// Writable means a write can proceed without blocking.
	Writable
	// Error means an error condition is pending on the descriptor.
	Error
	// HangUp means the peer closed its end of the channel.
	HangUp
)

// NewEvents returns the empty mask. An empty interest mask is legal: the
// descriptor stays registered but delivers nothing until modified.
func NewEvents() Events { return 0 }

// WithRead returns the mask with Readable added.
func (e Events) WithRead() Events { return e | Readable }

// WithWrite returns the mask with Writable added.
func (e Events) WithWrite() Events { return e | Writable }

// WithError returns the mask with Error added.
func (e Events) WithError() Events { return e | Error }

// WithHangUp returns the mask with HangUp added.
func (e Events) WithHangUp() Events { return e | HangUp }

// HasRead reports whether Readable is set.
func (e Events) HasRead() bool { return e&Readable != 0 }

// HasWrite reports whether Writable is set.
func (e Events) HasWrite() bool { return e&Writable != 0 }

// HasError reports whether Error is set.
func (e Events) HasError() bool { return e&Error != 0 }

// HasHangUp reports whether HangUp is set.
func (e Events) HasHangUp() bool { return e&HangUp != 0 }

// Intersects reports whether the two masks share at least one flag.
func (e Events) Intersects(other Events) bool { return e&other != 0 }

// IsEmpty reports whether no flag is set.
func (e Events) IsEmpty() bool { return e == 0 }

// String renders the mask as "read|write|error|hangup", or "none".
func (e Events) String() string {
	if e.IsEmpty() {
		return "none"
	}
	parts := make([]string, 0, 4)
	if e.HasRead() {
		parts = append(parts, "read")
	}
	if e.HasWrite() {
		parts = append(parts, "write")
	}
	if e.HasError() {
		parts = append(parts, "error")
	}
	if e.HasHangUp() {
		parts = append(parts, "hangup")
	}
	return strings.Join(parts, "|")
}
