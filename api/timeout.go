// File: api/timeout.go
// Author: momentics <momentics@gmail.com>
//
// Explicit wait-timeout value. An infinite wait is a distinct state, not a
// sentinel duration, so backends never guess at magic numbers.

package api

import "time"

// Timeout bounds one blocking wait call. The zero value is Immediate.
type Timeout struct {
	d        time.Duration
	infinite bool
}

// Forever returns a Timeout that blocks until readiness or an explicit wake.
func Forever() Timeout { return Timeout{infinite: true} }

// Immediate returns a Timeout that polls and returns without blocking.
func Immediate() Timeout { return Timeout{} }

// After returns a Timeout expiring after d. Negative durations clamp to zero.
func After(d time.Duration) Timeout {
	if d < 0 {
		d = 0
	}
	return Timeout{d: d}
}

// IsForever reports whether the wait is unbounded.
func (t Timeout) IsForever() bool { return t.infinite }

// Duration returns the bound and whether one exists.
func (t Timeout) Duration() (time.Duration, bool) {
	if t.infinite {
		return 0, false
	}
	return t.d, true
}

// Millis converts to the millisecond convention of poll-style syscalls:
// -1 blocks indefinitely, 0 polls, n waits up to n ms. Sub-millisecond
// bounds round up so a short timeout never degrades into a busy spin.
func (t Timeout) Millis() int {
	if t.infinite {
		return -1
	}
	if t.d <= 0 {
		return 0
	}
	ms := t.d.Milliseconds()
	if t.d%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}
