// File: poller/events.go
// Author: momentics <momentics@gmail.com>
//
// Result sequence of one wait call.

package poller

import "github.com/momentics/hioload-poll/api"

// Event is one readiness report with the caller's registered context echoed
// back unmodified.
type Event struct {
	Fd      int
	Events  api.Events
	Context any
}

// EventSet is the finite result sequence of one PullEvents call. It is
// consumed once, in backend-report order, and is not restartable; every
// PullEvents call produces a fresh independent set.
type EventSet struct {
	events []Event
	pos    int
}

// Next yields the next event. ok is false once the set is exhausted.
func (s *EventSet) Next() (ev Event, ok bool) {
	if s.pos >= len(s.events) {
		return Event{}, false
	}
	ev = s.events[s.pos]
	s.pos++
	return ev, true
}

// Len returns the total number of events in the set.
func (s *EventSet) Len() int { return len(s.events) }

// Remaining returns how many events Next has not yielded yet.
func (s *EventSet) Remaining() int { return len(s.events) - s.pos }
