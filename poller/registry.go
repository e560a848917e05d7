// File: poller/registry.go
// Author: momentics <momentics@gmail.com>
//
// Canonical registration table: what the poller is watching. Pure
// bookkeeping, never touches the OS; the facade keeps it in lockstep with
// the backend and rolls back on backend failure.

package poller

import "github.com/momentics/hioload-poll/api"

// registration is one table entry.
type registration struct {
	interest api.Events
	context  any
}

type registry struct {
	entries map[int]registration
}

func newRegistry() *registry {
	return &registry{entries: make(map[int]registration)}
}

func (r *registry) insert(fd int, interest api.Events, ctx any) error {
	if _, ok := r.entries[fd]; ok {
		return api.ErrAlreadyRegistered
	}
	r.entries[fd] = registration{interest: interest, context: ctx}
	return nil
}

// update replaces the entry and returns the prior value for rollback.
func (r *registry) update(fd int, interest api.Events, ctx any) (registration, error) {
	prior, ok := r.entries[fd]
	if !ok {
		return registration{}, api.ErrNotRegistered
	}
	r.entries[fd] = registration{interest: interest, context: ctx}
	return prior, nil
}

// erase removes the entry and returns it so the facade can deregister the
// backend side too.
func (r *registry) erase(fd int) (registration, error) {
	reg, ok := r.entries[fd]
	if !ok {
		return registration{}, api.ErrNotRegistered
	}
	delete(r.entries, fd)
	return reg, nil
}

func (r *registry) lookup(fd int) (registration, bool) {
	reg, ok := r.entries[fd]
	return reg, ok
}

// restore puts back an entry captured before a failed backend call.
func (r *registry) restore(fd int, reg registration) {
	r.entries[fd] = reg
}

func (r *registry) len() int { return len(r.entries) }
