// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides test doubles for the poller interfaces.
package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-poll/api"
)

// Backend is a scripted api.Backend. Tests queue ready batches with
// QueueEvents and inject failures through the Err fields.
type Backend struct {
	mu         sync.Mutex
	registered map[int]api.Events
	batches    [][]api.RawEvent
	wake       chan struct{}

	RegisterErr   error // returned by Register when set
	ModifyErr     error // returned by Modify when set
	UnregisterErr error // returned by Unregister when set
	Edge          bool
	Closed        bool
}

var _ api.Backend = (*Backend)(nil)

// NewBackend returns an empty scripted backend.
func NewBackend() *Backend {
	return &Backend{
		registered: make(map[int]api.Events),
		wake:       make(chan struct{}, 1),
	}
}

// QueueEvents schedules one ready batch for a future Wait call.
func (f *Backend) QueueEvents(evs ...api.RawEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, evs)
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Registered reports the interest currently registered for fd.
func (f *Backend) Registered(fd int) (api.Events, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.registered[fd]
	return ev, ok
}

func (f *Backend) Register(fd int, interest api.Events) error {
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[fd] = interest
	return nil
}

func (f *Backend) Modify(fd int, interest api.Events) error {
	if f.ModifyErr != nil {
		return f.ModifyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[fd] = interest
	return nil
}

func (f *Backend) Unregister(fd int) error {
	if f.UnregisterErr != nil {
		return f.UnregisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registered, fd)
	return nil
}

// Wait pops the oldest queued batch, truncated to the buffer. With no batch
// queued it honors the timeout, returning early on Wake.
func (f *Backend) Wait(buf []api.RawEvent, t api.Timeout) (int, error) {
	if n, ok := f.pop(buf); ok {
		return n, nil
	}
	var expire <-chan time.Time
	if d, bounded := t.Duration(); bounded {
		if d == 0 {
			return 0, nil
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		expire = timer.C
	}
	select {
	case <-f.wake:
		// A batch may have been queued along with the wake.
		if n, ok := f.pop(buf); ok {
			return n, nil
		}
		return 0, nil
	case <-expire:
		return 0, nil
	}
}

func (f *Backend) pop(buf []api.RawEvent) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return 0, false
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	n := copy(buf, batch)
	return n, true
}

func (f *Backend) Wake() error {
	select {
	case f.wake <- struct{}{}:
	default:
	}
	return nil
}

func (f *Backend) EdgeTriggered() bool { return f.Edge }

func (f *Backend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
