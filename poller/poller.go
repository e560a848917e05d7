// File: poller/poller.go
// Unified facade over the registration table and the platform backend.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Poller owns one registration table and one backend instance. Add,
// Modify and Remove mutate both sides atomically (table first, backend
// second, table rolled back on backend failure). PullEvents delegates the
// blocking wait to the backend and resolves each raw report against the
// table to recover the caller's context.
//
// Concurrency: the table is mutex-guarded and the backends tolerate
// registration changes concurrent with a blocked wait, so Add/Modify/Remove
// may be called from other goroutines while PullEvents blocks. Only one
// PullEvents may be in flight per instance. Wake forces a blocked
// PullEvents to return early with an empty set.

package poller

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-poll/api"
	"github.com/momentics/hioload-poll/backend"
)

// Poller is the caller-facing readiness-notification facade.
type Poller struct {
	mu      sync.Mutex // guards table and closed
	table   *registry
	be      api.Backend
	buf     []api.RawEvent // reused wait batch, owned by the single waiter
	waiting atomic.Bool
	closed  bool
}

// New constructs a Poller with the platform backend selected by cfg.
// Failure to create the OS facility is the only fatal-resource condition
// and is reported here, once.
func New(cfg api.Config) (*Poller, error) {
	if cfg.MaxEventsPerWait <= 0 {
		cfg.MaxEventsPerWait = api.DefaultConfig().MaxEventsPerWait
	}
	be, err := backend.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(be, cfg)
}

// NewWithBackend constructs a Poller over a caller-supplied backend, for
// custom adapters and test doubles.
func NewWithBackend(be api.Backend, cfg api.Config) (*Poller, error) {
	if cfg.MaxEventsPerWait <= 0 {
		cfg.MaxEventsPerWait = api.DefaultConfig().MaxEventsPerWait
	}
	return &Poller{
		table: newRegistry(),
		be:    be,
		buf:   make([]api.RawEvent, cfg.MaxEventsPerWait),
	}, nil
}

// Add registers fd with the given interest and context. The context is
// opaque to the poller and echoed back on every readiness report for fd.
func (p *Poller) Add(fd int, interest api.Events, ctx any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if err := p.table.insert(fd, interest, ctx); err != nil {
		return err
	}
	if err := p.be.Register(fd, interest); err != nil {
		p.table.erase(fd)
		return err
	}
	return nil
}

// Modify replaces the interest and context of a registered fd. On backend
// failure the table entry is rolled back to its prior state, so table and
// kernel never disagree after a failed call.
func (p *Poller) Modify(fd int, interest api.Events, ctx any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	prior, err := p.table.update(fd, interest, ctx)
	if err != nil {
		return err
	}
	if err := p.be.Modify(fd, interest); err != nil {
		p.table.restore(fd, prior)
		return err
	}
	return nil
}

// Remove deregisters fd. Descriptors the OS already dropped (closed behind
// the poller's back) deregister as a no-op on the backend side.
func (p *Poller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if _, err := p.table.erase(fd); err != nil {
		return err
	}
	return p.be.Unregister(fd)
}

// PullEvents blocks until readiness, timeout expiry, or Wake, and returns
// the resulting events with their registered contexts. Timeout expiry and
// wake-ups return an empty, non-nil set. Raw reports whose descriptor was
// removed while the wait was in flight are skipped silently; that race is
// benign, not an error. Event order follows the backend report order and
// carries no guarantee.
func (p *Poller) PullEvents(t api.Timeout) (*EventSet, error) {
	if !p.waiting.CompareAndSwap(false, true) {
		return nil, api.ErrWaitInProgress
	}
	defer p.waiting.Store(false)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, api.ErrPollerClosed
	}
	be, buf := p.be, p.buf
	p.mu.Unlock()

	n, err := be.Wait(buf, t)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		reg, ok := p.table.lookup(buf[i].Fd)
		if !ok {
			continue
		}
		events = append(events, Event{Fd: buf[i].Fd, Events: buf[i].Events, Context: reg.context})
	}
	return &EventSet{events: events}, nil
}

// Wake forces an in-flight PullEvents to return early with an empty set.
// With no waiter in flight, the wake is consumed by the next PullEvents.
func (p *Poller) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	return p.be.Wake()
}

// EdgeTriggered reports the delivery semantics of the active backend. With
// edge-triggered delivery a descriptor is reported once per transition to
// ready; level-triggered backends re-report it on every wait while it stays
// ready.
func (p *Poller) EdgeTriggered() bool { return p.be.EdgeTriggered() }

// Len returns the number of registered descriptors.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table.len()
}

// Close wakes any blocked waiter and releases the OS facility. The caller
// should stop issuing PullEvents before Close; all later calls fail with
// ErrPollerClosed. Registered descriptors are not closed: their lifetime
// belongs to the caller.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	_ = p.be.Wake()
	return p.be.Close()
}
