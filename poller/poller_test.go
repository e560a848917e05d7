// poller_test.go — facade unit tests over the scripted fake backend.

package poller_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-poll/api"
	"github.com/momentics/hioload-poll/fake"
	"github.com/momentics/hioload-poll/poller"
)

func newFakePoller(t *testing.T) (*poller.Poller, *fake.Backend) {
	t.Helper()
	be := fake.NewBackend()
	p, err := poller.NewWithBackend(be, api.DefaultConfig())
	require.NoError(t, err)
	return p, be
}

func TestAddDuplicateFails(t *testing.T) {
	p, _ := newFakePoller(t)
	defer p.Close()

	require.NoError(t, p.Add(1, api.NewEvents().WithRead(), nil))
	err := p.Add(1, api.NewEvents().WithWrite(), nil)
	assert.ErrorIs(t, err, api.ErrAlreadyRegistered)
	assert.Equal(t, 1, p.Len())
}

func TestModifyAndRemoveUnknownFail(t *testing.T) {
	p, _ := newFakePoller(t)
	defer p.Close()

	assert.ErrorIs(t, p.Modify(9, api.NewEvents().WithRead(), nil), api.ErrNotRegistered)
	assert.ErrorIs(t, p.Remove(9), api.ErrNotRegistered)
}

func TestRemoveIsNotIdempotent(t *testing.T) {
	p, _ := newFakePoller(t)
	defer p.Close()

	require.NoError(t, p.Add(4, api.NewEvents().WithRead(), nil))
	require.NoError(t, p.Remove(4))
	assert.ErrorIs(t, p.Remove(4), api.ErrNotRegistered)
}

func TestAddRollsBackTableOnBackendFailure(t *testing.T) {
	p, be := newFakePoller(t)
	defer p.Close()

	boom := errors.New("register rejected")
	be.RegisterErr = boom
	err := p.Add(2, api.NewEvents().WithRead(), "ctx")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, p.Len())

	// The failed insert left no residue.
	be.RegisterErr = nil
	assert.NoError(t, p.Add(2, api.NewEvents().WithRead(), "ctx"))
}

func TestModifyRollsBackTableOnBackendFailure(t *testing.T) {
	p, be := newFakePoller(t)
	defer p.Close()

	require.NoError(t, p.Add(2, api.NewEvents().WithRead(), "old"))

	boom := errors.New("modify rejected")
	be.ModifyErr = boom
	err := p.Modify(2, api.NewEvents().WithWrite(), "new")
	assert.ErrorIs(t, err, boom)

	// The table kept the prior mask and context.
	be.ModifyErr = nil
	be.QueueEvents(api.RawEvent{Fd: 2, Events: api.NewEvents().WithRead()})
	set, err := p.PullEvents(api.Immediate())
	require.NoError(t, err)
	ev, ok := set.Next()
	require.True(t, ok)
	assert.Equal(t, "old", ev.Context)

	interest, registered := be.Registered(2)
	require.True(t, registered)
	assert.Equal(t, api.NewEvents().WithRead(), interest)
}

func TestPullEventsEchoesContext(t *testing.T) {
	p, be := newFakePoller(t)
	defer p.Close()

	type conn struct{ name string }
	c := &conn{name: "client-1"}
	require.NoError(t, p.Add(5, api.NewEvents().WithRead(), c))

	be.QueueEvents(api.RawEvent{Fd: 5, Events: api.NewEvents().WithRead()})
	set, err := p.PullEvents(api.After(time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	ev, ok := set.Next()
	require.True(t, ok)
	assert.Equal(t, 5, ev.Fd)
	assert.True(t, ev.Events.HasRead())
	assert.Same(t, c, ev.Context)
}

func TestPullEventsSkipsUnregisteredDescriptors(t *testing.T) {
	p, be := newFakePoller(t)
	defer p.Close()

	require.NoError(t, p.Add(1, api.NewEvents().WithRead(), "kept"))

	// fd 99 raced with a remove; the stale report is dropped silently.
	be.QueueEvents(
		api.RawEvent{Fd: 99, Events: api.NewEvents().WithRead()},
		api.RawEvent{Fd: 1, Events: api.NewEvents().WithRead()},
	)
	set, err := p.PullEvents(api.Immediate())
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	ev, _ := set.Next()
	assert.Equal(t, 1, ev.Fd)
	assert.Equal(t, "kept", ev.Context)
}

func TestEventSetIsFiniteAndNotRestartable(t *testing.T) {
	p, be := newFakePoller(t)
	defer p.Close()

	for fd := 1; fd <= 3; fd++ {
		require.NoError(t, p.Add(fd, api.NewEvents().WithRead(), fd*10))
	}
	be.QueueEvents(
		api.RawEvent{Fd: 1, Events: api.Readable},
		api.RawEvent{Fd: 2, Events: api.Readable},
		api.RawEvent{Fd: 3, Events: api.Readable},
	)

	set, err := p.PullEvents(api.Immediate())
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())

	seen := 0
	for {
		_, ok := set.Next()
		if !ok {
			break
		}
		seen++
	}
	assert.Equal(t, 3, seen)
	assert.Equal(t, 0, set.Remaining())

	// Exhausted stays exhausted.
	_, ok := set.Next()
	assert.False(t, ok)
}

func TestConcurrentPullEventsRejected(t *testing.T) {
	p, _ := newFakePoller(t)
	defer p.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		set, err := p.PullEvents(api.Forever())
		if err == nil {
			_ = set
		}
	}()

	// Let the first waiter block, then collide with it.
	time.Sleep(50 * time.Millisecond)
	_, err := p.PullEvents(api.Immediate())
	assert.ErrorIs(t, err, api.ErrWaitInProgress)

	require.NoError(t, p.Wake())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("woken waiter did not return")
	}
}

func TestWakeReturnsEmptySet(t *testing.T) {
	p, _ := newFakePoller(t)
	defer p.Close()

	type result struct {
		set *poller.EventSet
		err error
	}
	ch := make(chan result, 1)
	go func() {
		set, err := p.PullEvents(api.Forever())
		ch <- result{set, err}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Wake())

	select {
	case r := <-ch:
		require.NoError(t, r.err)
		assert.Equal(t, 0, r.set.Len())
	case <-time.After(2 * time.Second):
		t.Fatal("wake did not interrupt the wait")
	}
}

func TestClosedPollerRejectsEverything(t *testing.T) {
	p, be := newFakePoller(t)
	require.NoError(t, p.Add(1, api.NewEvents().WithRead(), nil))
	require.NoError(t, p.Close())
	assert.True(t, be.Closed)

	assert.ErrorIs(t, p.Add(2, api.NewEvents(), nil), api.ErrPollerClosed)
	assert.ErrorIs(t, p.Modify(1, api.NewEvents(), nil), api.ErrPollerClosed)
	assert.ErrorIs(t, p.Remove(1), api.ErrPollerClosed)
	assert.ErrorIs(t, p.Wake(), api.ErrPollerClosed)
	_, err := p.PullEvents(api.Immediate())
	assert.ErrorIs(t, err, api.ErrPollerClosed)

	// Close is idempotent.
	assert.NoError(t, p.Close())
}

func TestEmptyInterestMaskIsLegal(t *testing.T) {
	p, be := newFakePoller(t)
	defer p.Close()

	require.NoError(t, p.Add(8, api.NewEvents(), "muted"))
	interest, ok := be.Registered(8)
	require.True(t, ok)
	assert.True(t, interest.IsEmpty())
	assert.Equal(t, 1, p.Len())
}

func TestEdgeTriggeredReportsBackendSemantics(t *testing.T) {
	be := fake.NewBackend()
	be.Edge = true
	p, err := poller.NewWithBackend(be, api.DefaultConfig())
	require.NoError(t, err)
	defer p.Close()
	assert.True(t, p.EdgeTriggered())
}
