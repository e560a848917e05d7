//go:build linux || darwin || dragonfly || freebsd
// +build linux darwin dragonfly freebsd

// poll_unix_test.go — poll(2) backend internals: overflow parking and purge.

package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-poll/api"
)

func readyPipe(t *testing.T) (rd int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	for _, fd := range p {
		require.NoError(t, unix.SetNonblock(fd, true))
	}
	_, err := unix.Write(p[1], []byte("x"))
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0]
}

func newPollForTest(t *testing.T) *pollBackend {
	t.Helper()
	cfg := api.DefaultConfig()
	cfg.Backend = api.BackendPoll
	b, err := newPollBackend(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPollBackendParksEventsBeyondBatch(t *testing.T) {
	b := newPollForTest(t)

	fds := make(map[int]bool)
	for i := 0; i < 3; i++ {
		rd := readyPipe(t)
		fds[rd] = false
		require.NoError(t, b.Register(rd, api.NewEvents().WithRead()))
	}

	// A one-slot batch over three ready descriptors: one delivered, two
	// parked, drained by the following waits without re-polling losses.
	buf := make([]api.RawEvent, 1)
	for i := 0; i < 3; i++ {
		n, err := b.Wait(buf, api.Immediate())
		require.NoError(t, err)
		require.Equal(t, 1, n)
		_, known := fds[buf[0].Fd]
		require.True(t, known, "unexpected fd %d", buf[0].Fd)
		fds[buf[0].Fd] = true
	}
	for fd, seen := range fds {
		assert.True(t, seen, "fd %d never delivered", fd)
	}
}

func TestPollBackendPurgesParkedEventsOnUnregister(t *testing.T) {
	b := newPollForTest(t)

	registered := make(map[int]bool)
	for i := 0; i < 3; i++ {
		rd := readyPipe(t)
		registered[rd] = true
		require.NoError(t, b.Register(rd, api.NewEvents().WithRead()))
	}

	buf := make([]api.RawEvent, 1)
	n, err := b.Wait(buf, api.Immediate())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	delivered := buf[0].Fd

	// Drop one of the still-parked descriptors.
	var removed int
	for fd := range registered {
		if fd != delivered {
			removed = fd
			break
		}
	}
	require.NoError(t, b.Unregister(removed))

	// The removed descriptor must never surface again, parked or re-polled.
	for i := 0; i < 5; i++ {
		n, err := b.Wait(buf, api.Immediate())
		require.NoError(t, err)
		if n == 1 {
			assert.NotEqual(t, removed, buf[0].Fd)
		}
	}
}

func TestPollBackendWakeWithoutWaiterIsConsumed(t *testing.T) {
	b := newPollForTest(t)
	require.NoError(t, b.Wake())

	// The pending wake makes the next wait return empty instead of
	// blocking for the full timeout.
	buf := make([]api.RawEvent, 4)
	n, err := b.Wait(buf, api.Forever())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPollBackendRejectsEdgeTriggered(t *testing.T) {
	cfg := api.DefaultConfig()
	cfg.EdgeTriggered = true
	_, err := newPollBackend(cfg)
	assert.ErrorIs(t, err, api.ErrNotSupported)
}
