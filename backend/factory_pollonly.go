//go:build netbsd || openbsd
// +build netbsd openbsd

// File: backend/factory_pollonly.go
// Author: momentics <momentics@gmail.com>
//
// NetBSD/OpenBSD lack EVFILT_USER for wake-ups, so only the self-pipe
// poll(2) backend is offered there.

package backend

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-poll/api"
)

// New constructs the platform backend selected by cfg.Backend.
func New(cfg api.Config) (api.Backend, error) {
	switch cfg.Backend {
	case "", api.BackendPoll:
		return newPollBackend(cfg)
	default:
		return nil, fmt.Errorf("%w: backend %q on %s", api.ErrNotSupported, cfg.Backend, runtime.GOOS)
	}
}
