//go:build linux
// +build linux

// File: backend/factory_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux backend factory: epoll by default, poll(2) on request.

package backend

import (
	"fmt"

	"github.com/momentics/hioload-poll/api"
)

// New constructs the platform backend selected by cfg.Backend.
func New(cfg api.Config) (api.Backend, error) {
	switch cfg.Backend {
	case "", api.BackendEpoll:
		return newEpollBackend(cfg)
	case api.BackendPoll:
		return newPollBackend(cfg)
	default:
		return nil, fmt.Errorf("%w: backend %q on linux", api.ErrNotSupported, cfg.Backend)
	}
}
