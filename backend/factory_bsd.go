//go:build darwin || dragonfly || freebsd
// +build darwin dragonfly freebsd

// File: backend/factory_bsd.go
// Author: momentics <momentics@gmail.com>
//
// BSD/Darwin backend factory: kqueue by default, poll(2) on request.

package backend

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-poll/api"
)

// New constructs the platform backend selected by cfg.Backend.
func New(cfg api.Config) (api.Backend, error) {
	switch cfg.Backend {
	case "", api.BackendKqueue:
		return newKqueueBackend(cfg)
	case api.BackendPoll:
		return newPollBackend(cfg)
	default:
		return nil, fmt.Errorf("%w: backend %q on %s", api.ErrNotSupported, cfg.Backend, runtime.GOOS)
	}
}
