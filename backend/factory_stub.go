//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd
// +build !linux,!darwin,!dragonfly,!freebsd,!netbsd,!openbsd

// File: backend/factory_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub factory for unsupported platforms. Windows is deliberately absent:
// IOCP is completion-based and cannot honor the readiness contract of
// api.Backend without faking level-triggered semantics.

package backend

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-poll/api"
)

// New returns an error for unsupported platforms.
func New(cfg api.Config) (api.Backend, error) {
	return nil, fmt.Errorf("%w: no readiness backend on %s", api.ErrNotSupported, runtime.GOOS)
}
