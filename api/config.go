// File: api/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Backend hints recognized by the backend factory. An empty hint selects
// the platform default (epoll on Linux, kqueue on the BSDs).
const (
	BackendEpoll  = "epoll"
	BackendKqueue = "kqueue"
	BackendPoll   = "poll"
)

// Config holds parameters immutable for the lifetime of one Poller.
type Config struct {
	Backend          string // backend hint; empty picks the platform default
	MaxEventsPerWait int    // capacity of the per-wait event batch
	EdgeTriggered    bool   // request edge-triggered delivery where available
}

// DefaultConfig returns default configuration values.
func DefaultConfig() Config {
	return Config{
		Backend:          "",  // platform default facility
		MaxEventsPerWait: 128, // events fetched per wait syscall
		EdgeTriggered:    false,
	}
}
