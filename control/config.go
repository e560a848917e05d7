// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Static configuration loading and validation for the poller. The facade
// takes api.Config directly; this package is the file-backed variant for
// programs that keep poller tuning in a TOML file.

package control

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/momentics/hioload-poll/api"
)

// fileConfig mirrors api.Config with TOML field names.
type fileConfig struct {
	Backend          string `toml:"backend"`
	MaxEventsPerWait int    `toml:"max_events_per_wait"`
	EdgeTriggered    bool   `toml:"edge_triggered"`
}

// LoadFile reads a TOML file into a Config. Missing keys keep their
// defaults; the result is validated before being returned.
func LoadFile(path string) (api.Config, error) {
	def := api.DefaultConfig()
	fc := fileConfig{
		Backend:          def.Backend,
		MaxEventsPerWait: def.MaxEventsPerWait,
		EdgeTriggered:    def.EdgeTriggered,
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return api.Config{}, fmt.Errorf("load poller config: %w", err)
	}
	cfg := api.Config{
		Backend:          fc.Backend,
		MaxEventsPerWait: fc.MaxEventsPerWait,
		EdgeTriggered:    fc.EdgeTriggered,
	}
	if err := Validate(cfg); err != nil {
		return api.Config{}, err
	}
	return cfg, nil
}

// Validate bounds-checks a Config independent of the running platform.
// Platform availability of the hinted backend is checked by the backend
// factory, not here.
func Validate(cfg api.Config) error {
	switch cfg.Backend {
	case "", api.BackendEpoll, api.BackendKqueue, api.BackendPoll:
	default:
		return fmt.Errorf("unknown backend hint %q", cfg.Backend)
	}
	if cfg.MaxEventsPerWait < 0 {
		return fmt.Errorf("max_events_per_wait must be non-negative, got %d", cfg.MaxEventsPerWait)
	}
	if cfg.EdgeTriggered && cfg.Backend == api.BackendPoll {
		return fmt.Errorf("poll backend is level-triggered only")
	}
	return nil
}
