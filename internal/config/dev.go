package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/alfycore/veko/internal/constants"
)

// DevConfig controls the live development engine. The engine is only
// active when Enabled is true; production builds never start it.
type DevConfig struct {
	Enabled   bool           `json:"enabled" yaml:"enabled"`
	WSPort    int            `json:"ws_port" yaml:"ws_port"`
	Debounce  time.Duration  `json:"debounce" yaml:"debounce"`
	WatchDirs []string       `json:"watch_dirs" yaml:"watch_dirs"`
	Prefetch  PrefetchConfig `json:"prefetch" yaml:"prefetch"`
}

// PrefetchConfig controls the idle-time route prefetch hint sent to
// freshly connected clients.
type PrefetchConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	PrefetchDelay time.Duration `json:"prefetch_delay" yaml:"prefetch_delay"`
}

// DefaultDevConfig returns default dev engine configuration
func DefaultDevConfig() DevConfig {
	return DevConfig{
		Enabled:  false,
		WSPort:   35729,
		Debounce: constants.DevDebounce,
		Prefetch: PrefetchConfig{
			Enabled:       true,
			PrefetchDelay: constants.PrefetchDelay,
		},
	}
}

// Validate validates dev engine configuration
func (d *DevConfig) Validate() error {
	var errs []error

	if err := validatePort(d.WSPort, "ws_port"); err != nil {
		errs = append(errs, err)
	}
	if d.Debounce < 0 {
		errs = append(errs, errors.New("debounce must be non-negative"))
	}
	if d.Prefetch.PrefetchDelay < 0 {
		errs = append(errs, errors.New("prefetch.prefetch_delay must be non-negative"))
	}
	for _, dir := range d.WatchDirs {
		if dir == "" {
			errs = append(errs, fmt.Errorf("watch_dirs must not contain empty entries"))
			break
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
