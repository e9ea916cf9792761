package poller

import (
	"errors"
	"time"
)

// Mode selects how a poller refreshes.
type Mode int

const (
	// OneShot pollers execute once on start and then only on refetch.
	OneShot Mode = iota

	// Interval pollers additionally execute on every tick.
	Interval
)

// String returns "one-shot" or "interval".
func (m Mode) String() string {
	switch m {
	case OneShot:
		return "one-shot"
	case Interval:
		return "interval"
	default:
		return "unknown"
	}
}

// RefreshPolicy controls a poller's cadence.
type RefreshPolicy struct {
	// Mode is OneShot or Interval.
	Mode Mode

	// Interval is the tick period. Required (positive) in Interval mode.
	Interval time.Duration

	// AutoStart marks the poller to be started when its registry activates.
	AutoStart bool
}

// Validate reports whether the policy is usable.
func (p RefreshPolicy) Validate() error {
	switch p.Mode {
	case OneShot:
		return nil
	case Interval:
		if p.Interval <= 0 {
			return errors.New("refresh interval must be positive")
		}
		return nil
	default:
		return errors.New("unknown refresh mode")
	}
}
