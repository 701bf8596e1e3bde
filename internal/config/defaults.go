package config

import "time"

// DefaultCycleInterval is the update loop period used when the
// configuration does not set one.
const DefaultCycleInterval = 100 * time.Millisecond

// GetDefaultConfig returns the default configuration for roster.
func GetDefaultConfig() RosterConfig {
	return RosterConfig{
		Cycle: CycleConfig{Interval: Duration(DefaultCycleInterval)},
		Log:   LogConfig{Level: "info"},
	}
}
