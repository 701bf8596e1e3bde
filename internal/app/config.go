package app

import (
	"roster/internal/config"
	"roster/internal/scope"
	"roster/internal/services"
)

// Config holds the application-level configuration assembled from command
// line flags before the roster configuration itself is loaded.
type Config struct {
	// Debug enables debug-level logging regardless of the configured level.
	Debug bool

	// Silent suppresses all log output.
	Silent bool

	// ConfigPath is the configuration directory. Empty means the default
	// user configuration path.
	ConfigPath string

	// Watch enables the definition watcher: edits to service definition
	// files become data updates on the running services.
	Watch bool

	// Hooks binds lifecycle hooks to configured services by name.
	// Embedding hosts populate this before bootstrap; services without an
	// entry come up with default hooks.
	Hooks map[string]services.Hooks

	// Ops binds scoped operation sets to configured services by name.
	Ops map[string][]scope.Op

	// RosterConfig is populated during bootstrap.
	RosterConfig *config.RosterConfig
}

// NewConfig creates an application configuration from command line flags.
func NewConfig(debug, silent bool, configPath string, watch bool) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
		Watch:      watch,
	}
}
