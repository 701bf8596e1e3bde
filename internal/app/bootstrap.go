package app

import (
	"fmt"
	"io"
	"os"

	"roster/internal/config"
	"roster/internal/orchestrator"
	"roster/pkg/logging"
)

// Application bootstraps and runs roster. Bootstrap loads the
// configuration, initializes logging and builds the orchestrator; Run
// drives the update loop until the context is cancelled.
type Application struct {
	config *Config
	orch   *orchestrator.Orchestrator
}

// NewApplication creates an application instance: logging is initialized,
// the configuration directory is loaded and every configured service is
// registered with the orchestrator. Registration errors, cycles included,
// fail the bootstrap.
func NewApplication(cfg *Config) (*Application, error) {
	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}
	cfg.ConfigPath = configPath

	rosterCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	cfg.RosterConfig = &rosterCfg

	appLogLevel := logging.ParseLevel(rosterCfg.Log.Level)
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.Init(appLogLevel, logOutput)

	orch, err := BuildOrchestrator(rosterCfg, cfg.Hooks, cfg.Ops)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to build orchestrator")
		return nil, err
	}

	logging.Info("Bootstrap", "Loaded %d service definitions from %s", len(rosterCfg.Services), configPath)
	return &Application{config: cfg, orch: orch}, nil
}

// Orchestrator exposes the built orchestrator, e.g. for the check command
// and for embedding hosts.
func (a *Application) Orchestrator() *orchestrator.Orchestrator {
	return a.orch
}
