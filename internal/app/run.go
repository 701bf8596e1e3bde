package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"roster/internal/config"
	"roster/internal/events"
	"roster/internal/graph"
	"roster/pkg/logging"
)

// Run executes the application: the orchestrator starts, the update loop
// ticks at the configured cycle interval and, when enabled, the definition
// watcher feeds edits back as data updates. Run blocks until the context
// is cancelled or a SIGINT/SIGTERM arrives, then tears the orchestrator
// down.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.orch.Start(ctx); err != nil {
		return err
	}

	var watcher *config.Watcher
	if a.config.Watch {
		watcher = config.NewWatcher(config.WatcherConfig{
			ConfigPath: a.config.ConfigPath,
			OnChange:   a.applyDefinitionChanges,
		})
		if err := watcher.Start(); err != nil {
			logging.Warn("App", "Definition watcher unavailable: %v", err)
			watcher = nil
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.cycleLoop(ctx) })
	group.Go(func() error { return a.logEvents(ctx) })

	err := group.Wait()

	if watcher != nil {
		watcher.Stop()
	}
	a.orch.Stop(context.Background())
	return err
}

// cycleLoop drives the orchestrator at the configured interval. All
// lifecycle processing happens here, on this one goroutine.
func (a *Application) cycleLoop(ctx context.Context) error {
	interval := a.config.RosterConfig.Cycle.Interval.Std()
	if interval <= 0 {
		interval = config.DefaultCycleInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info("App", "Update loop running (interval: %s)", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.orch.Cycle(ctx)
		}
	}
}

// logEvents mirrors every lifecycle event into the log.
func (a *Application) logEvents(ctx context.Context) error {
	id, ch := a.orch.Subscribe(events.Filter{})
	defer a.orch.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			logging.Info("App", "%s: %s -> %s (%s)", e.Node, e.Previous, e.New, e.Cause)
		}
	}
}

// applyDefinitionChanges turns reloaded service definitions into data
// updates on already-registered services. New definitions need a restart
// to take effect; the watcher only feeds running services.
func (a *Application) applyDefinitionChanges(defs []config.ServiceConfig) {
	known := make(map[graph.NodeID]bool)
	for _, status := range a.orch.Services() {
		known[status.ID] = true
	}

	for _, def := range defs {
		id := graph.ServiceID(def.Name)
		if !known[id] {
			logging.Debug("App", "Ignoring definition for unregistered service %s", def.Name)
			continue
		}
		logging.Debug("App", "Applying definition change for %s", def.Name)
		a.orch.UpdateData(id, def.Data)
	}
}
