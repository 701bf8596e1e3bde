package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"roster/pkg/logging"
)

// DefaultDebounceInterval is the time to wait before triggering a reload
// after the last file change is detected.
const DefaultDebounceInterval = 500 * time.Millisecond

// WatcherConfig holds configuration for the definition watcher.
type WatcherConfig struct {
	// ConfigPath is the configuration directory to watch.
	ConfigPath string

	// Debounce overrides the reload debounce interval.
	Debounce time.Duration

	// OnChange is called with the freshly reloaded service definitions
	// after changes settle. The host turns these into data-update
	// commands.
	OnChange func(defs []ServiceConfig)
}

// Watcher monitors the services/ directory for definition changes and
// reloads them. Rapid successive writes collapse into a single reload.
type Watcher struct {
	mu sync.Mutex

	config    WatcherConfig
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a definition watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounceInterval
	}
	return &Watcher{config: config}
}

// Start begins watching. It fails if the watched directory cannot be
// registered with the file system notifier.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Join(w.config.ConfigPath, servicesDir)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	w.fsWatcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true

	go w.processEvents(watcher.Events, watcher.Errors)

	logging.Info("ConfigWatcher", "Watching %s for service definition changes", dir)
	return nil
}

// processEvents handles fsnotify events. The channels are passed as
// parameters to avoid race conditions with Stop().
func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("ConfigWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	ext := filepath.Ext(event.Name)
	if ext != ".yaml" && ext != ".yml" {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("ConfigWatcher", "Service definition changed: %s", event.Name)
	w.triggerReloadDebounced()
}

// triggerReloadDebounced schedules a reload after the debounce period,
// resetting the timer on every further change.
func (w *Watcher) triggerReloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.Debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	running := w.running
	callback := w.config.OnChange
	dir := filepath.Join(w.config.ConfigPath, servicesDir)
	w.mu.Unlock()

	if !running || callback == nil {
		return
	}

	defs, err := LoadServiceDefinitions(dir)
	if err != nil {
		logging.Error("ConfigWatcher", err, "Failed to reload service definitions")
		return
	}
	callback(defs)
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("ConfigWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Info("ConfigWatcher", "Stopped")
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
