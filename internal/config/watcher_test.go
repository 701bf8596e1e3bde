package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	svcDir := filepath.Join(dir, "services")
	require.NoError(t, os.MkdirAll(svcDir, 0o755))

	var mu sync.Mutex
	var got []ServiceConfig
	w := NewWatcher(WatcherConfig{
		ConfigPath: dir,
		Debounce:   10 * time.Millisecond,
		OnChange: func(defs []ServiceConfig) {
			mu.Lock()
			defer mu.Unlock()
			got = defs
		},
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	writeFile(t, filepath.Join(svcDir, "api.yaml"), "name: api\nautoStart: true\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].Name == "api"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	svcDir := filepath.Join(dir, "services")
	require.NoError(t, os.MkdirAll(svcDir, 0o755))

	var mu sync.Mutex
	calls := 0
	w := NewWatcher(WatcherConfig{
		ConfigPath: dir,
		Debounce:   10 * time.Millisecond,
		OnChange: func([]ServiceConfig) {
			mu.Lock()
			defer mu.Unlock()
			calls++
		},
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	writeFile(t, filepath.Join(svcDir, "README.md"), "not a definition")

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestWatcherStartFailsOnMissingDirectory(t *testing.T) {
	w := NewWatcher(WatcherConfig{ConfigPath: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, w.Start())
	assert.False(t, w.IsRunning())
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "services"), 0o755))

	w := NewWatcher(WatcherConfig{ConfigPath: dir})
	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}
