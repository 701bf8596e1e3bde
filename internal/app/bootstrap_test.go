package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/graph"
	"roster/internal/services"
)

func writeConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
cycle:
  interval: 5ms
`), 0o644))
	svcDir := filepath.Join(dir, "services")
	require.NoError(t, os.MkdirAll(svcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(svcDir, "api.yaml"), []byte(`
name: api
autoStart: true
`), 0o644))
	return dir
}

func TestNewApplicationLoadsConfiguredServices(t *testing.T) {
	cfg := NewConfig(false, true, writeConfigDir(t), false)

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	require.NotNil(t, cfg.RosterConfig)
	assert.Equal(t, 5*time.Millisecond, cfg.RosterConfig.Cycle.Interval.Std())

	snap := application.Orchestrator().Services()
	require.Len(t, snap, 1)
	assert.Equal(t, graph.ServiceID("api"), snap[0].ID)
}

func TestNewApplicationFailsOnBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("cycle: ["), 0o644))

	_, err := NewApplication(NewConfig(false, true, dir, false))
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := NewConfig(false, true, writeConfigDir(t), false)
	cfg.Hooks = map[string]services.Hooks{
		"api": {Init: func(services.Env) services.Completion { return services.Done(true) }},
	}
	application, err := NewApplication(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	orch := application.Orchestrator()
	require.Eventually(t, func() bool {
		return orch.CurrentState(graph.ServiceID("api")) == services.StateUp
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
	assert.Equal(t, services.StateDown, orch.CurrentState(graph.ServiceID("api")))
}
