package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/events"
	"roster/internal/graph"
	"roster/internal/scope"
	"roster/internal/services"
	"roster/internal/tasks"
)

// drainEvents collects everything currently buffered on a subscription
// channel without blocking.
func drainEvents(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func syncInit(activate bool) services.InitHook {
	return func(services.Env) services.Completion { return services.Done(activate) }
}

func TestRegisterServiceRejectsCycle(t *testing.T) {
	o := New()

	_, err := o.RegisterService(Spec{Name: "a", Dependencies: []graph.NodeID{graph.ServiceID("b")}})
	require.NoError(t, err)

	_, err = o.RegisterService(Spec{Name: "b", Dependencies: []graph.NodeID{graph.ServiceID("a")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrCycleDetected)

	// The failed registration must not leave anything behind.
	_, ok := o.registry.Get(graph.ServiceID("b"))
	assert.False(t, ok)
}

func TestRegisterServiceRejectsEmptyName(t *testing.T) {
	o := New()
	_, err := o.RegisterService(Spec{})
	require.Error(t, err)
}

func TestStartFailsOnUnresolvedDependency(t *testing.T) {
	o := New()
	_, err := o.RegisterService(Spec{Name: "a", Dependencies: []graph.NodeID{graph.ServiceID("missing")}})
	require.NoError(t, err)

	err = o.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrUnknownDependency)
}

func TestAutostartBringsChainUpInOrder(t *testing.T) {
	o := New()
	a, err := o.RegisterService(Spec{Name: "a", ActivateAtStartup: true, Hooks: services.Hooks{Init: syncInit(true)}})
	require.NoError(t, err)
	b, err := o.RegisterService(Spec{
		Name:              "b",
		Dependencies:      []graph.NodeID{a},
		ActivateAtStartup: true,
		Hooks:             services.Hooks{Init: syncInit(true)},
	})
	require.NoError(t, err)

	_, ch := o.Subscribe(events.Filter{})
	require.NoError(t, o.Start(context.Background()))
	o.Cycle(context.Background())

	assert.Equal(t, services.StateUp, o.CurrentState(a))
	assert.Equal(t, services.StateUp, o.CurrentState(b))

	evs := drainEvents(ch)
	require.Len(t, evs, 2)
	assert.Equal(t, a, evs[0].Node)
	assert.Equal(t, services.StateUp, evs[0].New)
	assert.Equal(t, b, evs[1].Node)
	assert.Equal(t, services.StateUp, evs[1].New)
}

func TestInitGuardDefersUntilDependencyReady(t *testing.T) {
	o := New()
	ready := false
	res, err := o.RegisterResource("database", func() bool { return ready })
	require.NoError(t, err)
	svc, err := o.RegisterService(Spec{
		Name:         "api",
		Dependencies: []graph.NodeID{res},
		Hooks:        services.Hooks{Init: syncInit(true)},
	})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	_, ch := o.Subscribe(events.Filter{})
	o.Init(svc)

	// Guard unmet: the command is parked and retried, not dropped.
	o.Cycle(context.Background())
	o.Cycle(context.Background())
	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Empty(t, drainEvents(ch))
	assert.Equal(t, 1, o.PendingCommands())

	ready = true
	o.Cycle(context.Background())
	assert.Equal(t, services.StateUp, o.CurrentState(svc))
	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, events.CauseInit, evs[0].Cause)
}

func TestDeinitOnDownServiceIsSilent(t *testing.T) {
	o := New()
	svc, err := o.RegisterService(Spec{Name: "a"})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	_, ch := o.Subscribe(events.Filter{})
	o.Deinit(svc)
	o.Cycle(context.Background())

	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Equal(t, services.CauseNeverStarted, o.Reason(svc).Cause)
	assert.Empty(t, drainEvents(ch))
}

func TestCommandPriorityBeatsEnqueueOrder(t *testing.T) {
	o := New()
	var order []string
	svc, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{
		Init: syncInit(true),
		Deinit: func(services.Env) services.Completion {
			order = append(order, "deinit")
			return services.Done(false)
		},
		DataUpdate: func(_ services.Env, incoming any) (any, error) {
			order = append(order, "data")
			return incoming, nil
		},
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	o.Init(svc)
	o.Cycle(context.Background())
	require.Equal(t, services.StateUp, o.CurrentState(svc))

	// Data update enqueued first, deinit second. Deinit carries the higher
	// priority, so within the cycle it must execute first.
	o.UpdateData(svc, "payload")
	o.Deinit(svc)
	o.Cycle(context.Background())

	assert.Equal(t, []string{"deinit", "data"}, order)
	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Equal(t, "payload", o.Data(svc))
}

func TestDataUpdateOnDownServiceStoresWithoutEvent(t *testing.T) {
	o := New()
	svc, err := o.RegisterService(Spec{Name: "a", Data: "initial"})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	_, ch := o.Subscribe(events.Filter{})
	o.UpdateData(svc, "replaced")
	o.Cycle(context.Background())

	assert.Equal(t, "replaced", o.Data(svc))
	assert.Empty(t, drainEvents(ch))
}

func TestCascadeTearsDownOneLayerPerCycle(t *testing.T) {
	o := New()
	hooks := services.Hooks{Init: syncInit(true)}
	a, err := o.RegisterService(Spec{Name: "a", Hooks: hooks})
	require.NoError(t, err)
	b, err := o.RegisterService(Spec{Name: "b", Dependencies: []graph.NodeID{a}, Hooks: hooks})
	require.NoError(t, err)
	c, err := o.RegisterService(Spec{Name: "c", Dependencies: []graph.NodeID{b}, Hooks: hooks})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	o.Init(a)
	o.Init(b)
	o.Init(c)
	o.Cycle(context.Background())
	require.Equal(t, services.StateUp, o.CurrentState(c))

	_, ch := o.Subscribe(events.Filter{})
	o.Deinit(a)

	o.Cycle(context.Background())
	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, a, evs[0].Node)
	assert.Equal(t, events.CauseDeinit, evs[0].Cause)
	assert.Equal(t, services.StateUp, o.CurrentState(b))

	o.Cycle(context.Background())
	evs = drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, b, evs[0].Node)
	assert.Equal(t, events.CauseCascade, evs[0].Cause)
	assert.Equal(t, services.CauseDependency, evs[0].Reason.Cause)
	assert.Equal(t, a, evs[0].Reason.Dependency)

	o.Cycle(context.Background())
	evs = drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, c, evs[0].Node)
	assert.Equal(t, events.CauseCascade, evs[0].Cause)
	assert.Equal(t, b, evs[0].Reason.Dependency)
}

func TestAsyncInitEmitsExactlyOneEventOnResolution(t *testing.T) {
	o := New()
	gate := make(chan struct{})
	var task *tasks.Task
	svc, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{
		Init: func(services.Env) services.Completion {
			task = tasks.Go(func(ctx context.Context) (bool, error) {
				<-gate
				return true, nil
			})
			return services.Async(task)
		},
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	_, ch := o.Subscribe(events.Filter{})
	o.Init(svc)
	o.Cycle(context.Background())
	assert.Equal(t, services.StateInitializing, o.CurrentState(svc))
	assert.Empty(t, drainEvents(ch))

	// Still pending: cycles pass without events.
	o.Cycle(context.Background())
	assert.Empty(t, drainEvents(ch))

	close(gate)
	require.Eventually(t, func() bool {
		return task.Status() == tasks.StatusResolved
	}, time.Second, time.Millisecond)

	o.Cycle(context.Background())
	assert.Equal(t, services.StateUp, o.CurrentState(svc))
	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, services.StateInitializing, evs[0].Previous)
	assert.Equal(t, services.StateUp, evs[0].New)
	assert.Equal(t, events.CauseTaskResolved, evs[0].Cause)
}

func TestDeinitDuringInitCancelsTaskWithoutDeinitHook(t *testing.T) {
	o := New()
	gate := make(chan struct{})
	deinitCalls := 0
	var task *tasks.Task
	svc, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{
		Init: func(services.Env) services.Completion {
			task = tasks.Go(func(ctx context.Context) (bool, error) {
				<-gate
				return true, nil
			})
			return services.Async(task)
		},
		Deinit: func(services.Env) services.Completion {
			deinitCalls++
			return services.Done(false)
		},
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	o.Init(svc)
	o.Cycle(context.Background())
	require.Equal(t, services.StateInitializing, o.CurrentState(svc))

	_, ch := o.Subscribe(events.Filter{})
	o.Deinit(svc)
	o.Cycle(context.Background())

	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Equal(t, 0, deinitCalls)
	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, services.StateDown, evs[0].New)

	// The abandoned task resolving later must never surface as an up
	// transition.
	close(gate)
	require.Eventually(t, func() bool {
		return task.Status() != tasks.StatusPending
	}, time.Second, time.Millisecond)
	o.Cycle(context.Background())
	o.Cycle(context.Background())
	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Empty(t, drainEvents(ch))
}

func TestForceDownRecordsFailureAndNotifiesObserver(t *testing.T) {
	o := New()
	var observed []services.DownReason
	svc, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{
		Init: syncInit(true),
		OnFailure: func(_ services.Env, reason services.DownReason) {
			observed = append(observed, reason)
		},
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	o.Init(svc)
	o.Cycle(context.Background())

	boom := errors.New("connection lost")
	o.ForceDown(svc, boom)
	o.Cycle(context.Background())

	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Equal(t, services.CauseFailed, o.Reason(svc).Cause)
	assert.ErrorIs(t, o.Reason(svc).Err, boom)
	require.Len(t, observed, 1)
}

func TestDataUpdateRunsTransform(t *testing.T) {
	o := New()
	svc, err := o.RegisterService(Spec{Name: "a", Data: 1, Hooks: services.Hooks{
		Init: syncInit(true),
		DataUpdate: func(_ services.Env, incoming any) (any, error) {
			return incoming.(int) * 10, nil
		},
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	o.Init(svc)
	o.Cycle(context.Background())

	_, ch := o.Subscribe(events.Filter{})
	o.UpdateData(svc, 4)
	o.Cycle(context.Background())

	assert.Equal(t, 40, o.Data(svc))
	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, events.CauseDataUpdate, evs[0].Cause)
	assert.Equal(t, evs[0].Previous, evs[0].New)
}

func TestDataUpdateErrorFailsService(t *testing.T) {
	o := New()
	bad := errors.New("malformed payload")
	svc, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{
		Init: syncInit(true),
		DataUpdate: func(services.Env, any) (any, error) {
			return nil, bad
		},
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	o.Init(svc)
	o.Cycle(context.Background())

	o.UpdateData(svc, "whatever")
	o.Cycle(context.Background())

	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Equal(t, services.CauseFailed, o.Reason(svc).Cause)
	assert.ErrorIs(t, o.Reason(svc).Err, bad)
}

func TestRestartRunsDeinitThenInit(t *testing.T) {
	o := New()
	var order []string
	svc, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{
		Init: func(services.Env) services.Completion {
			order = append(order, "init")
			return services.Done(true)
		},
		Deinit: func(services.Env) services.Completion {
			order = append(order, "deinit")
			return services.Done(false)
		},
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	o.Init(svc)
	o.Cycle(context.Background())
	require.Equal(t, []string{"init"}, order)

	o.Restart(svc)
	o.Cycle(context.Background())

	assert.Equal(t, services.StateUp, o.CurrentState(svc))
	assert.Equal(t, []string{"init", "deinit", "init"}, order)
}

func TestInitHookDecliningActivationParksDown(t *testing.T) {
	o := New()
	svc, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{Init: syncInit(false)}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	_, ch := o.Subscribe(events.Filter{})
	o.Init(svc)
	o.Cycle(context.Background())

	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Equal(t, services.CauseStopped, o.Reason(svc).Cause)
	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, services.StateDown, evs[0].New)
}

func TestInitHookPanicIsContained(t *testing.T) {
	o := New()
	svc, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{
		Init: func(services.Env) services.Completion { panic("boom") },
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	o.Init(svc)
	o.Cycle(context.Background())

	assert.Equal(t, services.StateDown, o.CurrentState(svc))
	assert.Equal(t, services.CauseFailed, o.Reason(svc).Cause)
}

func TestScopedOpsRunOnlyWhileUp(t *testing.T) {
	o := New()
	ticks := 0
	svc, err := o.RegisterService(Spec{
		Name:  "a",
		Hooks: services.Hooks{Init: syncInit(true)},
		Ops: []scope.Op{{
			Name: "tick",
			Fn:   func(context.Context) { ticks++ },
		}},
	})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	o.Cycle(context.Background())
	assert.Equal(t, 0, ticks)

	o.Init(svc)
	o.Cycle(context.Background())
	assert.Equal(t, 1, ticks)
	o.Cycle(context.Background())
	assert.Equal(t, 2, ticks)

	// Membership is re-evaluated after the drain, so the op does not run
	// in the cycle the service goes down.
	o.Deinit(svc)
	o.Cycle(context.Background())
	assert.Equal(t, 2, ticks)
}

func TestObserversFireAfterCommit(t *testing.T) {
	o := New()
	var seen []services.ServiceState
	var svc graph.NodeID
	var err error
	svc, err = o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{
		Init: syncInit(true),
		OnUp: func(env services.Env) {
			seen = append(seen, env.CurrentState(svc))
		},
		OnDown: func(env services.Env, _ services.DownReason) {
			seen = append(seen, env.CurrentState(svc))
		},
	}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	o.Init(svc)
	o.Cycle(context.Background())
	o.Deinit(svc)
	o.Cycle(context.Background())

	assert.Equal(t, []services.ServiceState{services.StateUp, services.StateDown}, seen)
}

func TestStopDrivesEverythingDownInReverseOrder(t *testing.T) {
	o := New()
	hooks := services.Hooks{Init: syncInit(true)}
	a, err := o.RegisterService(Spec{Name: "a", Hooks: hooks, ActivateAtStartup: true})
	require.NoError(t, err)
	b, err := o.RegisterService(Spec{Name: "b", Dependencies: []graph.NodeID{a}, Hooks: hooks, ActivateAtStartup: true})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	o.Cycle(context.Background())

	_, ch := o.Subscribe(events.Filter{})
	o.Stop(context.Background())

	evs := drainEvents(ch)
	require.Len(t, evs, 2)
	assert.Equal(t, b, evs[0].Node)
	assert.Equal(t, a, evs[1].Node)
	for _, e := range evs {
		assert.Equal(t, events.CauseShutdown, e.Cause)
		assert.Equal(t, services.StateDown, e.New)
	}
}

func TestServicesSnapshot(t *testing.T) {
	o := New()
	a, err := o.RegisterService(Spec{Name: "a", Hooks: services.Hooks{Init: syncInit(true)}})
	require.NoError(t, err)
	_, err = o.RegisterService(Spec{Name: "b", Dependencies: []graph.NodeID{a}})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	o.Init(a)
	o.Cycle(context.Background())

	snap := o.Services()
	require.Len(t, snap, 2)
	assert.Equal(t, a, snap[0].ID)
	assert.Equal(t, services.StateUp, snap[0].State)
	assert.Equal(t, services.StateDown, snap[1].State)
	assert.Equal(t, []graph.NodeID{a}, snap[1].Dependencies)
}
