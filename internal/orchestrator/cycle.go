package orchestrator

import (
	"context"
	"fmt"

	"roster/internal/events"
	"roster/internal/graph"
	"roster/internal/pipeline"
	"roster/internal/services"
	"roster/pkg/logging"
)

// Cycle runs one update cycle: drain the command pipeline, poll pending
// tasks, re-evaluate scoped-set membership, then run the active sets.
// The host calls this once per update, on a single goroutine.
func (o *Orchestrator) Cycle(ctx context.Context) {
	o.queue.Drain(o.handleCommand)
	o.pollTasks()

	order := make([]graph.NodeID, 0)
	for _, id := range o.graph.TopologicalOrder() {
		if id.Kind == graph.KindService {
			order = append(order, id)
		}
	}
	o.scheduler.Refresh(order, func(id graph.NodeID) bool {
		return o.CurrentState(id) == services.StateUp
	})
	o.scheduler.Run(ctx)
}

// handleCommand processes one drained command. Follow-ups it enqueues land
// in the next cycle's queue.
func (o *Orchestrator) handleCommand(cmd pipeline.Command) {
	node, ok := o.registry.Get(cmd.Target)
	if !ok {
		logging.Warn("Pipeline", "Dropping %s: unknown service", cmd)
		return
	}

	switch cmd.Kind {
	case pipeline.KindInit:
		o.handleInit(node, cmd)
	case pipeline.KindDeinit:
		o.handleDeinit(node, cmd)
	case pipeline.KindForceDown:
		o.handleForceDown(node, cmd)
	case pipeline.KindDataUpdate:
		o.handleDataUpdate(node, cmd)
	}
}

func (o *Orchestrator) handleInit(node *services.ServiceNode, cmd pipeline.Command) {
	switch node.State() {
	case services.StateUp, services.StateInitializing:
		// Already up or on its way; a repeat request is a no-op.
		logging.Debug("Pipeline", "Ignoring %s: service is %s", cmd, node.State())
		return
	case services.StateDeinitializing:
		// Teardown in flight. Defer so a restart sequence completes once
		// the deinit settles.
		o.queue.Requeue(cmd)
		return
	}

	if unmet, ok := o.unmetDependency(node); ok {
		// Guard unmet: defer, keeping the sequence number. A dependency
		// that never becomes ready leaves the service parked down, which
		// is observable and not an error.
		logging.Debug("Pipeline", "Deferring %s: dependency %s not ready", cmd, unmet)
		o.queue.Requeue(cmd)
		return
	}

	node.UpdateState(services.StateInitializing, node.Reason())

	hook := node.Hooks().Init
	if hook == nil {
		hook = func(services.Env) services.Completion { return services.Done(true) }
	}
	completion := invokeCompletionHook(node.ID(), services.HookInit, func() services.Completion {
		return hook(o)
	})

	if task := completion.Task(); task != nil {
		node.SetPending(task, services.HookInit)
		return
	}
	activate, err := completion.Resolve()
	o.settleInit(node, events.CauseInit, activate, err)
}

// settleInit commits the outcome of an init hook. The cause distinguishes
// synchronous completion from a task resolution.
func (o *Orchestrator) settleInit(node *services.ServiceNode, cause events.Cause, activate bool, err error) {
	switch {
	case err != nil:
		logging.Error("Orchestrator", err, "Init hook of %s failed", node.ID())
		o.commitDown(node, services.Failed(err), cause)
	case !activate:
		// The hook declined activation: parked down without error.
		o.commitDown(node, services.Stopped(), cause)
	default:
		o.commitUp(node, cause)
	}
}

func (o *Orchestrator) handleDeinit(node *services.ServiceNode, cmd pipeline.Command) {
	reason := services.Stopped()
	cause := events.CauseDeinit
	if cmd.Cascaded {
		reason = services.DependencyDown(cmd.Source)
		cause = events.CauseCascade
	}

	switch node.State() {
	case services.StateDown, services.StateDeinitializing:
		// Idempotent no-op: no state change, no event.
		return
	case services.StateInitializing:
		// The init never completed; cancel its task and park down
		// without running the deinit hook.
		node.CancelPending()
		o.commitDown(node, reason, cause)
		return
	}

	node.UpdateState(services.StateDeinitializing, reason)
	o.cascadeTeardown(node.ID())

	hook := node.Hooks().Deinit
	if hook == nil {
		hook = func(services.Env) services.Completion { return services.Done(false) }
	}
	completion := invokeCompletionHook(node.ID(), services.HookDeinit, func() services.Completion {
		return hook(o)
	})

	if task := completion.Task(); task != nil {
		node.SetPending(task, services.HookDeinit)
		return
	}
	if _, err := completion.Resolve(); err != nil {
		// Deinit completes regardless of hook failure; the failure is
		// recorded in the reason.
		logging.Error("Orchestrator", err, "Deinit hook of %s failed", node.ID())
		reason = services.Failed(err)
	}
	o.commitDown(node, reason, cause)
}

func (o *Orchestrator) handleForceDown(node *services.ServiceNode, cmd pipeline.Command) {
	if node.State() == services.StateDown {
		return
	}

	// Bypass any running task: cancel, never await.
	node.CancelPending()

	reason := services.Stopped()
	if cmd.Reason != nil {
		reason = services.Failed(cmd.Reason)
	}
	o.commitDown(node, reason, events.CauseForceDown)
}

func (o *Orchestrator) handleDataUpdate(node *services.ServiceNode, cmd pipeline.Command) {
	payload := cmd.Payload
	if hook := node.Hooks().DataUpdate; hook != nil {
		transformed, err := hook(o, payload)
		if err != nil {
			logging.Error("Orchestrator", err, "Data update hook of %s rejected payload", node.ID())
			if node.State() == services.StateUp || node.State() == services.StateInitializing {
				node.CancelPending()
				o.commitDown(node, services.Failed(err), events.CauseDataUpdate)
			}
			return
		}
		payload = transformed
	}
	node.SetData(payload)

	// The data-updated notification is an up-state event; a service that
	// is down or mid-transition keeps the payload silently.
	if node.State() != services.StateUp {
		return
	}
	o.bus.Publish(events.Event{
		Node:     node.ID(),
		Previous: services.StateUp,
		New:      services.StateUp,
		Cause:    events.CauseDataUpdate,
	})
}

// pollTasks is the cycle's second phase: every pending task is polled
// once, and a resolution is converted into the matching transition as if
// the command had just completed. Cascades it produces land next cycle.
func (o *Orchestrator) pollTasks() {
	for _, id := range o.graph.TopologicalOrder() {
		if id.Kind != graph.KindService {
			continue
		}
		node, ok := o.registry.Get(id)
		if !ok {
			continue
		}
		task, kind := node.Pending()
		if task == nil {
			continue
		}
		res, resolved := task.Poll()
		if !resolved {
			continue
		}
		node.ClearPending()

		switch kind {
		case services.HookInit:
			o.settleInit(node, events.CauseTaskResolved, res.Activate, res.Err)
		case services.HookDeinit:
			reason := node.Reason()
			if res.Err != nil {
				logging.Error("Orchestrator", res.Err, "Deinit task of %s failed", node.ID())
				reason = services.Failed(res.Err)
			}
			o.commitDown(node, reason, events.CauseTaskResolved)
		}
	}
}

// commitUp commits the transition to up, emits its event strictly after
// the state field updates, and runs the OnUp observer.
func (o *Orchestrator) commitUp(node *services.ServiceNode, cause events.Cause) {
	previous := node.State()
	node.UpdateState(services.StateUp, services.DownReason{})
	o.bus.Publish(events.Event{
		Node:     node.ID(),
		Previous: previous,
		New:      services.StateUp,
		Cause:    cause,
	})
	logging.Info("Orchestrator", "Service %s is up", node.ID())

	if hook := node.Hooks().OnUp; hook != nil {
		invokeObserver(node.ID(), services.HookOnUp, func() { hook(o) })
	}
}

// commitDown commits the transition to down, emits its event, walks the
// dependents for cascading teardown, and runs the failure and down
// observers.
func (o *Orchestrator) commitDown(node *services.ServiceNode, reason services.DownReason, cause events.Cause) {
	previous := node.State()
	wasActive := previous == services.StateUp || previous == services.StateInitializing
	node.UpdateState(services.StateDown, reason)
	o.bus.Publish(events.Event{
		Node:     node.ID(),
		Previous: previous,
		New:      services.StateDown,
		Cause:    cause,
		Reason:   reason,
	})
	logging.Info("Orchestrator", "Service %s is down (%s)", node.ID(), reason)

	if wasActive {
		// Entering down without passing through a handled deinit means
		// the dependents were not yet cascaded.
		o.cascadeTeardown(node.ID())
	}

	failed := reason.Cause == services.CauseFailed || reason.Cause == services.CauseDependency
	if failed {
		if hook := node.Hooks().OnFailure; hook != nil {
			invokeObserver(node.ID(), services.HookOnFailure, func() { hook(o, reason) })
		}
	}
	if hook := node.Hooks().OnDown; hook != nil {
		invokeObserver(node.ID(), services.HookOnDown, func() { hook(o, reason) })
	}
}

// cascadeTeardown synthesizes a Deinit for every dependent currently up or
// initializing. The commands land in the next cycle's queue, so a cascade
// proceeds one graph layer per cycle, transitively.
func (o *Orchestrator) cascadeTeardown(source graph.NodeID) {
	for _, dep := range o.graph.Dependents(source) {
		if dep.Kind != graph.KindService {
			continue
		}
		node, ok := o.registry.Get(dep)
		if !ok {
			continue
		}
		state := node.State()
		if state != services.StateUp && state != services.StateInitializing {
			continue
		}
		logging.Debug("Orchestrator", "Cascading teardown %s -> %s", source, dep)
		o.queue.Enqueue(pipeline.Command{
			Target:   dep,
			Kind:     pipeline.KindDeinit,
			Cascaded: true,
			Source:   source,
		})
	}
}

// unmetDependency evaluates the init guard: every declared dependency must
// be ready (up for services, loaded for leaves) at the moment of
// evaluation.
func (o *Orchestrator) unmetDependency(node *services.ServiceNode) (graph.NodeID, bool) {
	for _, dep := range node.Dependencies() {
		if !o.IsReady(dep) {
			return dep, true
		}
	}
	return graph.NodeID{}, false
}

// invokeCompletionHook shields the pipeline from panicking hook bodies: a
// panic is folded into a failure completion, never propagated.
func invokeCompletionHook(id graph.NodeID, kind services.HookKind, run func() services.Completion) (completion services.Completion) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Orchestrator", nil, "%s hook of %s panicked: %v", kind, id, r)
			completion = services.Fail(fmt.Errorf("%s hook panicked: %v", kind, r))
		}
	}()
	return run()
}

// invokeObserver shields the pipeline from panicking observer hooks.
func invokeObserver(id graph.NodeID, kind services.HookKind, run func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Orchestrator", nil, "%s hook of %s panicked: %v", kind, id, r)
		}
	}()
	run()
}
