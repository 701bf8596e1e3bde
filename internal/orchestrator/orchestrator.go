package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"roster/internal/events"
	"roster/internal/graph"
	"roster/internal/pipeline"
	"roster/internal/scope"
	"roster/internal/services"
	"roster/pkg/logging"
)

// Spec enumerates everything a service registration declares: identity,
// dependencies, initial data payload, startup behavior, hook bindings and
// the scoped operation set.
type Spec struct {
	// Name is the service's unique identity.
	Name string

	// Dependencies lists the nodes this service requires. Services must
	// be Up and leaves ready before the init guard passes.
	Dependencies []graph.NodeID

	// Data is the initial service-defined payload. May be nil.
	Data any

	// ActivateAtStartup enqueues an Init for this service when the
	// orchestrator starts.
	ActivateAtStartup bool

	// Hooks binds the lifecycle callbacks. Any may be nil.
	Hooks services.Hooks

	// Ops is the scoped operation set, scheduled only while the service
	// is up.
	Ops []scope.Op
}

// ServiceStatus is the query-surface snapshot of one service.
type ServiceStatus struct {
	ID           graph.NodeID
	State        services.ServiceState
	Reason       services.DownReason
	AutoStart    bool
	Dependencies []graph.NodeID
}

// Orchestrator owns the dependency graph, the service registry, the
// command pipeline, the event bus and the scoped-operation scheduler. It
// is the single writer: all lifecycle mutation flows through its command
// pipeline, drained once per update cycle on the caller's goroutine.
type Orchestrator struct {
	graph     *graph.Graph
	registry  *services.Registry
	queue     *pipeline.Queue
	bus       *events.Bus
	scheduler *scope.Scheduler

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates an orchestrator with an empty graph and registry.
func New() *Orchestrator {
	return &Orchestrator{
		graph:     graph.New(),
		registry:  services.NewRegistry(),
		queue:     pipeline.NewQueue(),
		bus:       events.NewBus(),
		scheduler: scope.NewScheduler(),
	}
}

// RegisterService registers a service from its spec. Graph errors (cycles)
// are fatal at registration time and surface synchronously; nothing is
// registered on failure.
func (o *Orchestrator) RegisterService(spec Spec) (graph.NodeID, error) {
	if spec.Name == "" {
		return graph.NodeID{}, fmt.Errorf("service name is required")
	}
	id := graph.ServiceID(spec.Name)

	if err := o.graph.AddNode(id, spec.Dependencies); err != nil {
		return graph.NodeID{}, fmt.Errorf("registering %s: %w", id, err)
	}

	node := services.NewServiceNode(id, spec.Dependencies, spec.Data, spec.Hooks, spec.ActivateAtStartup)
	if err := o.registry.Register(node); err != nil {
		// Unreachable in practice: graph registration already rejects
		// duplicate ids.
		return graph.NodeID{}, err
	}

	if len(spec.Ops) > 0 {
		o.scheduler.Add(id, spec.Ops...)
	}

	logging.Debug("Orchestrator", "Registered service %s (deps: %d, autostart: %v)",
		id, len(spec.Dependencies), spec.ActivateAtStartup)
	return id, nil
}

// RegisterResource registers an externally-managed resource leaf with its
// readiness probe.
func (o *Orchestrator) RegisterResource(key string, ready func() bool) (graph.NodeID, error) {
	id := graph.ResourceID(key)
	if err := o.graph.AddLeaf(id, ready); err != nil {
		return graph.NodeID{}, err
	}
	return id, nil
}

// RegisterAsset registers an externally-loaded asset leaf with its
// readiness probe.
func (o *Orchestrator) RegisterAsset(path string, ready func() bool) (graph.NodeID, error) {
	id := graph.AssetID(path)
	if err := o.graph.AddLeaf(id, ready); err != nil {
		return graph.NodeID{}, err
	}
	return id, nil
}

// Start validates the graph and enqueues Init commands for every
// activate-at-startup service, in topological order. Graph validation
// failures are fatal.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return fmt.Errorf("orchestrator already started")
	}

	if err := o.graph.Validate(); err != nil {
		return fmt.Errorf("dependency graph invalid: %w", err)
	}
	o.started = true

	autostart := 0
	for _, id := range o.graph.TopologicalOrder() {
		if id.Kind != graph.KindService {
			continue
		}
		node, ok := o.registry.Get(id)
		if !ok || !node.ActivateAtStartup() {
			continue
		}
		o.queue.Enqueue(pipeline.Command{Target: id, Kind: pipeline.KindInit})
		autostart++
	}

	logging.Info("Orchestrator", "Started with %d services (%d activate at startup)",
		o.registry.Len(), autostart)
	return nil
}

// Stop tears the system down: every non-down service is driven down in
// reverse topological order with one shutdown event each, pending tasks
// are cancelled, and the registry and bus are dropped.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()

	order := o.graph.TopologicalOrder()
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if id.Kind != graph.KindService {
			continue
		}
		node, ok := o.registry.Get(id)
		if !ok || node.State() == services.StateDown {
			continue
		}
		node.CancelPending()
		o.commitDown(node, services.Stopped(), events.CauseShutdown)
	}

	o.registry.Teardown()
	o.bus.Close()
	logging.Info("Orchestrator", "Stopped")
}

// Init requests the service be brought up. Fire-and-forget: the effect is
// observed through events.
func (o *Orchestrator) Init(id graph.NodeID) {
	o.queue.Enqueue(pipeline.Command{Target: id, Kind: pipeline.KindInit})
}

// Deinit requests the service be spun down.
func (o *Orchestrator) Deinit(id graph.NodeID) {
	o.queue.Enqueue(pipeline.Command{Target: id, Kind: pipeline.KindDeinit})
}

// ForceDown drives the service down immediately, cancelling any in-flight
// task rather than awaiting it.
func (o *Orchestrator) ForceDown(id graph.NodeID, reason error) {
	o.queue.Enqueue(pipeline.Command{Target: id, Kind: pipeline.KindForceDown, Reason: reason})
}

// UpdateData requests the service's data payload be replaced.
func (o *Orchestrator) UpdateData(id graph.NodeID, payload any) {
	o.queue.Enqueue(pipeline.Command{Target: id, Kind: pipeline.KindDataUpdate, Payload: payload})
}

// Restart spins the service down and back up. The deinit leg executes
// first by priority; the init leg's guard defers until teardown completes.
func (o *Orchestrator) Restart(id graph.NodeID) {
	o.queue.Enqueue(pipeline.Command{Target: id, Kind: pipeline.KindDeinit})
	o.queue.Enqueue(pipeline.Command{Target: id, Kind: pipeline.KindInit})
}

// CurrentState returns a service's lifecycle state. Leaf nodes report up
// when ready. Unknown nodes report down.
func (o *Orchestrator) CurrentState(id graph.NodeID) services.ServiceState {
	if id.IsLeaf() {
		if o.graph.LeafReady(id) {
			return services.StateUp
		}
		return services.StateDown
	}
	node, ok := o.registry.Get(id)
	if !ok {
		return services.StateDown
	}
	return node.State()
}

// IsReady reports readiness: Up for services, externally-defined loaded
// for resources and assets.
func (o *Orchestrator) IsReady(id graph.NodeID) bool {
	if id.IsLeaf() {
		return o.graph.LeafReady(id)
	}
	node, ok := o.registry.Get(id)
	return ok && node.State() == services.StateUp
}

// Reason returns the down reason recorded for a service.
func (o *Orchestrator) Reason(id graph.NodeID) services.DownReason {
	node, ok := o.registry.Get(id)
	if !ok {
		return services.DownReason{Cause: services.CauseNeverStarted}
	}
	return node.Reason()
}

// Data returns a service's current data payload.
func (o *Orchestrator) Data(id graph.NodeID) any {
	node, ok := o.registry.Get(id)
	if !ok {
		return nil
	}
	return node.Data()
}

// Subscribe registers an event subscription.
func (o *Orchestrator) Subscribe(filter events.Filter) (string, <-chan events.Event) {
	return o.bus.Subscribe(filter)
}

// Unsubscribe removes an event subscription.
func (o *Orchestrator) Unsubscribe(id string) {
	o.bus.Unsubscribe(id)
}

// Services returns a status snapshot for every service, in topological
// order.
func (o *Orchestrator) Services() []ServiceStatus {
	var statuses []ServiceStatus
	for _, id := range o.graph.TopologicalOrder() {
		if id.Kind != graph.KindService {
			continue
		}
		node, ok := o.registry.Get(id)
		if !ok {
			continue
		}
		statuses = append(statuses, ServiceStatus{
			ID:           id,
			State:        node.State(),
			Reason:       node.Reason(),
			AutoStart:    node.ActivateAtStartup(),
			Dependencies: node.Dependencies(),
		})
	}
	return statuses
}

// TopologicalOrder exposes the graph's cached ordering, e.g. for the CLI's
// check command.
func (o *Orchestrator) TopologicalOrder() []graph.NodeID {
	return o.graph.TopologicalOrder()
}

// Validate runs graph validation without starting. Used by the CLI's check
// command.
func (o *Orchestrator) Validate() error {
	return o.graph.Validate()
}

// PendingCommands returns how many commands await the next cycle.
func (o *Orchestrator) PendingCommands() int {
	return o.queue.Len()
}

// Compile-time check: the orchestrator is the Env hooks receive.
var _ services.Env = (*Orchestrator)(nil)
