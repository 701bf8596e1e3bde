package services

import (
	"sync"

	"roster/internal/graph"
	"roster/internal/tasks"
)

// StateChangeCallback is called after a service's state field has been
// updated. The previous and new states are passed along with the reason, so
// observers always see a state consistent with what they are told changed.
type StateChangeCallback func(id graph.NodeID, previous, next ServiceState, reason DownReason)

// ServiceNode associates a service identity with its lifecycle state, its
// declared dependencies, its data payload, its hook registrations and any
// in-flight task. The registry owns all nodes; hooks and observers reach
// them only through the command and event contract.
type ServiceNode struct {
	mu sync.RWMutex

	id                graph.NodeID
	state             ServiceState
	reason            DownReason
	deps              []graph.NodeID
	data              any
	hooks             Hooks
	activateAtStartup bool

	pending     *tasks.Task
	pendingKind HookKind

	stateChangeCb StateChangeCallback
}

// NewServiceNode creates a node in the initial Down(never started) state.
func NewServiceNode(id graph.NodeID, deps []graph.NodeID, data any, hooks Hooks, activateAtStartup bool) *ServiceNode {
	depsCopy := make([]graph.NodeID, len(deps))
	copy(depsCopy, deps)
	return &ServiceNode{
		id:                id,
		state:             StateDown,
		reason:            DownReason{Cause: CauseNeverStarted},
		deps:              depsCopy,
		data:              data,
		hooks:             hooks,
		activateAtStartup: activateAtStartup,
	}
}

// ID returns the service's node identity.
func (n *ServiceNode) ID() graph.NodeID { return n.id }

// Dependencies returns the declared dependency list, in declaration order.
func (n *ServiceNode) Dependencies() []graph.NodeID {
	deps := make([]graph.NodeID, len(n.deps))
	copy(deps, n.deps)
	return deps
}

// ActivateAtStartup reports whether the service starts at boot.
func (n *ServiceNode) ActivateAtStartup() bool { return n.activateAtStartup }

// Hooks returns the service's hook bindings.
func (n *ServiceNode) Hooks() Hooks { return n.hooks }

// State returns the current lifecycle state.
func (n *ServiceNode) State() ServiceState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Reason returns the reason recorded with the current down or
// deinitializing state. Meaningless while the service is up.
func (n *ServiceNode) Reason() DownReason {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.reason
}

// Data returns the service's data payload.
func (n *ServiceNode) Data() any {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.data
}

// SetData replaces the data payload.
func (n *ServiceNode) SetData(data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data = data
}

// SetStateChangeCallback sets the callback fired on each committed
// transition.
func (n *ServiceNode) SetStateChangeCallback(cb StateChangeCallback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stateChangeCb = cb
}

// UpdateState commits a transition and notifies the callback. The state
// field is updated strictly before the callback runs, and the callback runs
// outside the lock to avoid deadlocks.
func (n *ServiceNode) UpdateState(next ServiceState, reason DownReason) {
	n.mu.Lock()
	previous := n.state
	n.state = next
	n.reason = reason
	callback := n.stateChangeCb
	n.mu.Unlock()

	if callback != nil && previous != next {
		callback(n.id, previous, next, reason)
	}
}

// SetPending records an in-flight task for the given hook kind. At most one
// task may be pending per service at a time; the command pipeline's
// deduplication upholds that.
func (n *ServiceNode) SetPending(t *tasks.Task, kind HookKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = t
	n.pendingKind = kind
}

// Pending returns the in-flight task and its hook kind, or nil if none.
func (n *ServiceNode) Pending() (*tasks.Task, HookKind) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pending, n.pendingKind
}

// ClearPending drops the in-flight task handle.
func (n *ServiceNode) ClearPending() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = nil
}

// CancelPending flags any in-flight task so its eventual result is
// discarded, and drops the handle. The task body is not interrupted.
func (n *ServiceNode) CancelPending() {
	n.mu.Lock()
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	if pending != nil {
		pending.Cancel()
	}
}
