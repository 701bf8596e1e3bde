package scope

import (
	"roster/internal/graph"
	"roster/internal/services"
)

// Predicate is an extra per-cycle gate on a scoped operation.
type Predicate func() bool

// ServiceUp gates on the service being up. Redundant with set membership
// for the owning service, but useful for ops watching another service.
func ServiceUp(env services.Env, id graph.NodeID) Predicate {
	return func() bool { return env.CurrentState(id) == services.StateUp }
}

// ServiceDown gates on the service being down.
func ServiceDown(env services.Env, id graph.NodeID) Predicate {
	return func() bool { return env.CurrentState(id) == services.StateDown }
}

// ServiceInitializing gates on an init hook being in flight. If the service
// initializes synchronously this never fires.
func ServiceInitializing(env services.Env, id graph.NodeID) Predicate {
	return func() bool { return env.CurrentState(id) == services.StateInitializing }
}

// ServiceDeinitializing gates on a deinit hook being in flight.
func ServiceDeinitializing(env services.Env, id graph.NodeID) Predicate {
	return func() bool { return env.CurrentState(id) == services.StateDeinitializing }
}

// ServiceFailed gates on the service being down due to a failure, its own
// or a dependency's.
func ServiceFailed(env services.Env, id graph.NodeID) Predicate {
	return func() bool {
		if env.CurrentState(id) != services.StateDown {
			return false
		}
		cause := env.Reason(id).Cause
		return cause == services.CauseFailed || cause == services.CauseDependency
	}
}

// All combines predicates conjunctively.
func All(preds ...Predicate) Predicate {
	return func() bool {
		for _, p := range preds {
			if !p() {
				return false
			}
		}
		return true
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func() bool { return !p() }
}
