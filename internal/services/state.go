package services

import (
	"fmt"

	"roster/internal/graph"
)

// ServiceState represents the lifecycle state of a service. Exactly one
// state holds per service at any instant.
type ServiceState string

const (
	// StateDown means the service is not running. Down is re-enterable:
	// a service can go up, deinitialize, and initialize again later.
	StateDown ServiceState = "down"
	// StateInitializing means the init hook is running, possibly across
	// multiple update cycles.
	StateInitializing ServiceState = "initializing"
	// StateUp means the service is active and its scoped operations are
	// members of the schedule.
	StateUp ServiceState = "up"
	// StateDeinitializing means the deinit hook is running.
	StateDeinitializing ServiceState = "deinitializing"
)

// DownCause says why a service is (or is heading) down.
type DownCause int

const (
	// CauseNeverStarted is the initial condition: no Init was ever issued,
	// or its guard is still unmet.
	CauseNeverStarted DownCause = iota
	// CauseStopped means the service was deliberately spun down.
	CauseStopped
	// CauseFailed means the service's own hook failed.
	CauseFailed
	// CauseDependency means a dependency left the ready condition and the
	// teardown cascaded here.
	CauseDependency
)

// String makes DownCause satisfy the fmt.Stringer interface.
func (c DownCause) String() string {
	switch c {
	case CauseNeverStarted:
		return "never started"
	case CauseStopped:
		return "stopped"
	case CauseFailed:
		return "failed"
	case CauseDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// DownReason carries the cause of a down (or deinitializing) state.
// For CauseDependency the failing dependency is recorded; for CauseFailed
// the hook error is.
type DownReason struct {
	Cause      DownCause
	Dependency graph.NodeID
	Err        error
}

// Failed builds the reason for a service whose own hook failed.
func Failed(err error) DownReason {
	return DownReason{Cause: CauseFailed, Err: err}
}

// Stopped builds the reason for a deliberate spin-down.
func Stopped() DownReason {
	return DownReason{Cause: CauseStopped}
}

// DependencyDown builds the reason for a cascaded teardown.
func DependencyDown(dep graph.NodeID) DownReason {
	return DownReason{Cause: CauseDependency, Dependency: dep}
}

// String renders the reason for logs and events.
func (r DownReason) String() string {
	switch r.Cause {
	case CauseFailed:
		return fmt.Sprintf("failed: %v", r.Err)
	case CauseDependency:
		return fmt.Sprintf("dependency %s went down", r.Dependency)
	default:
		return r.Cause.String()
	}
}
