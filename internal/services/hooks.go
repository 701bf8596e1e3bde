package services

import (
	"roster/internal/graph"
	"roster/internal/tasks"
)

// HookKind identifies one of the closed set of lifecycle hook kinds. Each
// kind has a fixed functional contract, resolved at registration time.
type HookKind int

const (
	HookInit HookKind = iota
	HookDeinit
	HookOnUp
	HookOnDown
	HookOnFailure
	HookDataUpdate
)

// String makes HookKind satisfy the fmt.Stringer interface.
func (k HookKind) String() string {
	switch k {
	case HookInit:
		return "init"
	case HookDeinit:
		return "deinit"
	case HookOnUp:
		return "on-up"
	case HookOnDown:
		return "on-down"
	case HookOnFailure:
		return "on-failure"
	case HookDataUpdate:
		return "data-update"
	default:
		return "unknown"
	}
}

// Env is the read access a hook receives to the hosting environment.
// Hooks must not mutate the registry directly; all mutation goes through
// the command pipeline.
type Env interface {
	// CurrentState returns a service's lifecycle state.
	CurrentState(id graph.NodeID) ServiceState
	// IsReady reports readiness: Up for services, loaded for leaves.
	IsReady(id graph.NodeID) bool
	// Reason returns the down reason recorded for a service.
	Reason(id graph.NodeID) DownReason
	// Data returns a service's current data payload.
	Data(id graph.NodeID) any
}

// Completion is the outcome of an init or deinit hook: either an immediate
// result, or a suspended unit of work tracked as a task and polled once per
// cycle until it resolves.
type Completion struct {
	task     *tasks.Task
	activate bool
	err      error
}

// Done completes the hook synchronously. For init hooks, activate=false
// parks the service down without error instead of bringing it up.
func Done(activate bool) Completion {
	return Completion{activate: activate}
}

// Fail completes the hook synchronously with a failure.
func Fail(err error) Completion {
	return Completion{err: err}
}

// Async suspends the hook into a tracked task.
func Async(t *tasks.Task) Completion {
	return Completion{task: t}
}

// Task returns the suspended task, or nil for a synchronous completion.
func (c Completion) Task() *tasks.Task { return c.task }

// Resolve returns the immediate outcome of a synchronous completion.
func (c Completion) Resolve() (activate bool, err error) { return c.activate, c.err }

// InitHook runs while the service initializes. Returning Done(true) drives
// the service up, Done(false) parks it down, Fail records a failure, and
// Async defers the decision to a polled task.
type InitHook func(env Env) Completion

// DeinitHook runs while the service deinitializes. The activate value of
// its completion is ignored; the service always ends down.
type DeinitHook func(env Env) Completion

// UpHook is a pure side-effect observer invoked after the service commits
// to up. It cannot veto the transition.
type UpHook func(env Env)

// DownHook is a pure side-effect observer invoked after the service commits
// to down, with the reason it went down.
type DownHook func(env Env, reason DownReason)

// FailureHook is invoked when a service transitions to down with a failure.
// It observes only; errors inside it are logged and never propagated.
type FailureHook func(env Env, reason DownReason)

// DataHook runs when a data update is applied. It receives the incoming
// payload and may transform it before storage; returning an error rejects
// the update and fails the service.
type DataHook func(env Env, incoming any) (any, error)

// Hooks is the full hook binding set for one service. Any field may be nil,
// in which case the default applies: init and deinit succeed immediately
// (init activating), observers do nothing, data updates store the payload
// unchanged.
type Hooks struct {
	Init       InitHook
	Deinit     DeinitHook
	OnUp       UpHook
	OnDown     DownHook
	OnFailure  FailureHook
	DataUpdate DataHook
}
