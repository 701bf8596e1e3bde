// Package services defines the per-service lifecycle state machine: the
// states a service moves through, the reasons it can be down, the closed
// set of hook kinds bound at registration, and the registry that owns every
// service node.
//
// # States
//
// A service is in exactly one of four states:
//
//	down           -> not running; carries a DownReason (never started,
//	                  stopped, failed, or dependency). Re-enterable.
//	initializing   -> the init hook is running, possibly across cycles.
//	up             -> active; scoped operations are scheduled.
//	deinitializing -> the deinit hook is running.
//
// Transitions are driven exclusively by the command pipeline and by task
// resolutions; nothing in this package initiates a transition on its own.
// UpdateState commits the new state strictly before notifying the state
// change callback, so observers never see an event ahead of the state it
// describes.
//
// # Hooks
//
// Hooks are a closed set of kinds, each with one fixed-shape contract:
// Init and Deinit return a Completion (immediate or task-backed), OnUp and
// OnDown are pure side-effect observers, OnFailure observes failures, and
// DataUpdate may transform an incoming payload before it is stored. Hook
// bindings are resolved at registration, not at call time.
//
// Hooks receive an Env granting read access to the hosting environment.
// They must not mutate the registry directly; all mutation flows through
// the command pipeline, which gives the system a single writer per cycle.
package services
