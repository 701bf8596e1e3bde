// Package tasks tracks asynchronous lifecycle hooks across update cycles.
//
// A hook that cannot complete within one cycle returns a Task instead of a
// result. The task body runs on its own goroutine and deposits exactly one
// Result into the task's slot; the orchestrator polls every pending task
// once per cycle, after the command pipeline has drained, and converts a
// resolved result into the matching state transition.
//
// Tasks are a state machine of their own: pending, resolved, cancelled.
// Cancellation is advisory only. The execution substrate does not support
// preemption, so Cancel flags the task and cancels the context handed to
// the body; the body runs to completion and its late result is discarded
// without producing a state transition or an event.
//
// There is no timeout mechanism: a hook body that never returns leaves its
// service parked in initializing or deinitializing indefinitely. That is a
// deliberate policy choice, observable through the query surface.
package tasks
