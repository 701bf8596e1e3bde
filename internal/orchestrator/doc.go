// Package orchestrator ties the lifecycle kernel together. It owns the
// dependency graph, the service registry, the command pipeline, the event
// bus and the scoped-operation scheduler, and drives them from a single
// Cycle method the host calls once per update.
//
// A cycle has four phases, always in this order:
//
//  1. Drain: the pipeline's current queue is sorted by command priority
//     (force-down, deinit, init, data update) and each command is handled.
//     Follow-up commands a handler enqueues land in the next cycle.
//  2. Poll: every pending asynchronous hook task is polled exactly once.
//     A resolution is committed as the matching transition. A task whose
//     cancellation was requested never yields a result.
//  3. Refresh: the scoped-operation sets are re-evaluated against the
//     post-drain service states.
//  4. Run: active scoped operations execute in topological order.
//
// Transitions commit before their event is published, so a subscriber
// that queries the orchestrator on receipt always observes a state at
// least as new as the event describes. Only settled transitions emit
// events: entering up or entering down. Entering initializing or
// deinitializing does not.
//
// Teardown cascades one graph layer per cycle. When a service leaves the
// up or initializing states, a deinit command is synthesized for every
// dependent that is still up or initializing, tagged with the source of
// the cascade. Those commands drain next cycle and cascade further in
// turn.
//
// Init commands are guarded. A service starts only when every declared
// dependency is ready, meaning up for services and loaded for resource
// and asset leaves. A command whose guard fails is parked and retried
// every cycle, keeping its original sequence number, until the guard
// passes or the service is torn down.
package orchestrator
