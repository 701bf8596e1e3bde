// Package events carries committed lifecycle transitions to observers.
//
// The command pipeline appends one immutable Event per committed
// transition. Events are emitted strictly after the service node's state
// field has been updated, so a subscriber that reads an event and then
// queries the registry never observes the pre-transition state.
//
// No events are emitted for deferred commands, deduplicated commands,
// idempotent no-ops, or the resolutions of cancelled tasks.
//
// Subscribers register a Filter (by service identity, target state, or
// transition cause) and receive matching events over a buffered channel.
// Delivery is best-effort: publishing never blocks the pipeline, and a
// subscriber that cannot keep up has events dropped.
package events
