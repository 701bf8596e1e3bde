// Package pipeline implements the prioritized command queue through which
// every lifecycle transition request flows.
//
// A command names a target service and a requested transition: init,
// deinit, force-down, or data-update. Commands are drained fully once per
// update cycle in (priority, sequence) order. Priorities rank teardown
// above startup — force-down > deinit > init > data-update — so no effort
// is wasted starting something that is about to be torn down. The sequence
// number is monotonically increasing and gives stable ordering among equal
// priorities.
//
// Two commands with the same target and kind never coexist in a queue:
// the most recent wins and the stale duplicate is silently dropped.
//
// Commands enqueued while a drain is in progress — cascades, deferrals,
// task follow-ups — land in the next cycle's queue, never the draining one.
// Every drain therefore terminates within one cycle, and a cascade walks
// the dependent graph one layer per cycle.
package pipeline
