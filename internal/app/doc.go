// Package app bootstraps and runs roster. Bootstrap loads the
// configuration directory, initializes logging and registers every
// configured service with a fresh orchestrator. Run owns the update loop:
// a single goroutine ticks the orchestrator at the configured cycle
// interval while companion goroutines mirror lifecycle events into the
// log and, when enabled, watch the configuration directory for service
// definition edits.
//
// Embedding hosts that need real lifecycle hooks bind them by service
// name through Config.Hooks and Config.Ops before calling NewApplication.
package app
