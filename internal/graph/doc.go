// Package graph provides the directed acyclic graph (DAG) that backs all of
// roster's dependency reasoning.
//
// Each node in the graph is identified by a NodeID, which pairs a kind
// (service, resource, asset) with an opaque key. Services are the
// lifecycle-managed vertices; resources and assets are leaf nodes owned by
// external subsystems and contribute only a ready/not-ready signal.
//
// # Dependency Rules
//
//  1. No circular dependencies: a registration that would close a cycle
//     fails with ErrCycleDetected and leaves the graph untouched.
//  2. Forward references are allowed during registration; Validate reports
//     any dependency that was never registered as ErrUnknownDependency.
//  3. The topological ordering is deterministic for a fixed registration
//     order: ties are broken by registration sequence so output stays
//     stable and debuggable across runs.
//
// # Operations
//
// AddNode registers a service node with its direct dependencies, running an
// iterative depth-first search to reject cycles. AddLeaf registers a
// resource or asset with its readiness probe. Dependents answers the
// reverse-edge query used for cascading teardown, returning dependents in
// topological order so cascades proceed one layer at a time.
//
// TopologicalOrder is computed once per mutation and cached; it fixes both
// startup initialization order and the execution order of scoped operation
// sets.
package graph
