// Package scope gates ordinary scheduled work on service lifecycle state.
//
// Every service owns a set of operations that are members of the host
// schedule only while the service is up. Membership is re-evaluated once
// per cycle, after the command pipeline has drained, so an operation never
// runs against a service that is mid-transition. Across services, sets
// execute in the dependency graph's topological order: a dependency's
// operations run before its dependents'.
//
// Individual operations may carry an additional Predicate gate; the
// conditions file provides the common ones (ServiceUp, ServiceDown,
// ServiceFailed, and combinators).
package scope
