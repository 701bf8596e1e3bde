package scope

import (
	"context"
	"sync"

	"roster/internal/graph"
	"roster/pkg/logging"
)

// Op is one unit of host-scheduled work owned by a service. Its Fn runs
// once per update cycle while the owning service is up. An optional
// Condition gates it further.
type Op struct {
	Name      string
	Fn        func(ctx context.Context)
	Condition Predicate
}

// Scheduler owns every service's scoped operation set. Membership is
// re-evaluated once per cycle, after the command pipeline drains, so work
// never runs against a service mid-transition. Execution order across
// services follows the dependency graph's topological order.
type Scheduler struct {
	mu     sync.Mutex
	sets   map[graph.NodeID][]Op
	active []graph.NodeID
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{sets: make(map[graph.NodeID][]Op)}
}

// Add appends operations to a service's set. Operations keep their
// declaration order within the set.
func (s *Scheduler) Add(owner graph.NodeID, ops ...Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[owner] = append(s.sets[owner], ops...)
}

// Refresh re-evaluates membership for the next Run. order is the graph's
// topological ordering; isUp answers whether a service is currently up.
func (s *Scheduler) Refresh(order []graph.NodeID, isUp func(graph.NodeID) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = s.active[:0]
	for _, id := range order {
		if _, owns := s.sets[id]; !owns {
			continue
		}
		if isUp(id) {
			s.active = append(s.active, id)
		}
	}
}

// Run executes every active operation once, dependencies' sets before
// dependents'. A panicking operation is contained and logged; it never
// takes down the cycle.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	active := make([]graph.NodeID, len(s.active))
	copy(active, s.active)
	s.mu.Unlock()

	for _, id := range active {
		s.mu.Lock()
		ops := make([]Op, len(s.sets[id]))
		copy(ops, s.sets[id])
		s.mu.Unlock()

		for _, op := range ops {
			if op.Condition != nil && !op.Condition() {
				continue
			}
			runOp(ctx, id, op)
		}
	}
}

func runOp(ctx context.Context, owner graph.NodeID, op Op) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Scope", nil, "Operation %s of %s panicked: %v", op.Name, owner, r)
		}
	}()
	op.Fn(ctx)
}

// ActiveCount returns how many services' sets are members of the current
// schedule.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
