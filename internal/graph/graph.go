package graph

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors returned during graph construction. Both are fatal at
// registration time and never surface as runtime conditions.
var (
	// ErrCycleDetected is returned when adding a node would create a
	// dependency cycle.
	ErrCycleDetected = errors.New("dependency cycle detected")
	// ErrUnknownDependency is returned by Validate when a declared
	// dependency was never registered.
	ErrUnknownDependency = errors.New("unknown dependency")
)

// NodeKind categorises nodes. Services are lifecycle-managed; resources and
// assets are leaf nodes that only answer a ready/not-ready query.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindService
	KindResource
	KindAsset
)

// String makes NodeKind satisfy the fmt.Stringer interface.
func (k NodeKind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindResource:
		return "resource"
	case KindAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// NodeID is the unique identifier for a node inside the dependency graph.
// Two NodeIDs are equal iff they have the same kind and the same key, so the
// same key may identify both a service and a resource without colliding.
// NodeID is comparable and usable as a map key.
type NodeID struct {
	Kind NodeKind
	Key  string
}

// ServiceID returns the NodeID for a service with the given name.
func ServiceID(name string) NodeID { return NodeID{Kind: KindService, Key: name} }

// ResourceID returns the NodeID for an externally-managed resource.
func ResourceID(key string) NodeID { return NodeID{Kind: KindResource, Key: key} }

// AssetID returns the NodeID for an externally-loaded asset path.
func AssetID(path string) NodeID { return NodeID{Kind: KindAsset, Key: path} }

// String renders the id as "kind:key", e.g. "service:postgres".
func (id NodeID) String() string {
	return fmt.Sprintf("%s:%s", id.Kind, id.Key)
}

// IsLeaf reports whether the node is a resource or asset. Leaf nodes expose
// only a readiness signal and are never targets of lifecycle commands.
func (id NodeID) IsLeaf() bool {
	return id.Kind == KindResource || id.Kind == KindAsset
}

// node is the internal adjacency record for a registered node.
type node struct {
	id NodeID
	// deps holds outgoing edges in declaration order.
	deps []NodeID
	// seq is the registration sequence, used as the deterministic
	// tie-breaker for topological ordering.
	seq int
	// ready answers the readiness query for leaf nodes; nil for services.
	ready func() bool
}

// Graph is a directed acyclic graph of service, resource and asset nodes.
// It answers dependency and dependent queries and maintains a cached
// topological ordering. It is not safe for concurrent mutation; the
// orchestrator owns it exclusively.
type Graph struct {
	nodes   map[NodeID]*node
	nextSeq int

	// topsort is the cached topological ordering, invalidated on mutation.
	topsort []NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*node)}
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Contains reports whether the node has been registered.
func (g *Graph) Contains(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddNode registers a node together with its direct dependencies.
// Dependencies form a set: repeated declarations of the same dependency
// collapse into one edge, keeping first-declaration order. They may
// reference nodes that are not registered yet; such forward references are
// resolved by Validate. Adding edges that would close a cycle fails with
// ErrCycleDetected and leaves the graph unchanged.
func (g *Graph) AddNode(id NodeID, deps []NodeID) error {
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("node %s already registered", id)
	}
	for _, dep := range deps {
		if dep == id {
			return fmt.Errorf("%w: %s depends on itself", ErrCycleDetected, id)
		}
	}
	if cycle := g.findCycle(id, deps); cycle != nil {
		return fmt.Errorf("%w: %s", ErrCycleDetected, formatCycle(cycle))
	}

	depsCopy := make([]NodeID, 0, len(deps))
	seen := make(map[NodeID]bool, len(deps))
	for _, dep := range deps {
		if seen[dep] {
			continue
		}
		seen[dep] = true
		depsCopy = append(depsCopy, dep)
	}
	g.nodes[id] = &node{id: id, deps: depsCopy, seq: g.nextSeq}
	g.nextSeq++
	g.topsort = nil
	return nil
}

// AddLeaf registers a resource or asset node with its readiness probe.
// Leaf nodes have no dependencies of their own.
func (g *Graph) AddLeaf(id NodeID, ready func() bool) error {
	if !id.IsLeaf() {
		return fmt.Errorf("node %s is not a resource or asset", id)
	}
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("node %s already registered", id)
	}
	g.nodes[id] = &node{id: id, seq: g.nextSeq, ready: ready}
	g.nextSeq++
	g.topsort = nil
	return nil
}

// LeafReady answers the readiness query for a leaf node. Unregistered or
// probe-less leaves report not ready.
func (g *Graph) LeafReady(id NodeID) bool {
	n, ok := g.nodes[id]
	if !ok || n.ready == nil {
		return false
	}
	return n.ready()
}

// Dependencies returns the direct dependency ids of a node, in declaration
// order. The returned slice is a copy.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	deps := make([]NodeID, len(n.deps))
	copy(deps, n.deps)
	return deps
}

// Dependents returns all node ids that directly depend on the given node,
// ordered topologically. This is the reverse-edge query used for cascading
// teardown.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, n := range g.nodes {
		for _, dep := range n.deps {
			if dep == id {
				res = append(res, n.id)
				break
			}
		}
	}
	g.sortTopologically(res)
	return res
}

// Validate checks that every declared dependency has been registered.
// It must be called once registration is complete, before the first cycle.
func (g *Graph) Validate() error {
	for _, n := range g.nodes {
		for _, dep := range n.deps {
			if _, ok := g.nodes[dep]; !ok {
				return fmt.Errorf("%w: %s declared by %s", ErrUnknownDependency, dep, n.id)
			}
		}
	}
	return nil
}

// TopologicalOrder returns the nodes ordered so that every dependency
// precedes its dependents. The ordering is deterministic for a fixed
// registration order: ties are broken by registration sequence, not by
// identifier value. The result is cached until the next mutation.
func (g *Graph) TopologicalOrder() []NodeID {
	if g.topsort == nil {
		g.topsort = g.computeTopsort()
	}
	out := make([]NodeID, len(g.topsort))
	copy(out, g.topsort)
	return out
}

// computeTopsort runs Kahn's algorithm with a registration-ordered frontier.
// Unknown forward references are skipped; Validate reports those separately.
func (g *Graph) computeTopsort() []NodeID {
	indegree := make(map[NodeID]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = 0
	}
	for _, n := range g.nodes {
		for _, dep := range n.deps {
			if _, ok := g.nodes[dep]; ok {
				indegree[n.id]++
			}
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	remaining := len(g.nodes)
	for remaining > 0 {
		frontier := make([]NodeID, 0, remaining)
		for id, deg := range indegree {
			if deg == 0 {
				frontier = append(frontier, id)
			}
		}
		if len(frontier) == 0 {
			// Unreachable for graphs built through AddNode, which
			// rejects cycles.
			break
		}
		sort.Slice(frontier, func(i, j int) bool {
			return g.nodes[frontier[i]].seq < g.nodes[frontier[j]].seq
		})
		for _, id := range frontier {
			order = append(order, id)
			delete(indegree, id)
			remaining--
			for _, n := range g.nodes {
				for _, dep := range n.deps {
					if dep == id {
						if _, pending := indegree[n.id]; pending {
							indegree[n.id]--
						}
						break
					}
				}
			}
		}
	}
	return order
}

// sortTopologically orders ids in place according to the cached topological
// ordering, falling back to registration order for nodes outside it.
func (g *Graph) sortTopologically(ids []NodeID) {
	pos := make(map[NodeID]int, len(ids))
	for i, id := range g.TopologicalOrder() {
		pos[id] = i
	}
	sort.Slice(ids, func(i, j int) bool {
		return pos[ids[i]] < pos[ids[j]]
	})
}

// findCycle runs an iterative depth-first search from the prospective new
// node over the existing adjacency, returning the cycle path if following
// newDeps can reach back to id.
func (g *Graph) findCycle(id NodeID, newDeps []NodeID) []NodeID {
	type frame struct {
		node NodeID
		path []NodeID
	}
	stack := make([]frame, 0, len(newDeps))
	for _, dep := range newDeps {
		stack = append(stack, frame{node: dep, path: []NodeID{id, dep}})
	}
	visited := make(map[NodeID]bool)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.node == id {
			return top.path
		}
		if visited[top.node] {
			continue
		}
		visited[top.node] = true
		n, ok := g.nodes[top.node]
		if !ok {
			continue
		}
		for _, dep := range n.deps {
			path := make([]NodeID, len(top.path), len(top.path)+1)
			copy(path, top.path)
			stack = append(stack, frame{node: dep, path: append(path, dep)})
		}
	}
	return nil
}

func formatCycle(cycle []NodeID) string {
	msg := ""
	for i, id := range cycle {
		if i > 0 {
			msg += " -> "
		}
		msg += id.String()
	}
	return msg
}
