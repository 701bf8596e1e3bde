package services

import (
	"fmt"
	"sync"

	"roster/internal/graph"
)

// Registry holds every registered service node. It is process-scoped state
// with explicit initialization and teardown tied to the host application's
// lifetime, not an implicit singleton.
type Registry struct {
	mu    sync.RWMutex
	nodes map[graph.NodeID]*ServiceNode
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[graph.NodeID]*ServiceNode)}
}

// Register adds a service node to the registry.
func (r *Registry) Register(node *ServiceNode) error {
	if node == nil {
		return fmt.Errorf("cannot register nil service node")
	}
	if node.ID().Kind != graph.KindService {
		return fmt.Errorf("node %s is not a service", node.ID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.ID()]; exists {
		return fmt.Errorf("service %s already registered", node.ID())
	}
	r.nodes[node.ID()] = node
	return nil
}

// Get returns a service node by id.
func (r *Registry) Get(id graph.NodeID) (*ServiceNode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, exists := r.nodes[id]
	return node, exists
}

// All returns all registered service nodes in unspecified order. Callers
// needing a deterministic order sort by the graph's topological ordering.
func (r *Registry) All() []*ServiceNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nodes := make([]*ServiceNode, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node)
	}
	return nodes
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Teardown cancels every pending task and drops all nodes. Called when the
// hosting application shuts down.
func (r *Registry) Teardown() {
	r.mu.Lock()
	nodes := make([]*ServiceNode, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node)
	}
	r.nodes = make(map[graph.NodeID]*ServiceNode)
	r.mu.Unlock()

	for _, node := range nodes {
		node.CancelPending()
	}
}
