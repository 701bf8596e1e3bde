package app

import (
	"fmt"

	"roster/internal/config"
	"roster/internal/graph"
	"roster/internal/orchestrator"
	"roster/internal/scope"
	"roster/internal/services"
)

// BuildOrchestrator registers every configured service with a fresh
// orchestrator. Leaf dependencies referenced by the definitions are
// registered implicitly with an always-ready probe; embedding hosts that
// manage real resources or assets replace them by registering first and
// passing their own orchestrator through hooks instead.
func BuildOrchestrator(cfg config.RosterConfig, hooks map[string]services.Hooks, ops map[string][]scope.Op) (*orchestrator.Orchestrator, error) {
	orch := orchestrator.New()

	// Leaves first so later service registrations can reference them.
	registered := make(map[graph.NodeID]bool)
	for _, svc := range cfg.Services {
		deps, err := svc.DependencyIDs()
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			if !dep.IsLeaf() || registered[dep] {
				continue
			}
			registered[dep] = true
			if err := registerLeaf(orch, dep); err != nil {
				return nil, err
			}
		}
	}

	for _, svc := range cfg.Services {
		deps, err := svc.DependencyIDs()
		if err != nil {
			return nil, err
		}
		spec := orchestrator.Spec{
			Name:              svc.Name,
			Dependencies:      deps,
			Data:              svc.Data,
			ActivateAtStartup: svc.AutoStart,
		}
		if hooks != nil {
			spec.Hooks = hooks[svc.Name]
		}
		if ops != nil {
			spec.Ops = ops[svc.Name]
		}
		if _, err := orch.RegisterService(spec); err != nil {
			return nil, fmt.Errorf("registering service %s: %w", svc.Name, err)
		}
	}

	return orch, nil
}

func registerLeaf(orch *orchestrator.Orchestrator, id graph.NodeID) error {
	ready := func() bool { return true }
	var err error
	switch id.Kind {
	case graph.KindResource:
		_, err = orch.RegisterResource(id.Key, ready)
	case graph.KindAsset:
		_, err = orch.RegisterAsset(id.Key, ready)
	}
	return err
}
