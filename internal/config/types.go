package config

import (
	"fmt"
	"strings"
	"time"

	"roster/internal/graph"

	"gopkg.in/yaml.v3"
)

// RosterConfig is the top-level configuration structure for roster.
type RosterConfig struct {
	Cycle    CycleConfig     `yaml:"cycle"`
	Log      LogConfig       `yaml:"log"`
	Services []ServiceConfig `yaml:"services,omitempty"`
}

// CycleConfig controls the host update loop.
type CycleConfig struct {
	// Interval is the time between update cycles (default: 100ms).
	Interval Duration `yaml:"interval,omitempty"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `yaml:"level,omitempty"`
}

// ServiceConfig declares one service: its identity, dependencies, startup
// behavior and initial data payload.
type ServiceConfig struct {
	Name string `yaml:"name"`

	// Dependencies are node references: "name" or "service:name" for
	// services, "resource:key" and "asset:path" for leaves.
	Dependencies []string `yaml:"dependencies,omitempty"`

	// AutoStart brings the service up when the host starts.
	AutoStart bool `yaml:"autoStart,omitempty"`

	// Data is the service-defined payload handed to its hooks.
	Data map[string]any `yaml:"data,omitempty"`
}

// DependencyIDs resolves the declared dependency references to node ids.
func (s ServiceConfig) DependencyIDs() ([]graph.NodeID, error) {
	ids := make([]graph.NodeID, 0, len(s.Dependencies))
	for _, ref := range s.Dependencies {
		id, err := ParseNodeRef(ref)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", s.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseNodeRef parses a "kind:key" node reference. A bare name is a
// service reference.
func ParseNodeRef(ref string) (graph.NodeID, error) {
	kind, key, found := strings.Cut(ref, ":")
	if !found {
		if ref == "" {
			return graph.NodeID{}, fmt.Errorf("empty node reference")
		}
		return graph.ServiceID(ref), nil
	}
	switch kind {
	case "service":
		return graph.ServiceID(key), nil
	case "resource":
		return graph.ResourceID(key), nil
	case "asset":
		return graph.AssetID(key), nil
	default:
		return graph.NodeID{}, fmt.Errorf("unknown node kind %q in reference %q", kind, ref)
	}
}

// Duration wraps time.Duration so YAML values like "250ms" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
