package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"roster/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/roster"
	configFileName = "config.yaml"
	servicesDir    = "services"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from a single specified directory. The
// directory should contain config.yaml and an optional services/
// subdirectory with one YAML file per service definition.
func LoadConfig(configPath string) (RosterConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return RosterConfig{}, err
		}
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	} else {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return RosterConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if config.Cycle.Interval <= 0 {
		config.Cycle.Interval = Duration(DefaultCycleInterval)
	}

	defs, err := LoadServiceDefinitions(filepath.Join(configPath, servicesDir))
	if err != nil {
		return RosterConfig{}, err
	}
	config.Services = append(config.Services, defs...)

	if err := validate(config); err != nil {
		return RosterConfig{}, err
	}
	return config, nil
}

// LoadServiceDefinitions reads every .yaml file in the given directory as
// one service definition. A missing directory is not an error. Files are
// read in lexical order so registration order, and with it scheduling
// tie-breaks, stays stable across runs.
func LoadServiceDefinitions(dir string) ([]ServiceConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var defs []ServiceConfig
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var def ServiceConfig
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("error loading service definition %s: %w", path, err)
		}
		if def.Name == "" {
			def.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		defs = append(defs, def)
		logging.Debug("ConfigLoader", "Loaded service definition %s from %s", def.Name, path)
	}
	return defs, nil
}

// validate rejects duplicate service names and malformed dependency
// references before anything reaches the orchestrator.
func validate(config RosterConfig) error {
	seen := make(map[string]bool, len(config.Services))
	for _, svc := range config.Services {
		if svc.Name == "" {
			return fmt.Errorf("service definition without a name")
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service definition %q", svc.Name)
		}
		seen[svc.Name] = true
		if _, err := svc.DependencyIDs(); err != nil {
			return err
		}
	}
	return nil
}
