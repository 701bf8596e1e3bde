// Package config loads roster's configuration: the host settings from
// config.yaml and one service definition per YAML file in the services/
// subdirectory. Definitions resolve their dependency references to graph
// node ids, so malformed references fail at load time rather than at
// registration.
//
// The Watcher keeps a running host in sync with the services/ directory.
// Changes are debounced and handed to the host as reloaded definitions;
// the host turns them into data-update commands on the affected services.
package config
