// Package logging provides the structured logging facility used by every
// roster subsystem.
//
// It is a thin layer over log/slog that tags each entry with the subsystem
// that produced it, so that output from the command pipeline, the task
// poller, the config watcher and the CLI can be filtered apart.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Pipeline", "Drained %d commands", n)
//	logging.Error("Graph", err, "Validation failed")
//
// Init must be called once before any subsystem logs; logging before Init
// falls back to stderr rather than panicking.
package logging
