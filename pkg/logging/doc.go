// Package logging provides the structured logging facility used by every
// subsystem of the control plane.
//
// It is a thin wrapper around log/slog that tags each entry with the
// subsystem it originated from, so that log output from the heartbeat
// handler, the monitor and the export publisher can be filtered apart:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Coordinator", "registered %s", label)
//	logging.Error("Monitor", err, "sweep failed")
//
// Helpers accept printf-style format strings; formatting only happens when
// the entry passes the configured level filter.
package logging
