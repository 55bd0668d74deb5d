// Package logging assembles structured slog loggers and formatting helpers used
// across Platter components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so rip code can automatically tag
// log lines with job IDs, device paths, and run correlation IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail, and
// a tee so each rip job can mirror its progress into its own log file next to
// the external tool output.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
