// Package main hosts the Platter CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the per-disc rip runner, job store
// inspection and maintenance, manual title overrides, environment checks,
// and configuration scaffolding. Commands talk to the shared SQLite job
// store directly; there is no daemon socket. It centralizes configuration
// resolution so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
