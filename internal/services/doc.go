// Package services defines shared utilities consumed by the rip workflow and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, device paths, and run correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures carry a
//     classification (external tool, validation, fatal) the workflow and the
//     top-level command can act on without parsing message text.
//   - Thin abstractions that make command execution against external rip tools
//     testable.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability, exit codes) stays uniform across the system.
package services
