// Package workflow drives one rip job from classification to a terminal
// state.
//
// The Machine owns the lifecycle: identifying, an optional waiting pause for
// a manually submitted title, active while the rip runs, then success or
// fail. Every transition is persisted through the job store before the next
// step begins, so a crash at any point leaves a row the reconciliation sweep
// can reason about. The rip itself is delegated to a Dispatcher, duplicate
// detection to the dedupe guard, and completion or failure notices to the
// notification service, whose errors are logged and never block the run.
package workflow
