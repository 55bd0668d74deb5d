// Package preflight provides readiness checks for the directories, job
// store, optical drive, and external binaries a rip run depends on.
//
// The checks run in two contexts: platter check renders all of them before
// a first rip is attempted, and the daemon runs them at startup, refusing
// to start when a required one fails.
package preflight
