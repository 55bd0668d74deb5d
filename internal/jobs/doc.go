// Package jobs persists rip jobs and their tracks in SQLite and enforces the
// job lifecycle.
//
// The Store manages database connections, schema initialization, and every
// read and write the rip process and the CLI share. All writes run under a
// lock-retry discipline tuned for a second process holding the database
// briefly; busy and locked driver results are retried on a fixed cadence up
// to a configured budget while every other error propagates immediately.
// Status changes are validated against the forward-only transition table
// before they touch the database.
//
// Treat this package as the single source of truth for job semantics; when
// you add new statuses or columns, update schema.sql and bump schemaVersion.
package jobs
