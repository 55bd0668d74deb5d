// Package notifications pushes rip lifecycle events to ntfy.
//
// The default implementation POSTs to the topic configured in config.toml
// and degrades to a no-op when no topic is set. Delivery is best-effort by
// contract: callers log a failed send and move on, a notification must never
// abort a job.
//
// All workflow code depends only on the Service interface, so alternative
// transports slot in behind it.
package notifications
