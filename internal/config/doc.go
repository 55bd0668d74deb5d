// Package config loads, normalizes, and validates Platter configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLATTER_NTFY_TOPIC. The Config type centralizes every knob the daemon and
// rip runner need, so staging directories, rip tool selection, and the job
// store location are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
