// Package identification derives presentable titles from raw disc labels.
//
// Optical media rarely carries clean metadata: labels arrive as
// SHOUTED_UNDERSCORE_STRINGS with disc counters and format noise baked in.
// FromLabel turns those into something a library folder can be named after,
// and Display renders the canonical "Title (Year)" form used across the
// library layout and notifications.
//
// A derived title is cosmetic only. The "has usable title" flag on a job is
// set exclusively by a duplicate match against prior identified rips or by a
// manual override, never by this package.
package identification
