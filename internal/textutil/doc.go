// Package textutil sanitizes disc-derived text for filesystem use.
//
// Disc labels and derived titles feed directly into library directory and
// file names, so everything that touches the filesystem funnels through
// SanitizeFileName (display names, spaces preserved) or SanitizeToken
// (lowercase single-token identifiers for staging directories and lock
// files).
package textutil
