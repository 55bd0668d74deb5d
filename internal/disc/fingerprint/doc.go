// Package fingerprint computes deterministic content fingerprints for
// optical discs.
//
// Strategies by disc type:
//   - Blu-ray: CERTIFICATE/id.bdmv when present, otherwise the BDMV
//     index/playlist/clip-info structure
//   - DVD: the VIDEO_TS IFO set
//   - Fallback: a sorted directory manifest hashing the first 64 KiB of
//     each file
//
// The fingerprint is a SHA-256 hex digest that identifies disc content
// regardless of label or device path, which is what duplicate detection
// keys on. The disc is mounted on demand when the kernel has not already
// mounted it, and unmounted again afterwards.
package fingerprint
