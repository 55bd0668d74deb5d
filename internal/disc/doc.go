// Package disc interfaces with physical optical drives.
//
// It classifies inserted media (dvd, bluray, music, data) from filesystem
// probes, reads drive status through the CDROM ioctl, and wraps disc
// ejection. Probe commands run through an injectable Runner so tests can
// fake lsblk and blkid output. Low-level device quirks stay here, out of the
// workflow code.
package disc
