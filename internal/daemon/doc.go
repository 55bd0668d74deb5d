// Package daemon runs the platterd background service: it watches the
// optical drive for inserted media, launches one rip runner process per
// disc, and periodically reconciles jobs whose runner died.
//
// Detection goes through the udev netlink socket by default, with a
// drive-status polling monitor as the configurable alternative. A flock
// under the lock directory keeps the daemon single-instance per host.
// Rip runners are separate processes and are never killed by the daemon,
// so an in-flight rip survives a daemon restart.
package daemon
