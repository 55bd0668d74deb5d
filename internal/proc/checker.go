// Package proc answers whether a recorded PID still belongs to the process
// that recorded it. Liveness alone is not enough for reconciliation: PIDs
// recycle, so jobs store an identity fingerprint that pairs the PID with the
// kernel's start tick for the process, which no successor can share.
package proc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Checker probes the liveness and identity of a process.
type Checker interface {
	// Alive reports whether a process with the PID currently exists.
	Alive(pid int) bool
	// Fingerprint returns the identity fingerprint for a live process.
	Fingerprint(pid int) (string, error)
}

// LinuxChecker implements Checker against a procfs mount.
type LinuxChecker struct {
	// Root is the procfs mount point; empty means /proc.
	Root string
}

// NewChecker returns a checker for the running system.
func NewChecker() *LinuxChecker {
	return &LinuxChecker{}
}

func (c *LinuxChecker) root() string {
	if c == nil || c.Root == "" {
		return "/proc"
	}
	return c.Root
}

// Alive probes the PID with the null signal. Permission denied still means
// the process exists.
func (c *LinuxChecker) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}

// Fingerprint reads the process start tick from the stat file and combines it
// with the PID. The tick is constant for the process's lifetime and differs
// for any later process that reuses the PID.
func (c *LinuxChecker) Fingerprint(pid int) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("fingerprint pid %d: out of range", pid)
	}
	statPath := filepath.Join(c.root(), strconv.Itoa(pid), "stat")
	data, err := os.ReadFile(statPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", statPath, err)
	}
	start, err := parseStartTick(string(data))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", statPath, err)
	}
	return fmt.Sprintf("%d:%d", pid, start), nil
}

// Self returns the fingerprint of the current process.
func (c *LinuxChecker) Self() (string, error) {
	return c.Fingerprint(os.Getpid())
}

// starttime is field 22 of the stat line. The comm field may contain spaces
// and parentheses, so fields are counted from the last closing paren.
const startTickField = 22

func parseStartTick(stat string) (uint64, error) {
	closing := strings.LastIndexByte(stat, ')')
	if closing < 0 {
		return 0, errors.New("malformed stat line")
	}
	fields := strings.Fields(stat[closing+1:])
	// fields[0] is the process state, field 3 of the full line.
	idx := startTickField - 3
	if len(fields) <= idx {
		return 0, fmt.Errorf("stat line has %d fields after comm, need %d", len(fields), idx+1)
	}
	return strconv.ParseUint(fields[idx], 10, 64)
}
