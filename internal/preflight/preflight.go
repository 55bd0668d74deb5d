package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"platter/internal/config"
	"platter/internal/deps"
	"platter/internal/disc"
	"platter/internal/jobs"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the environment checks a rip run depends on: the working
// directories, the job store, and the optical drive. Directory checks come
// first so they report the state before the store check creates anything.
// Binary availability is reported separately by CheckBinaries.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Raw directory", cfg.Paths.RawDir),
		CheckDirectoryAccess("Completed directory", cfg.Paths.CompletedDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckStore(ctx, cfg),
		CheckDrive(cfg.Drive.Device),
	}
}

// Passed reports whether every result in the set passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckDirectoryAccess verifies that the directory exists and grants read,
// write, and traverse permission.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore verifies the job store opens and answers a health query.
func CheckStore(ctx context.Context, cfg *config.Config) Result {
	const name = "Job store"
	store, err := jobs.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (open: %v)", cfg.DatabasePath(), err)}
	}
	defer store.Close()
	if _, err := store.CheckHealth(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (health: %v)", cfg.DatabasePath(), err)}
	}
	return Result{Name: name, Passed: true, Detail: cfg.DatabasePath()}
}

// CheckDrive verifies the optical drive node answers a status query. A drive
// with an open tray or no disc still passes; only a missing or unresponsive
// device fails.
func CheckDrive(device string) Result {
	const name = "Optical drive"
	device = strings.TrimSpace(device)
	if device == "" {
		return Result{Name: name, Detail: "no device configured"}
	}
	status, err := disc.CheckDriveStatus(device)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%v)", device, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", device, status)}
}

// CheckBinaries evaluates the external binaries the configured rip paths
// shell out to.
func CheckBinaries(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{Name: "Music ripper", Command: cfg.Music.Tool, Description: "Rips audio CDs"},
		{Name: "Video ripper", Command: cfg.Video.Tool, Description: "Rips dvd and bluray discs"},
		{Name: "dd", Command: "dd", Description: "Images data discs"},
		{Name: "lsblk", Command: "lsblk", Description: "Classifies inserted discs"},
		{Name: "ffprobe", Command: "ffprobe", Description: "Probes ripped tracks for duration and geometry"},
		{Name: "blkid", Command: "blkid", Description: "Refines classification for discs lsblk cannot read", Optional: true},
		{Name: "eject", Command: "eject", Description: "Opens the tray when a rip finishes", Optional: !cfg.Drive.EjectOnFinish},
	}
	return deps.CheckBinaries(requirements)
}
