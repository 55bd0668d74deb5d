package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// runCommand executes a system command. It is a package-level variable so
// tests can replace it with a stub.
var runCommand = func(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// ensureMount returns the mount point for device, mounting it first if
// necessary. The weMounted return value indicates whether this function
// performed the mount (and the caller should unmount when done).
func ensureMount(ctx context.Context, device string) (mountPoint string, weMounted bool, err error) {
	mountPoint, err = resolveMountPoint(device)
	if err != nil && !errors.Is(err, errMountNotFound) {
		return "", false, err
	}
	if mountPoint != "" {
		return mountPoint, false, nil
	}

	// Not in the mount table; mount it ourselves (fstab provides the
	// mount point).
	slog.Info("mounting disc for fingerprinting", "device", device)
	if err := runCommand(ctx, "mount", device); err != nil {
		return "", false, fmt.Errorf("mount %s: %w", device, err)
	}

	mountPoint, err = resolveMountPoint(device)
	if err != nil || mountPoint == "" {
		// Mount succeeded but we can't find the mount point -- clean up.
		unmountDevice(ctx, device)
		return "", false, fmt.Errorf("mount %s succeeded but mount point not found", device)
	}

	slog.Info("disc mounted", "device", device, "mount_point", mountPoint)
	return mountPoint, true, nil
}

// unmountDevice calls umount on device. Errors are logged but not returned
// since the fingerprint has already been computed by the time this runs.
func unmountDevice(ctx context.Context, device string) {
	if err := runCommand(ctx, "umount", device); err != nil {
		slog.Warn("failed to unmount disc; it remains mounted until manual umount or eject",
			"device", device,
			"error", err,
		)
	}
}
