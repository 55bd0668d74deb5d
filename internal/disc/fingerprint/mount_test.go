package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func emptyMountsFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write mounts fixture failed: %v", err)
	}
	return path
}

func TestEnsureMountAlreadyMounted(t *testing.T) {
	base := t.TempDir()
	mounts := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(mounts, []byte(fmt.Sprintf("/dev/sr0 %s udf ro 0 0\n", base)), 0o644); err != nil {
		t.Fatalf("write mounts fixture failed: %v", err)
	}
	setMountsFile(t, mounts)
	stubRunCommand(t, func(_ context.Context, name string, _ ...string) error {
		t.Errorf("unexpected command %q for an already mounted device", name)
		return nil
	})

	mountPoint, weMounted, err := ensureMount(context.Background(), "/dev/sr0")
	if err != nil {
		t.Fatalf("ensureMount failed: %v", err)
	}
	if mountPoint != base {
		t.Errorf("mount point = %q, want %q", mountPoint, base)
	}
	if weMounted {
		t.Error("weMounted = true for a device that was already mounted")
	}
}

func TestEnsureMountMountsDevice(t *testing.T) {
	base := t.TempDir()
	mounts := emptyMountsFixture(t)
	setMountsFile(t, mounts)

	var calls []string
	stubRunCommand(t, func(_ context.Context, name string, args ...string) error {
		calls = append(calls, name)
		if name == "mount" {
			// Simulate fstab deciding the mount point.
			line := fmt.Sprintf("%s %s udf ro 0 0\n", args[0], base)
			if err := os.WriteFile(mounts, []byte(line), 0o644); err != nil {
				t.Fatalf("update mounts fixture failed: %v", err)
			}
		}
		return nil
	})

	mountPoint, weMounted, err := ensureMount(context.Background(), "/dev/sr0")
	if err != nil {
		t.Fatalf("ensureMount failed: %v", err)
	}
	if mountPoint != base {
		t.Errorf("mount point = %q, want %q", mountPoint, base)
	}
	if !weMounted {
		t.Error("weMounted = false although ensureMount performed the mount")
	}
	if len(calls) != 1 || calls[0] != "mount" {
		t.Errorf("commands = %v, want [mount]", calls)
	}
}

func TestEnsureMountCleansUpWhenResolveFails(t *testing.T) {
	setMountsFile(t, emptyMountsFixture(t))

	// mount "succeeds" but never lands in the mount table, so ensureMount
	// must undo it.
	var calls []string
	stubRunCommand(t, func(_ context.Context, name string, _ ...string) error {
		calls = append(calls, name)
		return nil
	})

	_, _, err := ensureMount(context.Background(), "/dev/sr99")
	if err == nil {
		t.Fatal("ensureMount succeeded although the mount point never appeared")
	}
	if !strings.Contains(err.Error(), "mount point not found") {
		t.Errorf("error should mention the missing mount point: %v", err)
	}
	if len(calls) != 2 || calls[0] != "mount" || calls[1] != "umount" {
		t.Errorf("commands = %v, want [mount umount]", calls)
	}
}

func TestEnsureMountMountFailure(t *testing.T) {
	setMountsFile(t, emptyMountsFixture(t))
	stubRunCommand(t, func(_ context.Context, _ string, _ ...string) error {
		return errors.New("mount: no medium found")
	})

	_, _, err := ensureMount(context.Background(), "/dev/sr99")
	if err == nil {
		t.Fatal("ensureMount succeeded although mount failed")
	}
	if !strings.Contains(err.Error(), "mount /dev/sr99") {
		t.Errorf("error should reference the device: %v", err)
	}
}

func TestUnmountDeviceSwallowsErrors(t *testing.T) {
	stubRunCommand(t, func(_ context.Context, name string, _ ...string) error {
		if name != "umount" {
			t.Errorf("unexpected command %q", name)
		}
		return errors.New("umount: target is busy")
	})

	// Must log, not propagate.
	unmountDevice(context.Background(), "/dev/sr0")
}
