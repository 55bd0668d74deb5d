package disc

import (
	"context"
	"testing"
)

func TestDriveStatusString(t *testing.T) {
	cases := []struct {
		status DriveStatus
		want   string
	}{
		{DriveStatusNoInfo, "no_info"},
		{DriveStatusNoDisc, "no_disc"},
		{DriveStatusTrayOpen, "tray_open"},
		{DriveStatusNotReady, "not_ready"},
		{DriveStatusDiscOK, "disc_ok"},
		{DriveStatus(99), "unknown(99)"},
	}

	for _, tc := range cases {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("DriveStatus(%d).String() = %q, want %q", int(tc.status), got, tc.want)
		}
	}
}

func TestCheckDriveStatusEmptyPath(t *testing.T) {
	if _, err := CheckDriveStatus(""); err == nil {
		t.Fatal("CheckDriveStatus accepted an empty device path")
	}
	if _, err := CheckDriveStatus("   "); err == nil {
		t.Fatal("CheckDriveStatus accepted a blank device path")
	}
}

func TestCheckDriveStatusMissingDevice(t *testing.T) {
	if _, err := CheckDriveStatus("/dev/does-not-exist"); err == nil {
		t.Fatal("CheckDriveStatus succeeded on a nonexistent device")
	}
}

func TestWaitForDiscCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := WaitForDisc(ctx, "/dev/does-not-exist"); err == nil {
		t.Fatal("WaitForDisc succeeded on a nonexistent device")
	}
}
