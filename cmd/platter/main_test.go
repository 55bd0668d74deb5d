package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"platter/internal/config"
	"platter/internal/dedupe"
	"platter/internal/jobs"
	"platter/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *jobs.Store
	configPath string
}

// setupCLITestEnv builds a config rooted in a temp directory, writes it to
// disk so commands can load it through --config, and opens the same store
// the commands will open.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		configPath: configPath,
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestCLIListShowAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := testsupport.NewJob(t, env.store, "/dev/sr0", "ALPHA_DISC")
	beta := testsupport.NewJob(t, env.store, "/dev/sr1", "BETA_DISC")
	if err := env.store.MarkFailed(ctx, beta, "rip tool exited 1"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "ALPHA_DISC")
	requireContains(t, out, "BETA_DISC")

	out, _, err = runCLI(t, env.configPath, "list", "--status", "fail")
	if err != nil {
		t.Fatalf("list --status fail: %v", err)
	}
	requireContains(t, out, "BETA_DISC")
	if strings.Contains(out, "ALPHA_DISC") {
		t.Fatalf("filtered list should not include unfinished job: %q", out)
	}

	if _, _, err := runCLI(t, env.configPath, "list", "--status", "bogus"); err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}

	if err := env.store.Apply(ctx, alpha, jobs.JobUpdate{
		Title:        jobs.Ptr("Big Buck Bunny"),
		Year:         jobs.Ptr("2008"),
		Fingerprint:  jobs.Ptr("fp-alpha-0123456789abcdef"),
		HasNiceTitle: jobs.Ptr(true),
	}); err != nil {
		t.Fatalf("Apply identification: %v", err)
	}
	track := &jobs.Track{
		JobID:       alpha.ID,
		TrackNumber: "1",
		Length:      5400,
		AspectRatio: "16:9",
		FPS:         23.98,
		MainFeature: true,
		Filename:    "Big Buck Bunny.mkv",
	}
	if err := env.store.AddTrack(ctx, track); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "show", fmt.Sprintf("%d", alpha.ID))
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Job %d", alpha.ID))
	requireContains(t, out, "Big Buck Bunny (2008)")
	requireContains(t, out, "Tracks:")
	requireContains(t, out, "1h30m")
	requireContains(t, out, "Big Buck Bunny.mkv")

	if _, _, err := runCLI(t, env.configPath, "show", "999"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, "show", "abc"); err == nil || !strings.Contains(err.Error(), "invalid job id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "clear")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 finished jobs")

	out, _, err = runCLI(t, env.configPath, "clear", fmt.Sprintf("%d", alpha.ID), "42")
	if err != nil {
		t.Fatalf("clear by id: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Job %d removed", alpha.ID))
	requireContains(t, out, "Job 42 not found")

	out, _, err = runCLI(t, env.configPath, "list")
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	requireContains(t, out, "No jobs recorded")
}

func TestCLIOverrideCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, env.store, "/dev/sr0", "MYSTERY_DISC")
	if err := env.store.Apply(ctx, job, jobs.JobUpdate{Status: jobs.Ptr(jobs.StatusWaiting)}); err != nil {
		t.Fatalf("move job to waiting: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "override", fmt.Sprintf("%d", job.ID), "The", "Matrix")
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Manual title for job %d set to %q", job.ID, "The Matrix"))

	updated, err := env.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.ManualTitle != "The Matrix" {
		t.Fatalf("expected manual title recorded, got %q", updated.ManualTitle)
	}

	done := testsupport.NewJob(t, env.store, "/dev/sr1", "DONE_DISC")
	if err := env.store.Apply(ctx, done, jobs.JobUpdate{Status: jobs.Ptr(jobs.StatusActive)}); err != nil {
		t.Fatalf("move job to active: %v", err)
	}
	if err := env.store.MarkSuccess(ctx, done); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, "override", fmt.Sprintf("%d", done.ID), "Too Late"); err == nil || !strings.Contains(err.Error(), "already finished") {
		t.Fatalf("expected finished error, got %v", err)
	}

	if _, _, err := runCLI(t, env.configPath, "override", "999", "Ghost Title"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCLISweepCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	// A short-lived child process supplies a PID that is known dead.
	probe := exec.Command("true")
	if err := probe.Run(); err != nil {
		t.Fatalf("run probe process: %v", err)
	}
	deadPID := probe.Process.Pid

	job := testsupport.NewJob(t, env.store, "/dev/sr0", "ORPHAN_DISC")
	if err := env.store.Apply(ctx, job, jobs.JobUpdate{PID: jobs.Ptr(deadPID)}); err != nil {
		t.Fatalf("record dead pid: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "sweep")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	requireContains(t, out, "Corrected 1 abandoned jobs")

	updated, err := env.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != jobs.StatusFailed {
		t.Fatalf("expected abandoned job failed, got %s", updated.Status)
	}

	out, _, err = runCLI(t, env.configPath, "sweep")
	if err != nil {
		t.Fatalf("sweep again: %v", err)
	}
	requireContains(t, out, "No abandoned jobs found")
}

func TestCLIRipRefusesBusyDevice(t *testing.T) {
	env := setupCLITestEnv(t)
	device := filepath.Join(testsupport.BaseDir(env.cfg), "fake-sr0")
	testsupport.NewJob(t, env.store, device, "IN_FLIGHT")

	_, _, err := runCLI(t, env.configPath, "rip", "--device", device)
	if err == nil || !errors.Is(err, dedupe.ErrDeviceBusy) {
		t.Fatalf("expected device busy error, got %v", err)
	}
}

func TestCLIRipFailsWhenDriveMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	device := filepath.Join(testsupport.BaseDir(env.cfg), "missing-drive")

	_, _, err := runCLI(t, env.configPath, "rip", "--device", device)
	if err == nil {
		t.Fatal("expected error for missing drive")
	}

	items, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no job rows after aborted rip, got %d", len(items))
	}
}

func TestCLIStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Not running")
	requireContains(t, out, "== Database ==")
	requireContains(t, out, "jobs at")
	requireContains(t, out, "No jobs recorded")

	testsupport.NewJob(t, env.store, "/dev/sr0", "COUNTED_DISC")

	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status with jobs: %v", err)
	}
	requireContains(t, out, "Identifying")
}

func TestCLICheckCommand(t *testing.T) {
	// A /dev path that passes validation but matches no node on any host.
	env := setupCLITestEnv(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithDevice("/dev/platter-test-absent"),
	)

	out, _, err := runCLI(t, env.configPath, "check")
	if err == nil || !strings.Contains(err.Error(), "environment checks failed") {
		t.Fatalf("expected check to fail without a drive, got %v", err)
	}
	requireContains(t, out, "== Environment ==")
	requireContains(t, out, "Job store")
	requireContains(t, out, "Optical drive")
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "Ready")
	if strings.Contains(out, "Missing binaries") {
		t.Fatalf("expected stubbed binaries to be found: %q", out)
	}

	out, _, _ = runCLI(t, env.configPath, "check", "--notify")
	requireContains(t, out, "== Notifications ==")
	requireContains(t, out, "Not configured (ntfy_topic unset)")
}

func TestCLIEjectCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, env.configPath, "eject", "--device", "/dev/sr0")
	if err != nil {
		t.Fatalf("eject: %v", err)
	}
	requireContains(t, out, "Ejected /dev/sr0")
}
