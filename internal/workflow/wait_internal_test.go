package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"platter/internal/config"
	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/testsupport"
)

func newWaitMachine(t *testing.T, cfg *config.Config, cfgPath string, store *jobs.Store) (*Machine, *int) {
	t.Helper()
	machine := NewWithDependencies(cfg, cfgPath, store, logging.NewNop(), nil, nil, nil)
	sleeps := new(int)
	machine.sleep = func(context.Context, time.Duration) error {
		*sleeps++
		return nil
	}
	return machine, sleeps
}

func applyUpdate(t *testing.T, store *jobs.Store, job *jobs.Job, update jobs.JobUpdate) {
	t.Helper()
	if err := store.Apply(context.Background(), job, update); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
}

func TestAwaitManualTitlePromotesWithoutSleeping(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithManualWait(600, 5))
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/dev/sr0", "ALPHA_DISC")
	applyUpdate(t, store, job, jobs.JobUpdate{ManualTitle: jobs.Ptr("Alpha (2001)")})

	machine, sleeps := newWaitMachine(t, cfg, "", store)
	if err := machine.awaitManualTitle(context.Background(), logging.NewNop(), job); err != nil {
		t.Fatalf("awaitManualTitle failed: %v", err)
	}

	if *sleeps != 0 {
		t.Fatalf("expected zero sleeps with the override already set, got %d", *sleeps)
	}
	if job.Title != "Alpha (2001)" {
		t.Fatalf("expected the manual title promoted, got %q", job.Title)
	}
	if job.ManualTitle != "" {
		t.Fatalf("expected the pending title cleared, got %q", job.ManualTitle)
	}
	if !job.Overridden || !job.HasNiceTitle {
		t.Fatalf("expected overridden and usable-title flags, got %v/%v", job.Overridden, job.HasNiceTitle)
	}
	if job.Status != jobs.StatusWaiting {
		t.Fatalf("expected the job still in waiting, got %s", job.Status)
	}
}

func TestAwaitManualTitleCeilingExpiry(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithManualWait(10, 5))
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/dev/sr0", "ALPHA_DISC")

	machine, sleeps := newWaitMachine(t, cfg, "", store)
	if err := machine.awaitManualTitle(context.Background(), logging.NewNop(), job); err != nil {
		t.Fatalf("awaitManualTitle failed: %v", err)
	}

	if *sleeps != 2 {
		t.Fatalf("expected two polls for a 10s ceiling at 5s intervals, got %d", *sleeps)
	}
	if job.HasNiceTitle || job.Overridden {
		t.Fatal("expected no identification changes after an expired wait")
	}
	if job.Status != jobs.StatusWaiting {
		t.Fatalf("expected the job still in waiting, got %s", job.Status)
	}
}

func TestAwaitManualTitleSeesMidWaitOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithManualWait(600, 5))
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/dev/sr0", "ALPHA_DISC")

	machine, sleeps := newWaitMachine(t, cfg, "", store)
	machine.sleep = func(ctx context.Context, _ time.Duration) error {
		*sleeps++
		// A concurrent UI process writes the override through its own handle.
		other, err := store.GetByID(ctx, job.ID)
		if err != nil || other == nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		return store.Apply(ctx, other, jobs.JobUpdate{ManualTitle: jobs.Ptr("Beta (1999)")})
	}

	if err := machine.awaitManualTitle(context.Background(), logging.NewNop(), job); err != nil {
		t.Fatalf("awaitManualTitle failed: %v", err)
	}

	if *sleeps != 1 {
		t.Fatalf("expected the override caught on the tick after it landed, got %d sleeps", *sleeps)
	}
	if job.Title != "Beta (1999)" {
		t.Fatalf("expected the mid-wait title promoted, got %q", job.Title)
	}
}

func TestAwaitManualTitleSkipsWhenTitleUsable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithManualWait(600, 5))
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/dev/sr0", "ALPHA_DISC")
	applyUpdate(t, store, job, jobs.JobUpdate{
		Title:        jobs.Ptr("Alpha (2001)"),
		HasNiceTitle: jobs.Ptr(true),
	})

	machine, sleeps := newWaitMachine(t, cfg, "", store)
	if err := machine.awaitManualTitle(context.Background(), logging.NewNop(), job); err != nil {
		t.Fatalf("awaitManualTitle failed: %v", err)
	}

	if *sleeps != 0 {
		t.Fatalf("expected no wait for a job with a usable title, got %d sleeps", *sleeps)
	}
	if job.Status != jobs.StatusIdentifying {
		t.Fatalf("expected the job untouched, got %s", job.Status)
	}
}

func TestAwaitManualTitleReloadsCeilingFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithManualWait(600, 5))
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/dev/sr0", "ALPHA_DISC")

	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")
	contents := fmt.Sprintf(`[paths]
raw_dir = %q
completed_dir = %q
log_dir = %q
state_dir = %q

[workflow]
manual_wait = true
manual_wait_time = 1
manual_wait_poll = 5
`,
		filepath.Join(base, "raw"),
		filepath.Join(base, "completed"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "state"))
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	machine, sleeps := newWaitMachine(t, cfg, cfgPath, store)
	if err := machine.awaitManualTitle(context.Background(), logging.NewNop(), job); err != nil {
		t.Fatalf("awaitManualTitle failed: %v", err)
	}

	// The in-memory window says 600s, the file says 1s; the file wins on the
	// first reload, so a single 5s poll already exceeds the ceiling.
	if *sleeps != 1 {
		t.Fatalf("expected the shrunken file ceiling to end the wait, got %d sleeps", *sleeps)
	}
}
