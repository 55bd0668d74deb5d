package ripping_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/ripping"
	"platter/internal/services"
	"platter/internal/testsupport"
)

type recordingEjector struct {
	devices []string
}

func (e *recordingEjector) Eject(_ context.Context, device string) error {
	e.devices = append(e.devices, device)
	return nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) record(event string) error {
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) RipStarted(context.Context, *jobs.Job) error {
	return n.record("rip_started")
}

func (n *recordingNotifier) RipFinished(context.Context, *jobs.Job) error {
	return n.record("rip_finished")
}

func (n *recordingNotifier) RipFailed(context.Context, *jobs.Job, string) error {
	return n.record("rip_failed")
}

func (n *recordingNotifier) DuplicateDisc(context.Context, *jobs.Job) error {
	return n.record("duplicate_disc")
}

func (n *recordingNotifier) UnknownDisc(context.Context, *jobs.Job) error {
	return n.record("unknown_disc")
}

func (n *recordingNotifier) FatalError(context.Context, *jobs.Job, string) error {
	return n.record("fatal_error")
}

func (n *recordingNotifier) Test(context.Context) error {
	return n.record("test")
}

// activate moves a fresh job into the state Dispatch is called in, setting
// the classification fields along the way.
func activate(t *testing.T, store *jobs.Store, job *jobs.Job, update jobs.JobUpdate) {
	t.Helper()
	update.Status = jobs.Ptr(jobs.StatusActive)
	if err := store.Apply(context.Background(), job, update); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
}

func TestDispatchMusicRunsConfiguredTool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDevice("/dev/sr3"))
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	marker := filepath.Join(testsupport.BaseDir(cfg), "abcde-args")
	testsupport.WriteScript(t, filepath.Join(binDir, "abcde"), fmt.Sprintf("echo \"$@\" > %q\nexit 0\n", marker))
	testsupport.PrependPath(t, binDir)

	abcdeConfig := filepath.Join(testsupport.BaseDir(cfg), "abcde.conf")
	if err := os.WriteFile(abcdeConfig, []byte("OUTPUTTYPE=flac\n"), 0o644); err != nil {
		t.Fatalf("write abcde config failed: %v", err)
	}
	cfg.Music.ConfigFile = abcdeConfig
	cfg.Music.ExtraArgs = "-o flac"

	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/dev/sr3", "MUSIC_CD")
	activate(t, store, job, jobs.JobUpdate{DiscType: jobs.Ptr(jobs.DiscMusic)})

	ejector := &recordingEjector{}
	d := ripping.NewWithDependencies(cfg, store, logging.NewNop(), ejector, nil)
	if err := d.Dispatch(context.Background(), job, false); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	recorded, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("abcde stub was never invoked: %v", err)
	}
	want := fmt.Sprintf("-d /dev/sr3 -c %s -o flac", abcdeConfig)
	if got := strings.TrimSpace(string(recorded)); got != want {
		t.Errorf("abcde args = %q, want %q", got, want)
	}
	if len(ejector.devices) != 1 || ejector.devices[0] != "/dev/sr3" {
		t.Errorf("eject calls = %v, want one for /dev/sr3", ejector.devices)
	}
}

func TestDispatchMusicFailureKeepsJobActive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteScript(t, filepath.Join(binDir, "abcde"), "echo 'read error' >&2\nexit 3\n")
	testsupport.PrependPath(t, binDir)

	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, cfg.Drive.Device, "MUSIC_CD")
	activate(t, store, job, jobs.JobUpdate{DiscType: jobs.Ptr(jobs.DiscMusic)})

	d := ripping.NewWithDependencies(cfg, store, logging.NewNop(), &recordingEjector{}, nil)
	err := d.Dispatch(context.Background(), job, false)
	if err == nil {
		t.Fatal("Dispatch succeeded despite the tool failing")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("error lacks external tool marker: %v", err)
	}
	if !strings.Contains(err.Error(), "code 3") || !strings.Contains(err.Error(), "read error") {
		t.Errorf("error should carry exit code and output tail: %v", err)
	}

	// Recording the failure is the state machine's job, not the dispatcher's.
	stored, getErr := store.GetByID(context.Background(), job.ID)
	if getErr != nil {
		t.Fatalf("GetByID failed: %v", getErr)
	}
	if stored.Status != jobs.StatusActive {
		t.Errorf("job status = %q, want %q", stored.Status, jobs.StatusActive)
	}
}

func TestDispatchDataRip(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDevice("/dev/sr0"))
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteScript(t, filepath.Join(binDir, "dd"), `out=""
for arg in "$@"; do
  case "$arg" in
    of=*) out="${arg#of=}" ;;
  esac
done
printf 'iso-bytes' > "$out"
exit 0
`)
	testsupport.PrependPath(t, binDir)

	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/dev/sr0", "BACKUP_2020")
	activate(t, store, job, jobs.JobUpdate{DiscType: jobs.Ptr(jobs.DiscData)})

	d := ripping.NewWithDependencies(cfg, store, logging.NewNop(), &recordingEjector{}, nil)
	if err := d.Dispatch(context.Background(), job, false); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	image := filepath.Join(cfg.Paths.CompletedDir, "unidentified", "BACKUP_2020", "BACKUP_2020.iso")
	content, err := os.ReadFile(image)
	if err != nil {
		t.Fatalf("final image missing: %v", err)
	}
	if string(content) != "iso-bytes" {
		t.Errorf("image content = %q, want %q", content, "iso-bytes")
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.RawDir, "BACKUP_2020")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("staging directory still present after a successful rip: %v", err)
	}
}

func TestDispatchDataRipFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteScript(t, filepath.Join(binDir, "dd"), "echo 'dd: error reading' >&2\nexit 1\n")
	testsupport.PrependPath(t, binDir)

	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, cfg.Drive.Device, "BACKUP_2020")
	activate(t, store, job, jobs.JobUpdate{DiscType: jobs.Ptr(jobs.DiscData)})

	d := ripping.NewWithDependencies(cfg, store, logging.NewNop(), &recordingEjector{}, nil)
	err := d.Dispatch(context.Background(), job, false)
	if err == nil {
		t.Fatal("Dispatch succeeded despite dd failing")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("error lacks external tool marker: %v", err)
	}

	stored, getErr := store.GetByID(context.Background(), job.ID)
	if getErr != nil {
		t.Fatalf("GetByID failed: %v", getErr)
	}
	if stored.Status != jobs.StatusFailed {
		t.Errorf("job status = %q, want %q", stored.Status, jobs.StatusFailed)
	}
	if !strings.Contains(stored.ErrorMessage, "dd") {
		t.Errorf("error message %q should mention the tool", stored.ErrorMessage)
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.RawDir, "BACKUP_2020")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("staging directory still present after a failed rip: %v", err)
	}
}

func TestDispatchDataRipCollisionUsesSuffix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteScript(t, filepath.Join(binDir, "dd"), `out=""
for arg in "$@"; do
  case "$arg" in
    of=*) out="${arg#of=}" ;;
  esac
done
printf 'x' > "$out"
exit 0
`)
	testsupport.PrependPath(t, binDir)

	if err := os.MkdirAll(filepath.Join(cfg.Paths.RawDir, "BACKUP_2020"), 0o755); err != nil {
		t.Fatalf("pre-create staging dir failed: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, cfg.Drive.Device, "BACKUP_2020")
	activate(t, store, job, jobs.JobUpdate{DiscType: jobs.Ptr(jobs.DiscData)})

	d := ripping.NewWithDependencies(cfg, store, logging.NewNop(), &recordingEjector{}, nil)
	if err := d.Dispatch(context.Background(), job, false); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(cfg.Paths.CompletedDir, "unidentified"))
	if err != nil {
		t.Fatalf("read final directory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("final directory entries = %d, want 1", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "BACKUP_2020_") {
		t.Errorf("final directory %q lacks the collision suffix", name)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.CompletedDir, "unidentified", name, "BACKUP_2020.iso")); err != nil {
		t.Errorf("suffixed image missing: %v", err)
	}
}

func TestDispatchUnknownTypeRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, cfg.Drive.Device, "MYSTERY")
	activate(t, store, job, jobs.JobUpdate{})

	d := ripping.NewWithDependencies(cfg, store, logging.NewNop(), &recordingEjector{}, nil)
	err := d.Dispatch(context.Background(), job, false)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown disc type, got %v", err)
	}
}
