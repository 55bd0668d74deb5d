// Package dedupe guards a rip run against redundant work: discs that were
// already ripped successfully, and devices that already have a run in flight.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"platter/internal/config"
	"platter/internal/jobs"
	"platter/internal/logging"
)

// ErrDeviceBusy indicates another rip run currently owns the device.
var ErrDeviceBusy = errors.New("device already has a running job")

// Store is the slice of the job store the guard needs.
type Store interface {
	PriorSuccesses(ctx context.Context, fingerprint string) ([]*jobs.Job, error)
	RunningOnDevice(ctx context.Context, device string, cutoff time.Time) ([]*jobs.Job, error)
	Apply(ctx context.Context, job *jobs.Job, update jobs.JobUpdate) error
}

// Guard answers duplicate-disc and duplicate-run questions for one rip run.
type Guard struct {
	store   Store
	logger  *slog.Logger
	window  time.Duration
	lockDir string
}

// New builds a guard bound to the store, with the run window and lock
// directory taken from cfg.
func New(store Store, cfg *config.Config, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Guard{
		store:   store,
		logger:  logging.NewComponentLogger(logger, "dedupe"),
		window:  time.Duration(cfg.Workflow.DuplicateRunWindow) * time.Second,
		lockDir: cfg.LockDir(),
	}
}

// Check looks for earlier successful rips of the same disc content. When the
// job carries no fingerprint there is nothing to compare and no lookup
// happens. Otherwise the most recent prior success with a confirmed title
// donates its identification (title, year, poster, video type, title flag)
// to the current job, and the full prior set is returned for the caller's
// duplicate handling.
func (g *Guard) Check(ctx context.Context, job *jobs.Job) (bool, []*jobs.Job, error) {
	if job == nil {
		return false, nil, errors.New("job is nil")
	}
	if strings.TrimSpace(job.Fingerprint) == "" {
		return false, nil, nil
	}

	priors, err := g.store.PriorSuccesses(ctx, job.Fingerprint)
	if err != nil {
		return false, nil, fmt.Errorf("find prior rips: %w", err)
	}
	if len(priors) == 0 {
		g.logger.Debug("no prior rips share fingerprint", logging.String("fingerprint", job.Fingerprint))
		return false, nil, nil
	}

	latest := priors[0]
	title := latest.Title
	if strings.TrimSpace(title) == "" {
		title = job.Label
	}
	update := jobs.JobUpdate{
		Title:        jobs.Ptr(title),
		Year:         jobs.Ptr(latest.Year),
		PosterURL:    jobs.Ptr(latest.PosterURL),
		VideoType:    jobs.Ptr(latest.VideoType),
		HasNiceTitle: jobs.Ptr(latest.HasNiceTitle),
	}
	if err := g.store.Apply(ctx, job, update); err != nil {
		return false, nil, fmt.Errorf("adopt prior identification: %w", err)
	}

	g.logger.Info("disc previously ripped",
		logging.Int64("prior_job", latest.ID),
		logging.String("title", job.DisplayTitle()),
		logging.Int("prior_count", len(priors)))
	return true, priors, nil
}

// CheckDevice aborts a run that was triggered twice for the same drive. Only
// unfinished jobs started inside the run window count; older unfinished jobs
// are the reconciliation sweep's problem, not a reason to refuse the drive.
func (g *Guard) CheckDevice(ctx context.Context, device string) error {
	cutoff := time.Now().UTC().Add(-g.window)
	running, err := g.store.RunningOnDevice(ctx, device, cutoff)
	if err != nil {
		return fmt.Errorf("query running jobs: %w", err)
	}
	if len(running) == 0 {
		return nil
	}
	g.logger.Error("rip already running on device",
		logging.String(logging.FieldDevice, device),
		logging.Int64("job_id", running[0].ID))
	return fmt.Errorf("job %d started on %s within the last %s: %w",
		running[0].ID, device, g.window, ErrDeviceBusy)
}

// LockDevice takes the per-device advisory lock for the duration of a rip
// run. The returned release function must be called once the run finishes.
// A lock already held by another process reports ErrDeviceBusy.
func (g *Guard) LockDevice(device string) (func(), error) {
	if err := os.MkdirAll(g.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(g.lockDir, deviceLockName(device))
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire device lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("device lock %s held by another run: %w", path, ErrDeviceBusy)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			g.logger.Warn("failed to release device lock", logging.Error(err))
		}
	}, nil
}

func deviceLockName(device string) string {
	trimmed := strings.Trim(strings.TrimSpace(device), "/")
	if trimmed == "" {
		trimmed = "device"
	}
	return strings.ReplaceAll(trimmed, "/", "-") + ".lock"
}
