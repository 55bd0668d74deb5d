package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"platter/internal/config"
	"platter/internal/dedupe"
	"platter/internal/disc/fingerprint"
	"platter/internal/identification"
	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/ripping"
	"platter/internal/services"
)

// Dispatcher runs the rip strategy for a classified disc.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *jobs.Job, duplicate bool) error
}

// Fingerprinter computes a content-identity fingerprint for the disc in the
// given device.
type Fingerprinter func(ctx context.Context, device string, discType jobs.DiscType) (string, error)

// Machine drives one job through its lifecycle. Transitions go through the
// store before the next step begins; nothing is held only in memory across
// an external call.
type Machine struct {
	cfg         *config.Config
	cfgPath     string
	store       *jobs.Store
	logger      *slog.Logger
	guard       *dedupe.Guard
	dispatcher  Dispatcher
	notifier    notifications.Service
	fingerprint Fingerprinter
	sleep       func(ctx context.Context, d time.Duration) error
}

// New builds a machine with the full production wiring. cfgPath is the
// resolved configuration file path, re-read on every manual-wait tick; empty
// means the configuration is not file-backed and reloads are skipped.
func New(cfg *config.Config, cfgPath string, store *jobs.Store, logger *slog.Logger) *Machine {
	return NewWithDependencies(cfg, cfgPath, store, logger, nil, nil, nil)
}

// NewWithDependencies builds a machine with injectable collaborators. Nil
// values fall back to the production implementations.
func NewWithDependencies(
	cfg *config.Config,
	cfgPath string,
	store *jobs.Store,
	logger *slog.Logger,
	dispatcher Dispatcher,
	notifier notifications.Service,
	fp Fingerprinter,
) *Machine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if dispatcher == nil {
		dispatcher = ripping.NewWithDependencies(cfg, store, logger, nil, notifier)
	}
	if fp == nil {
		fp = fingerprint.Compute
	}
	return &Machine{
		cfg:         cfg,
		cfgPath:     strings.TrimSpace(cfgPath),
		store:       store,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		guard:       dedupe.New(store, cfg, logger),
		dispatcher:  dispatcher,
		notifier:    notifier,
		fingerprint: fp,
		sleep:       sleepFor,
	}
}

// Run drives job to a terminal state. The returned error is nil exactly when
// the job reached success. A dispatcher failure is recorded on the row before
// it is returned, so a fatal error reaches the supervisor only after the job
// already says fail.
func (m *Machine) Run(ctx context.Context, job *jobs.Job) error {
	if job == nil {
		return services.Wrap(services.ErrValidation, "workflow", "run", "job is nil", nil)
	}
	logger := m.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldDevice, job.Device),
	)
	logger.Info("job lifecycle started",
		logging.String(logging.FieldDiscType, string(job.DiscType)),
		logging.String("label", job.Label))

	duplicate := m.identifyContent(ctx, logger, job)

	if job.DiscType == jobs.DiscUnknown {
		if err := m.notifier.UnknownDisc(ctx, job); err != nil {
			logger.Debug("unknown-disc notification failed", logging.Error(err))
		}
		failErr := services.Wrap(services.ErrValidation, "workflow", "classify",
			fmt.Sprintf("disc in %s could not be classified; rip refused", job.Device), nil)
		if err := m.store.MarkFailed(ctx, job, failErr.Error()); err != nil {
			logger.Error("failed to record unknown-disc failure", logging.Error(err))
		}
		return failErr
	}
	if err := m.notifier.RipStarted(ctx, job); err != nil {
		logger.Debug("rip-started notification failed", logging.Error(err))
	}

	if err := m.awaitManualTitle(ctx, logger, job); err != nil {
		return err
	}

	if err := m.store.Apply(ctx, job, jobs.JobUpdate{Status: jobs.Ptr(jobs.StatusActive)}); err != nil {
		return fmt.Errorf("transition job %d to active: %w", job.ID, err)
	}

	if err := m.dispatcher.Dispatch(ctx, job, duplicate); err != nil {
		return m.finishFailed(ctx, logger, job, err)
	}
	return m.finishSuccess(ctx, logger, job)
}

// identifyContent derives a working title from the disc label, computes the
// content fingerprint for video discs, and asks the dedupe guard about prior
// rips. Identification is best effort: a probe or lookup failure downgrades
// to "not a duplicate" instead of killing the run.
func (m *Machine) identifyContent(ctx context.Context, logger *slog.Logger, job *jobs.Job) bool {
	if strings.TrimSpace(job.Title) == "" {
		if title, year := identification.FromLabel(job.Label); title != "" {
			// A label-derived title is a guess, so has_nice_title stays
			// unset; only a prior identified rip or a manual override
			// confirms it.
			update := jobs.JobUpdate{Title: jobs.Ptr(title)}
			if year != "" {
				update.Year = jobs.Ptr(year)
			}
			if err := m.store.Apply(ctx, job, update); err != nil {
				logger.Warn("could not persist derived title", logging.Error(err))
			}
		}
	}

	if job.DiscType.Video() && strings.TrimSpace(job.Fingerprint) == "" {
		fp, err := m.fingerprint(ctx, job.Device, job.DiscType)
		if err != nil {
			logger.Warn("content fingerprint failed; duplicate detection skipped", logging.Error(err))
		} else if err := m.store.Apply(ctx, job, jobs.JobUpdate{Fingerprint: jobs.Ptr(fp)}); err != nil {
			logger.Warn("could not persist content fingerprint", logging.Error(err))
		}
	}

	duplicate, priors, err := m.guard.Check(ctx, job)
	if err != nil {
		logger.Warn("duplicate check failed; treating disc as new", logging.Error(err))
		return false
	}
	if duplicate {
		logger.Info("disc content matches earlier rips",
			logging.Int("prior_rips", len(priors)),
			logging.String("title", job.DisplayTitle()))
	}
	return duplicate
}

func (m *Machine) finishSuccess(ctx context.Context, logger *slog.Logger, job *jobs.Job) error {
	if err := m.store.MarkSuccess(ctx, job); err != nil {
		return fmt.Errorf("record job %d success: %w", job.ID, err)
	}
	logger.Info("job finished", logging.String("title", job.DisplayTitle()))
	if err := m.notifier.RipFinished(ctx, job); err != nil {
		logger.Debug("rip-finished notification failed", logging.Error(err))
	}
	return nil
}

// finishFailed records the dispatcher failure on the row, then hands the
// error back to the caller. The dispatcher may already have failed the job
// itself; rewriting the same terminal status is a legal no-op transition.
func (m *Machine) finishFailed(ctx context.Context, logger *slog.Logger, job *jobs.Job, ripErr error) error {
	message := strings.TrimSpace(ripErr.Error())
	if err := m.store.MarkFailed(ctx, job, message); err != nil {
		logger.Error("failed to record rip failure", logging.Error(err))
	}
	logger.Error("job failed",
		logging.Error(ripErr),
		logging.Bool("fatal", services.IsFatal(ripErr)))
	if err := m.notifier.RipFailed(ctx, job, message); err != nil {
		logger.Debug("rip-failed notification failed", logging.Error(err))
	}
	return ripErr
}

func sleepFor(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
