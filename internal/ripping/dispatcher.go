package ripping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"platter/internal/config"
	"platter/internal/disc"
	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/organizer"
	"platter/internal/services"
)

// ErrDuplicateDisc marks a rip refused because the disc was already ripped
// and duplicates are disallowed in configuration.
var ErrDuplicateDisc = errors.New("duplicate disc with duplicates disallowed")

// Dispatcher picks the rip strategy for a classified disc and drives it to
// completion.
type Dispatcher struct {
	cfg       *config.Config
	store     *jobs.Store
	logger    *slog.Logger
	organizer *organizer.Organizer
	ejector   disc.Ejector
	notifier  notifications.Service
}

// New constructs a Dispatcher with default collaborators.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Dispatcher {
	return NewWithDependencies(cfg, store, logger, disc.NewEjector(), notifications.NewService(cfg))
}

// NewWithDependencies allows injecting the ejector and notifier (used in tests).
func NewWithDependencies(cfg *config.Config, store *jobs.Store, logger *slog.Logger, ejector disc.Ejector, notifier notifications.Service) *Dispatcher {
	if ejector == nil {
		ejector = disc.NoopEjector{}
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Dispatcher{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "ripping"),
		organizer: organizer.New(cfg, logger),
		ejector:   ejector,
		notifier:  notifier,
	}
}

// Dispatch runs the rip strategy for the job's disc type. duplicate reports
// whether the duplicate guard matched a prior successful rip of this disc;
// it only affects the video destination collision policy.
func (d *Dispatcher) Dispatch(ctx context.Context, job *jobs.Job, duplicate bool) error {
	logger := logging.WithContext(ctx, d.logger)
	logger.Info("dispatching rip",
		logging.Int64("job_id", job.ID),
		logging.String("disc_type", string(job.DiscType)),
		logging.String("device", job.Device),
	)

	switch job.DiscType {
	case jobs.DiscMusic:
		return d.ripMusic(ctx, job)
	case jobs.DiscData:
		return d.ripData(ctx, job)
	case jobs.DiscDVD, jobs.DiscBluray:
		return d.ripVideo(ctx, job, duplicate)
	default:
		return services.Wrap(services.ErrValidation, "ripping", "dispatch",
			fmt.Sprintf("no rip strategy for disc type %q", job.DiscType), nil)
	}
}

// finishDisc ejects the disc after a successful rip when configured to.
func (d *Dispatcher) finishDisc(ctx context.Context, job *jobs.Job) {
	if !d.cfg.Drive.EjectOnFinish {
		return
	}
	if err := d.ejector.Eject(ctx, job.Device); err != nil {
		logging.WithContext(ctx, d.logger).Warn("failed to eject disc", logging.Error(err))
	}
}

// makeDir reports whether it created path. An existing directory is not an
// error; a failed create is fatal since it means the layout is unwritable.
func makeDir(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, services.Fatal("ripping", "create directory",
			fmt.Sprintf("Could not create %q; check filesystem permissions", path), err)
	}
	return true, nil
}

// timeSuffix returns a centisecond timestamp used to disambiguate colliding
// directories.
func timeSuffix() string {
	return strconv.FormatInt(time.Now().UnixMilli()/10, 10)
}
