// Package reconcile returns the job table to truth after crashes: unfinished
// jobs whose recorded process is gone, or whose PID now belongs to a
// different process, are failed so they stop looking active forever.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/proc"
)

// Store is the slice of the job store the sweeper needs.
type Store interface {
	NonTerminal(ctx context.Context) ([]*jobs.Job, error)
	MarkFailed(ctx context.Context, job *jobs.Job, message string) error
}

// Sweeper detects and fails abandoned jobs.
type Sweeper struct {
	store   Store
	checker proc.Checker
	logger  *slog.Logger
}

// New builds a sweeper using the given liveness checker.
func New(store Store, checker proc.Checker, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		store:   store,
		checker: checker,
		logger:  logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Sweep fails every unfinished job whose owning process is dead or replaced
// and returns how many jobs were corrected. Jobs whose process still answers
// with the recorded identity are left untouched, so the sweep is safe to run
// while rips are in flight.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	unfinished, err := s.store.NonTerminal(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinished jobs: %w", err)
	}

	corrected := 0
	for _, job := range unfinished {
		reason, abandoned := s.abandoned(job)
		if !abandoned {
			s.logger.Debug("job still running",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Int("pid", job.PID))
			continue
		}
		if err := s.store.MarkFailed(ctx, job, reason); err != nil {
			return corrected, fmt.Errorf("fail abandoned job %d: %w", job.ID, err)
		}
		corrected++
		s.logger.Info("abandoned job failed",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Int("pid", job.PID),
			logging.String("reason", reason))
	}
	return corrected, nil
}

func (s *Sweeper) abandoned(job *jobs.Job) (string, bool) {
	if !s.checker.Alive(job.PID) {
		return fmt.Sprintf("process %d no longer running", job.PID), true
	}
	fingerprint, err := s.checker.Fingerprint(job.PID)
	if err != nil {
		// The process vanished between the two probes.
		return fmt.Sprintf("process %d no longer running", job.PID), true
	}
	if job.PIDFingerprint != "" && fingerprint != job.PIDFingerprint {
		return fmt.Sprintf("pid %d reused by another process", job.PID), true
	}
	return "", false
}
