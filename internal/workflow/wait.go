package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"platter/internal/config"
	"platter/internal/jobs"
	"platter/internal/logging"
)

// awaitManualTitle pauses the job in the waiting state until an operator
// submits a title, the wait ceiling elapses, or ctx ends. The override check
// runs before the first sleep, so a title already present costs no wait at
// all. Each tick re-reads the job row and the configuration file: UI or CLI
// writes land in the row, operator edits to the wait window land in the file
// and take effect on the next tick.
func (m *Machine) awaitManualTitle(ctx context.Context, logger *slog.Logger, job *jobs.Job) error {
	if !m.cfg.Workflow.ManualWait || job.HasNiceTitle {
		return nil
	}
	ceiling, poll := waitWindow(m.cfg)
	if ceiling <= 0 {
		return nil
	}

	if err := m.store.Apply(ctx, job, jobs.JobUpdate{Status: jobs.Ptr(jobs.StatusWaiting)}); err != nil {
		return fmt.Errorf("transition job %d to waiting: %w", job.ID, err)
	}
	logger.Info("waiting for manual title",
		logging.Duration("ceiling", ceiling),
		logging.Duration("poll", poll))

	waited := time.Duration(0)
	for {
		promoted, err := m.promoteManualTitle(ctx, job)
		if err != nil {
			return err
		}
		if promoted {
			logger.Info("manual title applied", logging.String("title", job.Title))
			return nil
		}
		ceiling, poll = m.reloadWaitWindow(logger, ceiling, poll)
		if waited >= ceiling {
			logger.Info("manual wait ceiling reached; proceeding with automatic identification")
			return nil
		}
		if err := m.sleep(ctx, poll); err != nil {
			return err
		}
		waited += poll
	}
}

// promoteManualTitle re-reads the job row and, when a pending manual title is
// present, promotes it to the real title and clears the pending value.
func (m *Machine) promoteManualTitle(ctx context.Context, job *jobs.Job) (bool, error) {
	if err := m.store.Rollback(ctx, job); err != nil {
		return false, fmt.Errorf("re-read job %d: %w", job.ID, err)
	}
	title := strings.TrimSpace(job.ManualTitle)
	if title == "" {
		return false, nil
	}
	update := jobs.JobUpdate{
		Title:        jobs.Ptr(title),
		ManualTitle:  jobs.Ptr(""),
		Overridden:   jobs.Ptr(true),
		HasNiceTitle: jobs.Ptr(true),
	}
	if err := m.store.Apply(ctx, job, update); err != nil {
		return false, fmt.Errorf("apply manual title to job %d: %w", job.ID, err)
	}
	return true, nil
}

// reloadWaitWindow re-reads the configuration file backing this machine. A
// missing or unparseable file keeps the current window.
func (m *Machine) reloadWaitWindow(logger *slog.Logger, ceiling, poll time.Duration) (time.Duration, time.Duration) {
	if m.cfgPath == "" {
		return ceiling, poll
	}
	fresh, _, exists, err := config.Load(m.cfgPath)
	if err != nil || !exists {
		if err != nil {
			logger.Debug("config reload failed during manual wait", logging.Error(err))
		}
		return ceiling, poll
	}
	return waitWindow(fresh)
}

func waitWindow(cfg *config.Config) (ceiling, poll time.Duration) {
	ceiling = time.Duration(cfg.Workflow.ManualWaitTime) * time.Second
	poll = time.Duration(cfg.Workflow.ManualWaitPoll) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return ceiling, poll
}
