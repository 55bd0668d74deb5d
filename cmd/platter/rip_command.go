package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"platter/internal/config"
	"platter/internal/dedupe"
	"platter/internal/disc"
	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/proc"
	"platter/internal/workflow"
)

func newRipCommand(ctx *commandContext) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "rip",
		Short: "Rip the disc in the drive end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(device)
			if target == "" {
				target = cfg.Drive.Device
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runRip(runCtx, cmd, cfg, ctx.resolvedConfigPath(), target)
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "Optical drive to rip from (defaults to drive.device)")
	return cmd
}

// runRip owns one disc from detection to a terminal job state. A non-nil
// return means the job did not reach success; the job row records the failure
// before the error surfaces, so the exit code and the store always agree.
func runRip(ctx context.Context, cmd *cobra.Command, cfg *config.Config, cfgPath, device string) error {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	guard := dedupe.New(store, cfg, logger)
	if err := guard.CheckDevice(ctx, device); err != nil {
		return err
	}
	release, err := guard.LockDevice(device)
	if err != nil {
		return err
	}
	defer release()

	out := cmd.OutOrStdout()
	status, err := disc.CheckDriveStatus(device)
	if err != nil {
		return err
	}
	if status != disc.DriveStatusDiscOK {
		fmt.Fprintf(out, "Waiting for disc in %s\n", device)
		if _, err := disc.WaitForDisc(ctx, device); err != nil {
			return err
		}
	}

	classification, err := disc.NewClassifier(logger).Classify(ctx, device)
	if err != nil {
		return fmt.Errorf("classify disc: %w", err)
	}

	identity, err := proc.NewChecker().Self()
	if err != nil {
		return fmt.Errorf("read process identity: %w", err)
	}

	job := &jobs.Job{
		Device:         device,
		Label:          classification.Label,
		DiscType:       classification.Type,
		PID:            os.Getpid(),
		PIDFingerprint: identity,
		RunID:          uuid.NewString(),
	}
	if err := store.Add(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("job-%d.log", job.ID))
	if err := store.Apply(ctx, job, jobs.JobUpdate{LogPath: jobs.Ptr(logPath)}); err != nil {
		return fmt.Errorf("record job log path: %w", err)
	}
	if handler, logFile, err := logging.NewFileHandler(logPath, cfg.Logging.Level); err != nil {
		logger.Warn("job log unavailable", logging.String("path", logPath), logging.Error(err))
	} else {
		defer logFile.Close()
		logger = logging.TeeLogger(logger, handler)
	}

	fmt.Fprintf(out, "Job %d: %s disc %q on %s\n", job.ID, job.DiscType, job.DisplayTitle(), device)

	machine := workflow.New(cfg, cfgPath, store, logger)
	if err := machine.Run(ctx, job); err != nil {
		return err
	}
	fmt.Fprintf(out, "Job %d finished: %s\n", job.ID, job.DisplayTitle())
	return nil
}
