package ripping

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/shlex"

	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/organizer"
	"platter/internal/services"
	"platter/internal/textutil"
)

// ripData images the device with dd into a staging directory, then moves the
// finished image into the library as <label>.iso. The staging tree is removed
// in every outcome; a failed image additionally fails the job right here so
// the partial never looks like a finished rip.
func (d *Dispatcher) ripData(ctx context.Context, job *jobs.Job) error {
	logger := logging.WithContext(ctx, d.logger)

	label := textutil.SanitizeFileName(job.Label)
	if label == "" {
		label = "data-disc"
	}

	staging := filepath.Join(d.cfg.Paths.RawDir, label)
	finalName := label
	created, err := makeDir(staging)
	if err != nil {
		return err
	}
	if !created {
		suffix := timeSuffix()
		staging = filepath.Join(d.cfg.Paths.RawDir, label+"_"+suffix)
		finalName = label + "_" + suffix
		created, err = makeDir(staging)
		if err != nil {
			return err
		}
		if !created {
			return services.Fatal("ripping", "create staging directory",
				fmt.Sprintf("Could not create data staging directory %q", staging), nil)
		}
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			logger.Warn("failed to remove data staging directory",
				logging.String("path", staging), logging.Error(err))
		}
	}()

	partial := filepath.Join(staging, label+".part")
	args := []string{"if=" + job.Device, "of=" + partial}
	extra, err := shlex.Split(d.cfg.Data.ExtraArgs)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "ripping", "data extra args",
			"Failed to parse data.extra_args", err)
	}
	args = append(args, extra...)

	logger.Info("imaging data disc",
		logging.Int64("job_id", job.ID),
		logging.String("destination", partial),
	)
	if err := d.runTool(ctx, job, "dd", args...); err != nil {
		if removeErr := os.Remove(partial); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			logger.Warn("failed to remove partial image", logging.Error(removeErr))
		}
		ripErr := services.Wrap(services.ErrExternalTool, "ripping", "data rip",
			"Data disc imaging failed", err)
		if markErr := d.store.MarkFailed(ctx, job, ripErr.Error()); markErr != nil {
			logger.Error("failed to record data rip failure", logging.Error(markErr))
		}
		return ripErr
	}

	finalDir := filepath.Join(d.cfg.Paths.CompletedDir, d.organizer.Subfolder(job), finalName)
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return services.Fatal("ripping", "create final directory",
			fmt.Sprintf("Could not create %q", finalDir), err)
	}
	finalFile := filepath.Join(finalDir, label+".iso")
	if err := organizer.MoveFile(partial, finalFile); err != nil {
		return services.Wrap(services.ErrTransient, "ripping", "finalize data image",
			"Failed to move the completed image into the library", err)
	}

	logger.Info("data rip finished",
		logging.Int64("job_id", job.ID),
		logging.String("image", finalFile),
	)
	d.finishDisc(ctx, job)
	return nil
}
