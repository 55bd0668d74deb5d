package ripping

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"platter/internal/identification"
	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/media"
	"platter/internal/organizer"
	"platter/internal/services"
)

// ripVideo runs the configured video ripper into a collision-checked staging
// directory, then files the output into the library and records one track
// row per ripped file.
func (d *Dispatcher) ripVideo(ctx context.Context, job *jobs.Job, duplicate bool) error {
	dest, err := d.prepareDestination(ctx, job, duplicate)
	if err != nil {
		return err
	}

	tool := strings.TrimSpace(d.cfg.Video.Tool)
	if tool == "" {
		tool = "makemkvcon"
	}
	args := []string{
		"mkv",
		"dev:" + job.Device,
		"all",
		dest,
		fmt.Sprintf("--minlength=%d", d.cfg.Workflow.MinTrackLength),
		"-r",
	}
	extra, err := shlex.Split(d.cfg.Video.ExtraArgs)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "ripping", "video extra args",
			"Failed to parse video.extra_args", err)
	}
	args = append(args, extra...)

	ripCtx := ctx
	if timeout := d.cfg.Video.RipTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ripCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	if err := d.runTool(ripCtx, job, tool, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "ripping", "video rip",
			"Video rip failed; check the ripper installation and disc readability", err)
	}

	return d.finalizeVideo(ctx, job, dest)
}

// prepareDestination creates the rip output directory for a video disc. A
// leftover directory from an earlier rip of the same title is the collision
// signal that triggers the duplicate policy.
func (d *Dispatcher) prepareDestination(ctx context.Context, job *jobs.Job, duplicate bool) (string, error) {
	logger := logging.WithContext(ctx, d.logger)

	dest := filepath.Join(d.cfg.Paths.RawDir, organizer.TitleDirectory(job))
	created, err := makeDir(dest)
	if err != nil {
		return "", err
	}
	if created {
		return dest, nil
	}

	logger.Info("rip destination already exists",
		logging.String("path", dest),
		logging.Bool("allow_duplicates", d.cfg.Workflow.AllowDuplicates),
		logging.Bool("duplicate", duplicate),
	)

	if !d.cfg.Workflow.AllowDuplicates && duplicate {
		if err := d.notifier.DuplicateDisc(ctx, job); err != nil {
			logger.Warn("duplicate disc notification failed", logging.Error(err))
		}
		if err := d.ejector.Eject(ctx, job.Device); err != nil {
			logger.Warn("failed to eject duplicate disc", logging.Error(err))
		}
		dupErr := fmt.Errorf("disc %q already ripped: %w", job.DisplayTitle(), ErrDuplicateDisc)
		if markErr := d.store.MarkFailed(ctx, job, dupErr.Error()); markErr != nil {
			logger.Error("failed to record duplicate refusal", logging.Error(markErr))
		}
		return "", dupErr
	}

	dest += "_" + timeSuffix()
	created, err = makeDir(dest)
	if err == nil && !created {
		err = services.Fatal("ripping", "create rip destination",
			fmt.Sprintf("Could not create %q; possible permission problem", dest), nil)
	}
	if err != nil {
		if notifyErr := d.notifier.FatalError(ctx, job, "Could not create the rip destination directory"); notifyErr != nil {
			logger.Warn("fatal error notification failed", logging.Error(notifyErr))
		}
		if markErr := d.store.MarkFailed(ctx, job, err.Error()); markErr != nil {
			logger.Error("failed to record destination failure", logging.Error(markErr))
		}
		return "", err
	}
	return dest, nil
}

func (d *Dispatcher) finalizeVideo(ctx context.Context, job *jobs.Job, dest string) error {
	logger := logging.WithContext(ctx, d.logger)

	sources, err := ripOutputs(dest)
	if err != nil {
		return services.Wrap(services.ErrTransient, "ripping", "collect rip output",
			"Failed to read the rip destination", err)
	}
	if len(sources) == 0 {
		return services.Wrap(services.ErrExternalTool, "ripping", "collect rip output",
			fmt.Sprintf("Video ripper reported success but produced no files in %q", dest), nil)
	}

	result, err := d.organizer.Place(ctx, job, sources)
	if err != nil {
		return services.Wrap(services.ErrTransient, "ripping", "organize rip output",
			"Failed to move ripped files into the library", err)
	}

	for i, placement := range result.Placements {
		if err := d.recordTrack(ctx, job, i+1, placement); err != nil {
			logger.Warn("failed to record track",
				logging.String("file", placement.Destination), logging.Error(err))
		}
	}

	logger.Info("video rip finished",
		logging.Int64("job_id", job.ID),
		logging.String("directory", result.Directory),
		logging.Int("files", len(result.Placements)),
	)
	d.finishDisc(ctx, job)
	return nil
}

// recordTrack probes one placed file and stores its track row. Skipped
// placements still get a row; the probe runs against wherever the file
// actually lives.
func (d *Dispatcher) recordTrack(ctx context.Context, job *jobs.Job, number int, placement organizer.Placement) error {
	target := placement.Destination
	if placement.Skipped {
		target = placement.Source
	}
	probe, err := media.Inspect(ctx, "", target)
	if err != nil {
		return fmt.Errorf("probe %s: %w", target, err)
	}

	basename := identification.Display(job.Title, job.Year)
	if basename == "" {
		basename = job.DisplayTitle()
	}

	seconds := int(probe.DurationSeconds())
	track := &jobs.Track{
		JobID:       job.ID,
		TrackNumber: strconv.Itoa(number),
		Length:      seconds,
		AspectRatio: probe.AspectRatio(),
		FPS:         probe.FrameRate(),
		MainFeature: placement.MainFeature,
		Source:      strings.TrimSpace(d.cfg.Video.Tool),
		Basename:    basename,
		Filename:    filepath.Base(placement.Destination),
		Ripped:      seconds > d.cfg.Workflow.MinTrackLength,
	}
	return d.store.AddTrack(ctx, track)
}

// ripOutputs lists the regular files the ripper wrote.
func ripOutputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
