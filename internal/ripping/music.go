package ripping

import (
	"context"
	"os"
	"strings"

	"github.com/google/shlex"

	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/services"
)

// ripMusic runs the configured audio CD ripper. The tool handles track
// splitting, tagging, and output layout itself; success is exit code zero,
// nothing else.
func (d *Dispatcher) ripMusic(ctx context.Context, job *jobs.Job) error {
	tool := strings.TrimSpace(d.cfg.Music.Tool)
	if tool == "" {
		tool = "abcde"
	}

	args := []string{"-d", job.Device}
	if configFile := strings.TrimSpace(d.cfg.Music.ConfigFile); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			args = append(args, "-c", configFile)
		}
	}
	extra, err := shlex.Split(d.cfg.Music.ExtraArgs)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "ripping", "music extra args",
			"Failed to parse music.extra_args", err)
	}
	args = append(args, extra...)

	if err := d.runTool(ctx, job, tool, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "ripping", "music rip",
			"Audio CD rip failed; check the ripper configuration and disc condition", err)
	}

	logging.WithContext(ctx, d.logger).Info("music rip finished", logging.Int64("job_id", job.ID))
	d.finishDisc(ctx, job)
	return nil
}
