package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDrive(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRipping(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RawDir) == "" {
		return errors.New("paths.raw_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CompletedDir) == "" {
		return errors.New("paths.completed_dir must be set")
	}
	if c.Paths.RawDir == c.Paths.CompletedDir {
		return errors.New("paths.raw_dir and paths.completed_dir must differ")
	}
	return nil
}

func (c *Config) validateDrive() error {
	if !strings.HasPrefix(c.Drive.Device, "/dev/") {
		return fmt.Errorf("drive.device must be a device path, got %q", c.Drive.Device)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"database.lock_retry_attempts":  c.Database.LockRetryAttempts,
		"database.lock_retry_interval":  c.Database.LockRetryInterval,
		"workflow.manual_wait_time":     c.Workflow.ManualWaitTime,
		"workflow.manual_wait_poll":     c.Workflow.ManualWaitPoll,
		"workflow.duplicate_run_window": c.Workflow.DuplicateRunWindow,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateRipping() error {
	if strings.TrimSpace(c.Music.Tool) == "" {
		return errors.New("music.tool must be set")
	}
	if strings.TrimSpace(c.Video.Tool) == "" {
		return errors.New("video.tool must be set")
	}
	if c.Video.RipTimeout <= 0 {
		return errors.New("video.rip_timeout must be positive (seconds)")
	}
	for key, value := range map[string]string{
		"music.extra_args": c.Music.ExtraArgs,
		"data.extra_args":  c.Data.ExtraArgs,
		"video.extra_args": c.Video.ExtraArgs,
	} {
		if _, err := shlex.Split(value); err != nil {
			return fmt.Errorf("%s is not a valid argument string: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Library.MoviesDir == "" {
		return errors.New("library.movies_dir must be set")
	}
	if c.Library.TVDir == "" {
		return errors.New("library.tv_dir must be set")
	}
	if c.Library.UnidentifiedDir == "" {
		return errors.New("library.unidentified_dir must be set")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	switch c.Daemon.Monitor {
	case "udev", "poll":
	default:
		return fmt.Errorf("daemon.monitor must be \"udev\" or \"poll\", got %q", c.Daemon.Monitor)
	}
	if _, err := shlex.Split(c.Daemon.RipCommand); err != nil {
		return fmt.Errorf("daemon.rip_command is not a valid command string: %w", err)
	}
	return ensurePositiveMap(map[string]int{
		"daemon.poll_interval":  c.Daemon.PollInterval,
		"daemon.sweep_interval": c.Daemon.SweepInterval,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
