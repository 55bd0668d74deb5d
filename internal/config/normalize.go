package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeDrive()
	c.normalizeWorkflow()
	c.normalizeRipping()
	c.normalizeLibrary()
	c.normalizeDaemon()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RawDir, err = expandPath(c.Paths.RawDir); err != nil {
		return fmt.Errorf("paths.raw_dir: %w", err)
	}
	if c.Paths.CompletedDir, err = expandPath(c.Paths.CompletedDir); err != nil {
		return fmt.Errorf("paths.completed_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path != "" {
		var err error
		if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
			return fmt.Errorf("database.path: %w", err)
		}
	}
	if c.Database.LockRetryAttempts <= 0 {
		c.Database.LockRetryAttempts = defaultLockRetryAttempts
	}
	if c.Database.LockRetryInterval <= 0 {
		c.Database.LockRetryInterval = defaultLockRetryInterval
	}
	return nil
}

func (c *Config) normalizeDrive() {
	c.Drive.Device = strings.TrimSpace(c.Drive.Device)
	if c.Drive.Device == "" {
		c.Drive.Device = defaultOpticalDrive
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ManualWaitTime <= 0 {
		c.Workflow.ManualWaitTime = defaultManualWaitTime
	}
	if c.Workflow.ManualWaitPoll <= 0 {
		c.Workflow.ManualWaitPoll = defaultManualWaitPoll
	}
	if c.Workflow.DuplicateRunWindow <= 0 {
		c.Workflow.DuplicateRunWindow = defaultDuplicateRunWindow
	}
	if c.Workflow.MinTrackLength < 0 {
		c.Workflow.MinTrackLength = 0
	}
}

func (c *Config) normalizeRipping() {
	c.Music.Tool = strings.TrimSpace(c.Music.Tool)
	if c.Music.Tool == "" {
		c.Music.Tool = defaultMusicTool
	}
	c.Music.ConfigFile = strings.TrimSpace(c.Music.ConfigFile)
	c.Video.Tool = strings.TrimSpace(c.Video.Tool)
	if c.Video.Tool == "" {
		c.Video.Tool = defaultVideoTool
	}
	if c.Video.RipTimeout <= 0 {
		c.Video.RipTimeout = defaultRipTimeout
	}
}

func (c *Config) normalizeLibrary() {
	c.Library.MoviesDir = strings.TrimSpace(c.Library.MoviesDir)
	if c.Library.MoviesDir == "" {
		c.Library.MoviesDir = defaultMoviesDir
	}
	c.Library.TVDir = strings.TrimSpace(c.Library.TVDir)
	if c.Library.TVDir == "" {
		c.Library.TVDir = defaultTVDir
	}
	c.Library.UnidentifiedDir = strings.TrimSpace(c.Library.UnidentifiedDir)
	if c.Library.UnidentifiedDir == "" {
		c.Library.UnidentifiedDir = defaultUnidentifiedDir
	}
	c.Library.ExtrasDir = strings.TrimSpace(c.Library.ExtrasDir)
	if c.Library.ExtrasDir == "" {
		c.Library.ExtrasDir = defaultExtrasDir
	}
	c.Library.Extension = strings.TrimPrefix(strings.TrimSpace(c.Library.Extension), ".")
	if c.Library.Extension == "" {
		c.Library.Extension = defaultExtension
	}
}

func (c *Config) normalizeDaemon() {
	c.Daemon.Monitor = strings.ToLower(strings.TrimSpace(c.Daemon.Monitor))
	if c.Daemon.Monitor == "" {
		c.Daemon.Monitor = defaultMonitor
	}
	if c.Daemon.PollInterval <= 0 {
		c.Daemon.PollInterval = defaultPollInterval
	}
	if c.Daemon.SweepInterval <= 0 {
		c.Daemon.SweepInterval = defaultSweepInterval
	}
	c.Daemon.RipCommand = strings.TrimSpace(c.Daemon.RipCommand)
	if c.Daemon.RipCommand == "" {
		c.Daemon.RipCommand = defaultRipCommand
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PLATTER_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultRequestTimeout
	}
	c.Notifications.Name = strings.TrimSpace(c.Notifications.Name)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
