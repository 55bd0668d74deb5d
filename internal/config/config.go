package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout used by the daemon and rip runner.
type Paths struct {
	RawDir       string `toml:"raw_dir"`
	CompletedDir string `toml:"completed_dir"`
	LogDir       string `toml:"log_dir"`
	StateDir     string `toml:"state_dir"`
}

// Database contains settings for the shared job store.
type Database struct {
	Path              string `toml:"path"`
	LockRetryAttempts int    `toml:"lock_retry_attempts"`
	LockRetryInterval int    `toml:"lock_retry_interval"`
}

// Drive contains optical drive settings.
type Drive struct {
	Device        string `toml:"device"`
	EjectOnFinish bool   `toml:"eject_on_finish"`
}

// Workflow contains job lifecycle settings.
type Workflow struct {
	ManualWait         bool `toml:"manual_wait"`
	ManualWaitTime     int  `toml:"manual_wait_time"`
	ManualWaitPoll     int  `toml:"manual_wait_poll"`
	AllowDuplicates    bool `toml:"allow_duplicates"`
	DuplicateRunWindow int  `toml:"duplicate_run_window"`
	MinTrackLength     int  `toml:"min_track_length"`
}

// Music contains settings for audio CD ripping.
type Music struct {
	Tool       string `toml:"tool"`
	ConfigFile string `toml:"config_file"`
	ExtraArgs  string `toml:"extra_args"`
}

// Data contains settings for raw data-disc imaging.
type Data struct {
	ExtraArgs string `toml:"extra_args"`
}

// Video contains settings for dvd/bluray ripping.
type Video struct {
	Tool       string `toml:"tool"`
	RipTimeout int    `toml:"rip_timeout"`
	ExtraArgs  string `toml:"extra_args"`
}

// Library contains the media library directory structure.
type Library struct {
	MoviesDir       string `toml:"movies_dir"`
	TVDir           string `toml:"tv_dir"`
	UnidentifiedDir string `toml:"unidentified_dir"`
	ExtrasDir       string `toml:"extras_dir"`
	Extension       string `toml:"extension"`
}

// Daemon contains disc detection and maintenance settings for platterd.
type Daemon struct {
	Monitor       string `toml:"monitor"`
	PollInterval  int    `toml:"poll_interval"`
	SweepInterval int    `toml:"sweep_interval"`
	RipCommand    string `toml:"rip_command"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Name           string `toml:"name"`
	IncludeJobID   bool   `toml:"include_job_id"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Platter.
//
// Configuration sections by subsystem:
//   - Paths: staging, library, log, and state directories
//   - Database: job store location and lock retry policy
//   - Drive: default optical device and eject behaviour
//   - Workflow: manual-override wait, duplicate policy, track thresholds
//   - Music/Data/Video: external rip tool selection per disc type
//   - Library: output directory structure (movies/tv subdirs)
//   - Daemon: disc monitor selection and sweep cadence
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Database      Database      `toml:"database"`
	Drive         Drive         `toml:"drive"`
	Workflow      Workflow      `toml:"workflow"`
	Music         Music         `toml:"music"`
	Data          Data          `toml:"data"`
	Video         Video         `toml:"video"`
	Library       Library       `toml:"library"`
	Daemon        Daemon        `toml:"daemon"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/platter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("platter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DatabasePath returns the resolved location of the job store.
func (c *Config) DatabasePath() string {
	if strings.TrimSpace(c.Database.Path) != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Paths.StateDir, "platter.db")
}

// LockDir returns the directory holding daemon and device lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// EnsureDirectories creates required directories for daemon operation.
// CompletedDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RawDir, c.Paths.LogDir, c.Paths.StateDir, c.LockDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.CompletedDir) != "" {
		_ = os.MkdirAll(c.Paths.CompletedDir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
