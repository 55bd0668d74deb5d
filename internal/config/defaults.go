package config

const (
	defaultRawDir             = "~/.local/share/platter/raw"
	defaultCompletedDir       = "~/media"
	defaultLogDir             = "~/.local/share/platter/logs"
	defaultStateDir           = "~/.local/share/platter"
	defaultLockRetryAttempts  = 90
	defaultLockRetryInterval  = 1
	defaultOpticalDrive       = "/dev/sr0"
	defaultManualWaitTime     = 600
	defaultManualWaitPoll     = 5
	defaultDuplicateRunWindow = 60
	defaultMinTrackLength     = 600
	defaultMusicTool          = "abcde"
	defaultVideoTool          = "makemkvcon"
	defaultRipTimeout         = 10800
	defaultMoviesDir          = "movies"
	defaultTVDir              = "tv"
	defaultUnidentifiedDir    = "unidentified"
	defaultExtrasDir          = "extras"
	defaultExtension          = "mkv"
	defaultMonitor            = "udev"
	defaultPollInterval       = 5
	defaultSweepInterval      = 300
	defaultRipCommand         = "platter"
	defaultRequestTimeout     = 10
	defaultNotifyName         = "platter"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RawDir:       defaultRawDir,
			CompletedDir: defaultCompletedDir,
			LogDir:       defaultLogDir,
			StateDir:     defaultStateDir,
		},
		Database: Database{
			LockRetryAttempts: defaultLockRetryAttempts,
			LockRetryInterval: defaultLockRetryInterval,
		},
		Drive: Drive{
			Device:        defaultOpticalDrive,
			EjectOnFinish: true,
		},
		Workflow: Workflow{
			ManualWaitTime:     defaultManualWaitTime,
			ManualWaitPoll:     defaultManualWaitPoll,
			DuplicateRunWindow: defaultDuplicateRunWindow,
			MinTrackLength:     defaultMinTrackLength,
		},
		Music: Music{
			Tool: defaultMusicTool,
		},
		Video: Video{
			Tool:       defaultVideoTool,
			RipTimeout: defaultRipTimeout,
		},
		Library: Library{
			MoviesDir:       defaultMoviesDir,
			TVDir:           defaultTVDir,
			UnidentifiedDir: defaultUnidentifiedDir,
			ExtrasDir:       defaultExtrasDir,
			Extension:       defaultExtension,
		},
		Daemon: Daemon{
			Monitor:       defaultMonitor,
			PollInterval:  defaultPollInterval,
			SweepInterval: defaultSweepInterval,
			RipCommand:    defaultRipCommand,
		},
		Notifications: Notifications{
			RequestTimeout: defaultRequestTimeout,
			Name:           defaultNotifyName,
			IncludeJobID:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
