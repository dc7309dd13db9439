package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	// The directory produced audio files are written to. Every entry
	// in this directory is considered disposable: it is emptied on
	// startup, and expired files are removed from it.
	DownloadPath string `yaml:"download_dir" env:"DOWNLOAD_DIR" env-default:"downloads"`

	// How long a produced file may live before it is deleted, both by
	// the per-file expiry timer and by the periodic sweep.
	RetentionSeconds int `yaml:"retention_seconds" env:"RETENTION_SECONDS" env-default:"600"`

	// A sweep of the download directory is performed on this interval
	// irrespective of the per-file timers, to catch files whose timer
	// never fired (e.g. after a restart).
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds" env:"SWEEP_INTERVAL_SECONDS" env-default:"300"`

	// Glob matched against the base name of each entry during a sweep (and
	// against files detected by the directory watcher).
	SweepPattern string `yaml:"sweep_pattern" env:"SWEEP_PATTERN" env-default:"*.mp3"`

	// When enabled, files created in the download directory are registered
	// for expiry as soon as they appear.
	WatchDirectory bool `yaml:"watch_directory" env:"WATCH_DIRECTORY" env-default:"true"`
}

func (config Config) Retention() time.Duration {
	return time.Duration(config.RetentionSeconds) * time.Second
}

func (config Config) SweepInterval() time.Duration {
	return time.Duration(config.SweepIntervalSeconds) * time.Second
}

func (config Config) validate() error {
	if config.DownloadPath == "" {
		return errors.New("download path must not be empty")
	}
	if config.RetentionSeconds < 1 {
		return fmt.Errorf("retention of %ds is illegal, must be at least one second", config.RetentionSeconds)
	}
	if config.SweepIntervalSeconds < 1 {
		return fmt.Errorf("sweep interval of %ds is illegal, must be at least one second", config.SweepIntervalSeconds)
	}
	if _, err := filepath.Match(config.SweepPattern, ""); err != nil {
		return fmt.Errorf("sweep pattern '%s' is malformed: %w", config.SweepPattern, err)
	}

	if info, err := os.Stat(config.DownloadPath); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("download path '%s' is not a directory", config.DownloadPath)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("download path '%s' could not be accessed: %w", config.DownloadPath, err)
	}

	return nil
}
