package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hbomb79/Hermes/internal/api"
	"github.com/hbomb79/Hermes/internal/extract"
	"github.com/hbomb79/Hermes/internal/lifecycle"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// HermesConfig is the struct used to contain the
// various user config supplied by file, or via the
// environment.
type HermesConfig struct {
	Lifecycle lifecycle.Config `yaml:"lifecycle"`
	Extract   extract.Config   `yaml:"extract"`
	Rest      api.RestConfig   `yaml:"rest"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"50"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"28"`
	Compress   bool   `yaml:"compress" env:"LOG_COMPRESS"`
}

func (config LoggingConfig) FileSink() logger.FileSinkConfig {
	return logger.FileSinkConfig{
		Path:       config.File,
		MaxSizeMB:  config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAgeDays: config.MaxAgeDays,
		Compress:   config.Compress,
	}
}

// LoadConfig reads the configuration for Hermes. Variables from a .env file in
// the working directory are loaded first (without overriding the existing
// environment), then the YAML file at configPath is read if it exists. The
// environment always takes precedence over the file.
func LoadConfig(configPath string) (HermesConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return HermesConfig{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var config HermesConfig
	if _, err := os.Stat(configPath); err == nil {
		if err := config.LoadFromFile(configPath); err != nil {
			return HermesConfig{}, err
		}

		return config, nil
	}

	log.Emit(logger.INFO, "No config file found at '%s', using environment only\n", configPath)
	if err := cleanenv.ReadEnv(&config); err != nil {
		return HermesConfig{}, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return config, nil
}

// Loads a configuration file formatted in YAML in to a
// HermesConfig struct, applying environment overrides
func (config *HermesConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	return nil
}
