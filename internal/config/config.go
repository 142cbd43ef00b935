// Package config loads the intake.yaml runtime configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the file omits a value or no file is given.
const (
	DefaultStoragePath  = "./data/incoming"
	DefaultDatabasePath = "./intake.db"
	DefaultBatchSize    = 100
	DefaultConcurrency  = 5
)

// Config is the full runtime configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Batch    BatchConfig    `yaml:"batch"`
}

// StorageConfig locates the candidate-file area. Only local filesystem
// storage is supported; the type field exists so an object-storage
// adapter can be added without a config format change.
type StorageConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BatchConfig holds the sweep knobs.
type BatchConfig struct {
	Size        int `yaml:"size"`
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Storage:  StorageConfig{Type: "local", Path: DefaultStoragePath},
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Batch:    BatchConfig{Size: DefaultBatchSize, Concurrency: DefaultConcurrency},
	}
}

// Load reads a yaml config file, filling omitted values with defaults.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.Type != "local" {
		return fmt.Errorf("unsupported storage type %q: only local is implemented", c.Storage.Type)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch size must be greater than 0, got %d", c.Batch.Size)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch concurrency must be greater than 0, got %d", c.Batch.Concurrency)
	}
	return nil
}
