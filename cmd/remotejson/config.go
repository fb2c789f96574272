package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maruel/remotejson/internal/blobstore"
	"gopkg.in/yaml.v3"
)

// Config holds the settings read from config.yaml in the data directory.
// Command line flags take precedence over it.
type Config struct {
	// Backend selects the blob store: "dir", "git" or "leveldb".
	Backend string `yaml:"backend"`
	// Prefix is the directory prepended to newly generated blob paths.
	Prefix string `yaml:"prefix"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

const configFile = "config.yaml"

// DefaultConfig returns the settings used when config.yaml is missing.
func DefaultConfig() Config {
	return Config{Backend: "dir", LogLevel: "info"}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	switch c.Backend {
	case "dir", "git", "leveldb":
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.Prefix != "" {
		if err := blobstore.ValidatePath(c.Prefix); err != nil {
			return fmt.Errorf("invalid prefix: %w", err)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// loadConfig reads config.yaml from dataDir. Missing keys keep their
// default.
func loadConfig(dataDir string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(filepath.Join(dataDir, configFile)) //nolint:gosec // G304: path is constructed from dataDir flag
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", configFile, err)
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}
