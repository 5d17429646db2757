package config

import (
	"errors"
	"fmt"
	"strings"

	"squeeze/internal/transcode"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if c.Archive.TimeoutSeconds <= 0 {
		return errors.New("archive.timeout_seconds must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validateEncoding() error {
	if _, err := transcode.ParseProfile(c.Encoding.Codec); err != nil {
		return fmt.Errorf("encoding.codec: %w", err)
	}
	if q := c.Encoding.Quality; q != 0 && (q < 1 || q > 100) {
		return fmt.Errorf("encoding.quality must be between 1 and 100, got %d", q)
	}
	if c.Encoding.Workers < 1 {
		return fmt.Errorf("encoding.workers must be at least 1, got %d", c.Encoding.Workers)
	}
	if c.Encoding.MaxSize < 0 {
		return fmt.Errorf("encoding.max_size must not be negative, got %d", c.Encoding.MaxSize)
	}
	if c.Encoding.TaskTimeoutSeconds <= 0 {
		return errors.New("encoding.task_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) normalize() error {
	c.Encoding.Codec = strings.ToLower(strings.TrimSpace(c.Encoding.Codec))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Archive.ScratchDir != "" {
		expanded, err := expandPath(c.Archive.ScratchDir)
		if err != nil {
			return fmt.Errorf("archive.scratch_dir: %w", err)
		}
		c.Archive.ScratchDir = expanded
	}
	return nil
}
