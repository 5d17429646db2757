// Package config loads squeeze settings from defaults, a TOML file and
// SQUEEZE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"squeeze/internal/transcode"
)

// Encoding holds the conversion knobs.
type Encoding struct {
	Codec string `toml:"codec"`
	// Quality is the 1-100 dial; 0 picks the codec default.
	Quality int `toml:"quality"`
	Workers int `toml:"workers"`
	// MaxSize caps the longest image side in pixels; 0 disables resizing.
	MaxSize            int `toml:"max_size"`
	TaskTimeoutSeconds int `toml:"task_timeout_seconds"`
}

// Archive holds archive-mode settings.
type Archive struct {
	ScratchDir     string `toml:"scratch_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Tools names the external executables.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Magick  string `toml:"magick"`
	Unar    string `toml:"unar"`
	Lsar    string `toml:"lsar"`
	SevenZ  string `toml:"7z"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for squeeze.
type Config struct {
	Encoding Encoding `toml:"encoding"`
	Archive  Archive  `toml:"archive"`
	Tools    Tools    `toml:"tools"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load resolves defaults, the config file at path (or the default location),
// a .env file in the working directory and SQUEEZE_* variables, in that
// order. It returns the resolved file path and whether it existed.
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
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv exports variables from path without overriding the real
// environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	str(envPrefix+"CODEC", &c.Encoding.Codec)
	str(envPrefix+"SCRATCH_DIR", &c.Archive.ScratchDir)
	str(envPrefix+"FFMPEG", &c.Tools.FFmpeg)
	str(envPrefix+"FFPROBE", &c.Tools.FFprobe)
	str(envPrefix+"MAGICK", &c.Tools.Magick)
	str(envPrefix+"UNAR", &c.Tools.Unar)
	str(envPrefix+"LSAR", &c.Tools.Lsar)
	str(envPrefix+"7Z", &c.Tools.SevenZ)
	str(envPrefix+"LOG_LEVEL", &c.Logging.Level)
	str(envPrefix+"LOG_FORMAT", &c.Logging.Format)

	for key, dst := range map[string]*int{
		envPrefix + "QUALITY":         &c.Encoding.Quality,
		envPrefix + "WORKERS":         &c.Encoding.Workers,
		envPrefix + "MAX_SIZE":        &c.Encoding.MaxSize,
		envPrefix + "TASK_TIMEOUT":    &c.Encoding.TaskTimeoutSeconds,
		envPrefix + "ARCHIVE_TIMEOUT": &c.Archive.TimeoutSeconds,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Profile returns the parsed codec profile. Valid after Validate.
func (c *Config) Profile() transcode.Profile {
	p, err := transcode.ParseProfile(c.Encoding.Codec)
	if err != nil {
		return transcode.ProfileNVENC
	}
	return p
}

// EffectiveQuality resolves a zero quality to the codec default.
func (c *Config) EffectiveQuality() int {
	if c.Encoding.Quality == 0 {
		return transcode.DefaultQuality(c.Profile())
	}
	return c.Encoding.Quality
}

// TaskTimeout bounds one encode call.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Encoding.TaskTimeoutSeconds) * time.Second
}

// ArchiveTimeout bounds one archive conversion child process.
func (c *Config) ArchiveTimeout() time.Duration {
	return time.Duration(c.Archive.TimeoutSeconds) * time.Second
}

// TranscodeOptions maps the config onto engine options.
func (c *Config) TranscodeOptions() transcode.Options {
	return transcode.Options{
		Quality:      c.EffectiveQuality(),
		Workers:      c.Encoding.Workers,
		MaxDimension: c.Encoding.MaxSize,
		TaskTimeout:  c.TaskTimeout(),
	}
}

// Binaries maps the config onto codec executables.
func (c *Config) Binaries() transcode.Binaries {
	return transcode.Binaries{FFmpeg: c.Tools.FFmpeg, Magick: c.Tools.Magick}
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
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
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
