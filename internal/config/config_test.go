package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"squeeze/internal/config"
	"squeeze/internal/transcode"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"SQUEEZE_CODEC", "SQUEEZE_QUALITY", "SQUEEZE_WORKERS", "SQUEEZE_MAX_SIZE", "SQUEEZE_LOG_LEVEL", "SQUEEZE_UNAR", "SQUEEZE_LSAR", "SQUEEZE_7Z"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".config", "squeeze", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Profile() != transcode.ProfileNVENC {
		t.Fatalf("unexpected default codec %q", cfg.Encoding.Codec)
	}
	if cfg.EffectiveQuality() != 70 {
		t.Fatalf("expected nvenc default quality 70, got %d", cfg.EffectiveQuality())
	}
	if cfg.Encoding.Workers != 4 || cfg.Encoding.MaxSize != 2000 {
		t.Fatalf("unexpected defaults: %+v", cfg.Encoding)
	}
	if cfg.ArchiveTimeout() != time.Hour {
		t.Fatalf("unexpected archive timeout %s", cfg.ArchiveTimeout())
	}
	if cfg.TaskTimeout() != time.Minute {
		t.Fatalf("unexpected task timeout %s", cfg.TaskTimeout())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "squeeze.toml")
	content, err := toml.Marshal(map[string]any{
		"encoding": map[string]any{"codec": "webp", "workers": 8, "max_size": 1600},
		"logging":  map[string]any{"level": "debug"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SQUEEZE_WORKERS", "2")

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Profile() != transcode.ProfileWebP {
		t.Fatalf("expected webp codec, got %q", cfg.Encoding.Codec)
	}
	if cfg.EffectiveQuality() != 75 {
		t.Fatalf("expected webp default quality 75, got %d", cfg.EffectiveQuality())
	}
	if cfg.Encoding.Workers != 2 {
		t.Fatalf("expected env to override workers, got %d", cfg.Encoding.Workers)
	}
	if cfg.Encoding.MaxSize != 1600 {
		t.Fatalf("expected max size from file, got %d", cfg.Encoding.MaxSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	isolate(t)
	os.Unsetenv("SQUEEZE_CODEC")
	if err := os.WriteFile(".env", []byte("SQUEEZE_CODEC=avif\nSQUEEZE_QUALITY=55\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("SQUEEZE_QUALITY", "90")
	t.Cleanup(func() { os.Unsetenv("SQUEEZE_CODEC") })

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Profile() != transcode.ProfileAVIF {
		t.Fatalf("expected codec from .env, got %q", cfg.Encoding.Codec)
	}
	if cfg.Encoding.Quality != 90 {
		t.Fatalf("expected real env to win, got %d", cfg.Encoding.Quality)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"quality":     "[encoding]\nquality = 101\n",
		"workers":     "[encoding]\nworkers = 0\n",
		"max size":    "[encoding]\nmax_size = -1\n",
		"codec":       "[encoding]\ncodec = \"jxl\"\n",
		"unknown key": "[encoding]\nspeed = 3\n",
		"log format":  "[logging]\nformat = \"xml\"\n",
		"timeout":     "[archive]\ntimeout_seconds = 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadRejectsBadEnvNumber(t *testing.T) {
	isolate(t)
	t.Setenv("SQUEEZE_WORKERS", "many")
	_, _, _, err := config.Load("")
	if err == nil || !strings.Contains(err.Error(), "SQUEEZE_WORKERS") {
		t.Fatalf("expected SQUEEZE_WORKERS error, got %v", err)
	}
}

func TestLoadArchiveToolsFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SQUEEZE_UNAR", "/opt/unar/bin/unar")
	t.Setenv("SQUEEZE_LSAR", "/opt/unar/bin/lsar")
	t.Setenv("SQUEEZE_7Z", "7zz")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Tools.Unar != "/opt/unar/bin/unar" || cfg.Tools.Lsar != "/opt/unar/bin/lsar" || cfg.Tools.SevenZ != "7zz" {
		t.Fatalf("archive tools not taken from env: %+v", cfg.Tools)
	}
}
