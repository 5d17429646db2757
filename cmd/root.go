package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"squeeze/internal/config"
	"squeeze/internal/logging"
)

var (
	configPath    string
	flagQuality   int
	flagWorkers   int
	flagMaxSize   int
	flagCodec     string
	flagLogLevel  string
	flagLogFormat string

	cfg    *config.Config
	logger *slog.Logger
	runID  string
)

var rootCmd = &cobra.Command{
	Use:   "squeeze",
	Short: "squeeze - recompress image archives and folders to AVIF/WebP",
	Long: "squeeze scans a library for comic/photo archives and image folders, ranks them by size, " +
		"and re-encodes their heavy JPEG/PNG/BMP images to AVIF or WebP, keeping any image whose re-encode is not smaller.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, _, _, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, loaded); err != nil {
			return err
		}
		cfg = loaded

		runID = logging.NewRunID()
		logger, err = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			RunID:  runID,
		})
		return err
	},
}

// applyFlags lays explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("quality") {
		c.Encoding.Quality = flagQuality
	}
	if flags.Changed("workers") {
		c.Encoding.Workers = flagWorkers
	}
	if flags.Changed("max-size") {
		c.Encoding.MaxSize = flagMaxSize
	}
	if flags.Changed("codec") {
		c.Encoding.Codec = strings.ToLower(strings.TrimSpace(flagCodec))
	}
	if flags.Changed("log-level") {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(flagLogLevel))
	}
	if flags.Changed("log-format") {
		c.Logging.Format = strings.ToLower(strings.TrimSpace(flagLogFormat))
	}
	return c.Validate()
}

// forwardedFlags repeats the effective settings for a child invocation so it
// encodes exactly like its parent.
func forwardedFlags() []string {
	args := []string{
		"--codec", cfg.Encoding.Codec,
		"--quality", fmt.Sprint(cfg.EffectiveQuality()),
		"--workers", fmt.Sprint(cfg.Encoding.Workers),
		"--max-size", fmt.Sprint(cfg.Encoding.MaxSize),
		"--log-level", cfg.Logging.Level,
		"--log-format", cfg.Logging.Format,
	}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}

// resolveRoot accepts a Windows drive path when running under WSL and maps it
// onto the /mnt mount.
func resolveRoot(arg string) string {
	if !isWSL() {
		return arg
	}
	return wslPath(arg)
}

func wslPath(arg string) string {
	if len(arg) < 2 || arg[1] != ':' {
		return arg
	}
	drive := arg[0] | 0x20
	if drive < 'a' || drive > 'z' {
		return arg
	}
	rest := strings.TrimLeft(strings.ReplaceAll(arg[2:], `\`, "/"), "/")
	if rest == "" {
		return "/mnt/" + string(drive)
	}
	return "/mnt/" + string(drive) + "/" + rest
}

func isWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	if os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}
	data, err := os.ReadFile("/proc/sys/kernel/osrelease")
	return err == nil && strings.Contains(strings.ToLower(string(data)), "microsoft")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.config/squeeze/config.toml)")
	flags.IntVarP(&flagQuality, "quality", "q", 0, "quality 1-100 (default depends on codec)")
	flags.IntVarP(&flagWorkers, "workers", "w", 4, "parallel encode jobs")
	flags.IntVarP(&flagMaxSize, "max-size", "m", 2000, "max longest side in pixels, 0 disables resizing")
	flags.StringVar(&flagCodec, "codec", "nvenc", "codec profile: nvenc, avif or webp")
	flags.StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&flagLogFormat, "log-format", "console", "log format: console or json")
}
