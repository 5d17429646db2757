package config

const (
	defaultConfigPath     = "~/.config/squeeze/config.toml"
	envPrefix             = "SQUEEZE_"
	defaultCodec          = "nvenc"
	defaultWorkers        = 4
	defaultMaxSize        = 2000
	defaultTaskTimeout    = 60
	defaultArchiveTimeout = 3600
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Encoding: Encoding{
			Codec:              defaultCodec,
			Workers:            defaultWorkers,
			MaxSize:            defaultMaxSize,
			TaskTimeoutSeconds: defaultTaskTimeout,
		},
		Archive: Archive{
			TimeoutSeconds: defaultArchiveTimeout,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Magick:  "magick",
			Unar:    "unar",
			Lsar:    "lsar",
			SevenZ:  "7z",
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
