package config

const (
	defaultConfigPath           = "~/.config/cutagent/config.toml"
	defaultStateDir             = "~/.local/share/cutagent"
	databaseFileName            = "cutagent.db"
	defaultEncodeTimeoutSeconds = 300
	defaultProbeTimeoutSeconds  = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "warn"
	defaultAPIBind              = "127.0.0.1:7487"
	defaultProbeCacheDays       = 30
)

// Environment variables consulted when the matching config key is empty.
const (
	EnvFFmpeg    = "CUTAGENT_FFMPEG"
	EnvFFprobe   = "CUTAGENT_FFPROBE"
	EnvFFmpegDir = "CUTAGENT_FFMPEG_DIR"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		FFmpeg: FFmpeg{
			EncodeTimeoutSeconds: defaultEncodeTimeoutSeconds,
			ProbeTimeoutSeconds:  defaultProbeTimeoutSeconds,
			FilterProbe:          true,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Store: Store{
			Enabled:        true,
			ProbeCache:     true,
			ProbeCacheDays: defaultProbeCacheDays,
			History:        true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		API: API{
			Bind: defaultAPIBind,
		},
	}
}
