package testsupport

import (
	"path/filepath"
	"testing"

	"cutagent/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutStore disables the SQLite probe cache and run history.
func WithoutStore() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Enabled = false
	}
}

// WithBinaries points the config at explicit ffmpeg and ffprobe paths.
func WithBinaries(ffmpegPath, ffprobePath string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FFmpeg.FFmpegPath = ffmpegPath
		b.cfg.FFmpeg.FFprobePath = ffprobePath
	}
}

// WithStubbedBinaries installs shell stubs for ffmpeg and ffprobe under the
// config's temp dir and points the config at them.
func WithStubbedBinaries(stubs Stubs) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "bin")
		ffmpegPath, ffprobePath := stubs.Install(b.t, dir)
		b.cfg.FFmpeg.FFmpegPath = ffmpegPath
		b.cfg.FFmpeg.FFprobePath = ffprobePath
	}
}
