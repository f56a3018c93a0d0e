package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cutagent/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvFFmpeg, "")
	t.Setenv(config.EnvFFprobe, "")
	t.Setenv(config.EnvFFmpegDir, "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "cutagent")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "cutagent.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.ScratchRoot() != os.TempDir() {
		t.Fatalf("expected scratch root to default to temp dir, got %q", cfg.ScratchRoot())
	}
	if cfg.FFmpeg.EncodeTimeoutSeconds != 300 || cfg.FFmpeg.ProbeTimeoutSeconds != 30 {
		t.Fatalf("unexpected timeouts: %+v", cfg.FFmpeg)
	}
	if !cfg.FFmpeg.FilterProbe {
		t.Fatal("expected filter probing enabled by default")
	}
	if cfg.API.Bind != "127.0.0.1:7487" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadHonoursEnvironmentBinaryFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	binDir := t.TempDir()
	t.Setenv(config.EnvFFmpegDir, binDir)
	t.Setenv(config.EnvFFmpeg, filepath.Join(binDir, "ffmpeg-custom"))
	t.Setenv(config.EnvFFprobe, "")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FFmpeg.BinaryDir != binDir {
		t.Fatalf("expected binary dir from env, got %q", cfg.FFmpeg.BinaryDir)
	}
	if cfg.FFmpeg.FFmpegPath != filepath.Join(binDir, "ffmpeg-custom") {
		t.Fatalf("expected ffmpeg path from env, got %q", cfg.FFmpeg.FFmpegPath)
	}
	if cfg.FFmpeg.FFprobePath != "" {
		t.Fatalf("expected empty ffprobe path, got %q", cfg.FFmpeg.FFprobePath)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "cutagent.toml")
	payload := map[string]any{
		"ffmpeg": map[string]any{
			"ffmpeg_path":            "~/bin/ffmpeg",
			"encode_timeout_seconds": 60,
		},
		"paths": map[string]any{
			"scratch_dir": "~/scratch",
			"state_dir":   "~/state",
		},
		"logging": map[string]any{"format": "JSON", "level": "Debug"},
		"api":     map[string]any{"bind": "0.0.0.0:9000"},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.FFmpeg.FFmpegPath != filepath.Join(tempHome, "bin", "ffmpeg") {
		t.Fatalf("unexpected ffmpeg path: %q", cfg.FFmpeg.FFmpegPath)
	}
	if cfg.EncodeTimeout().Seconds() != 60 {
		t.Fatalf("unexpected encode timeout: %v", cfg.EncodeTimeout())
	}
	if cfg.ScratchRoot() != filepath.Join(tempHome, "scratch") {
		t.Fatalf("unexpected scratch root: %q", cfg.ScratchRoot())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging values to be lowercased, got %+v", cfg.Logging)
	}
	if cfg.API.Bind != "0.0.0.0:9000" {
		t.Fatalf("unexpected bind: %q", cfg.API.Bind)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"ffmpeg.encode_timeout_seconds": func(c *config.Config) { c.FFmpeg.EncodeTimeoutSeconds = 0 },
		"ffmpeg.probe_timeout_seconds":  func(c *config.Config) { c.FFmpeg.ProbeTimeoutSeconds = -1 },
		"logging.format":                func(c *config.Config) { c.Logging.Format = "xml" },
		"logging.level":                 func(c *config.Config) { c.Logging.Level = "trace" },
		"api.bind":                      func(c *config.Config) { c.API.Bind = "" },
		"store.probe_cache_days":        func(c *config.Config) { c.Store.ProbeCacheDays = -1 },
	}
	for key, mutate := range cases {
		t.Run(key, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error to mention %s, got %v", key, err)
			}
		})
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}
