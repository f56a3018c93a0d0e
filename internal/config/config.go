package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// FFmpeg contains encoder binary discovery and subprocess limits.
type FFmpeg struct {
	FFmpegPath           string `toml:"ffmpeg_path"`
	FFprobePath          string `toml:"ffprobe_path"`
	BinaryDir            string `toml:"binary_dir"`
	EncodeTimeoutSeconds int    `toml:"encode_timeout_seconds"`
	ProbeTimeoutSeconds  int    `toml:"probe_timeout_seconds"`
	// FilterProbe controls whether `ffmpeg -filters` is consulted during validation.
	FilterProbe bool `toml:"filter_probe"`
}

// Paths contains working directories.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	StateDir   string `toml:"state_dir"`
}

// Store contains configuration for the local SQLite database.
type Store struct {
	Enabled        bool `toml:"enabled"`
	ProbeCache     bool `toml:"probe_cache"`
	ProbeCacheDays int  `toml:"probe_cache_days"` // zero keeps cached probes forever
	History        bool `toml:"history"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// API contains configuration for the local HTTP surface.
type API struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for cutagent.
//
// Configuration sections by subsystem:
//   - FFmpeg: binary discovery, timeouts, filter probing
//   - Paths: scratch and state directories
//   - Store: probe cache and run history database
//   - Logging: log format, level, and optional file
//   - API: bind address for `cutagent serve`
type Config struct {
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	Logging Logging `toml:"logging"`
	API     API     `toml:"api"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cutagent.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory and, when configured, the scratch root.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir}
	if c.Paths.ScratchDir != "" {
		dirs = append(dirs, c.Paths.ScratchDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, databaseFileName)
}

// ScratchRoot returns the directory under which per-run scratch directories are created.
func (c *Config) ScratchRoot() string {
	if c.Paths.ScratchDir != "" {
		return c.Paths.ScratchDir
	}
	return os.TempDir()
}

// EncodeTimeout returns the per-invocation ffmpeg timeout.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.FFmpeg.EncodeTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the per-invocation ffprobe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.FFmpeg.ProbeTimeoutSeconds) * time.Second
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
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
