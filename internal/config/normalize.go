package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeFFmpeg(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	return nil
}

func (c *Config) normalizeFFmpeg() error {
	c.FFmpeg.FFmpegPath = envFallback(c.FFmpeg.FFmpegPath, EnvFFmpeg)
	c.FFmpeg.FFprobePath = envFallback(c.FFmpeg.FFprobePath, EnvFFprobe)
	c.FFmpeg.BinaryDir = envFallback(c.FFmpeg.BinaryDir, EnvFFmpegDir)

	var err error
	if c.FFmpeg.FFmpegPath, err = expandPath(c.FFmpeg.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg.ffmpeg_path: %w", err)
	}
	if c.FFmpeg.FFprobePath, err = expandPath(c.FFmpeg.FFprobePath); err != nil {
		return fmt.Errorf("ffmpeg.ffprobe_path: %w", err)
	}
	if c.FFmpeg.BinaryDir, err = expandPath(c.FFmpeg.BinaryDir); err != nil {
		return fmt.Errorf("ffmpeg.binary_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.ScratchDir, err = expandPath(strings.TrimSpace(c.Paths.ScratchDir)); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(key))
}
