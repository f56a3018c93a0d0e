package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Store.ProbeCacheDays < 0 {
		return errors.New("store.probe_cache_days must not be negative")
	}
	if c.API.Bind == "" {
		return errors.New("api.bind must be set")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.EncodeTimeoutSeconds <= 0 {
		return errors.New("ffmpeg.encode_timeout_seconds must be positive")
	}
	if c.FFmpeg.ProbeTimeoutSeconds <= 0 {
		return errors.New("ffmpeg.probe_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q (want debug, info, warn, or error)", c.Logging.Level)
	}
	return nil
}
