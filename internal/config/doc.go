// Package config loads, normalizes, and validates cutagent configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CUTAGENT_FFMPEG and CUTAGENT_FFMPEG_DIR. The Config type centralizes the
// encoder binaries, subprocess timeouts, scratch and state directories, the
// local store, logging, and the optional HTTP API.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
