// Package store persists the ffprobe cache and run history in a local SQLite
// database.
//
// The database lives under the configured state directory and is opened in
// WAL mode with a busy timeout; writes are retried with backoff when SQLite
// reports the database as locked so concurrent CLI runs and the HTTP server
// can share it.
package store
