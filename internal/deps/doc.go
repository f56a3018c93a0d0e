// Package deps discovers the external binaries cutagent drives (ffmpeg and
// ffprobe) and reports their availability for diagnostics.
package deps
