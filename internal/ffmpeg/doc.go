// Package ffmpeg runs the ffmpeg family of binaries as bounded subprocesses.
//
// Exec is the shared process helper: it enforces a timeout, keeps a bounded
// tail of stderr, and converts failures into coded errors (FFMPEG_TIMEOUT,
// FFMPEG_FAILED) with recovery hints derived from the stderr text. Runner wraps
// Exec for encode invocations (`ffmpeg -hide_banner -y ...`) and for capability
// queries such as the filter list and version banner.
package ffmpeg
