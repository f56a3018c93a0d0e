// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Info: the normalized probe record the EDL engine consumes (duration,
//     resolution, per-stream fps/sample rate/channels)
//
// Entry points:
//   - Inspect: executes ffprobe and returns the raw parsed Result
//   - Probe: checks the file exists, inspects it, and returns Info
//   - Keyframes: lists video keyframe timestamps from packet flags
package ffprobe
