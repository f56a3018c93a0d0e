// Package preflight provides the readiness checks behind `cutagent doctor`.
//
// Checks cover the ffmpeg and ffprobe binaries, their reported versions,
// the optional filters that text and animate operations rely on, and the
// scratch and state directories (access and free space).
//
// Each check yields a Result. Optional checks are reported but do not make
// the overall Report unhealthy.
package preflight
