// Package toolchain bundles the external encoder collaborators used by
// validation and execution: binary discovery, the ffmpeg runner, the ffprobe
// prober with its SQLite-backed cache, keyframe listing, and the filter list.
//
// A Toolchain owns its caches. Tests construct a fresh one per case so nothing
// leaks between them.
package toolchain
