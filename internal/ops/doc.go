// Package ops implements the individual editing operations. Each operation
// checks its parameters, probes what it needs through Tools, builds an ffmpeg
// argument list with a pure builder function and hands it to Tools.Encode.
//
// The parameter checks are exported so the dry-run validator reports exactly
// the codes an execution would fail with.
package ops
