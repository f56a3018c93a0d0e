// Package validation performs the dry-run pass over an EDL: it resolves every
// reference, applies the per-operation parameter checks, probes inputs for
// durations, and propagates an estimated output duration through the chain.
//
// Validation never writes to the filesystem and never invokes the encoder.
// Problems are collected as coded issues rather than returned as errors, so a
// single pass reports everything that is wrong with a document.
package validation
