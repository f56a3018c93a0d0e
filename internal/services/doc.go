// Package services defines the error model and context helpers shared by the
// EDL engine, the validator, and the command surfaces.
//
// Key responsibilities:
//   - Coded errors (Error) that carry a stable code, a human message, recovery
//     hints, and structured context, serialised as the JSON error payload the
//     CLI and HTTP API emit.
//   - Structured error markers plus the Wrap helper for infrastructure
//     failures that have no public code.
//   - Exit-code classification for the CLI.
//   - Context helpers that stamp run IDs, operation names, and correlation
//     identifiers for logging.
package services
