// Package main hosts the cutagent CLI entrypoint and command graph.
//
// Every command prints JSON to stdout so that scripts and agents can consume
// the output directly; logs and execute progress go to stderr. Failures are
// reported as a structured error object on stdout and mapped to the process
// exit codes 0 (success), 1 (validation), 2 (execution) and 3 (unexpected).
//
// The command tree covers EDL validation and execution, single-operation
// shortcuts (trim, split, concat and friends), media inspection, diagnostics,
// run history, the local HTTP API, and configuration scaffolding. Keep this
// package lean: behaviour lives in the internal packages and commands only
// translate flags into requests.
package main
