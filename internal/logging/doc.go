// Package logging assembles structured slog loggers and formatting helpers used
// across cutagent.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so engine code can tag log lines with run IDs,
// operation names, and request IDs. Logs default to stderr because stdout is
// reserved for command results. The package also provides a no-op logger for
// tests and library callers that do not want output.
package logging
