// Package api serves cutagent over local HTTP.
//
// # Routes
//
//	GET  /health        liveness, version and resolved tool versions
//	GET  /capabilities  the operation registry as JSON
//	POST /validate      body is EDL JSON; always 200 with a validation result
//	POST /execute       body is EDL JSON; 200 with the operation result, 422
//	                    for problems with the request, 500 otherwise
//	GET  /runs?limit=N  recent runs from the history store
//
// Every request gets an X-Request-ID that is threaded into the logging
// context. Panics are recovered into a 500 UNEXPECTED_ERROR payload.
//
// # Design Notes
//
// Error bodies use the same {error, code, message, recovery, context} shape
// as the CLI. Timestamps use RFC3339 with milliseconds. Executions targeting
// the same output are serialized by the engine's output lock, so concurrent
// requests for one output fail fast with OUTPUT_LOCKED instead of queueing.
package api
