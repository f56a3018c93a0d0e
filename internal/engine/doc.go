// Package engine executes EDL documents.
//
// An Executor walks the operations in order, resolving every reference
// through edl.Table, and writes each intermediate artifact into a private
// scratch directory that is removed when the run ends. The last artifact is
// published to the document's output path with a verified copy. Runs are
// serialized per output path by an advisory file lock and, when a recorder is
// configured, recorded in the run history.
package engine
