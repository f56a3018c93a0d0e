// Package edl defines the Edit Decision List document: the closed set of
// operation variants, the parser that turns EDL JSON into typed values, the
// time and reference grammar shared by validation and execution, and the
// registry metadata surfaced by the capabilities command.
package edl
