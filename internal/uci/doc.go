// Package uci encodes the subset of Universal Chess Interface commands the
// supervisor sends and decodes engine output lines into typed events.
//
// Commands are returned as newline-terminated strings ready for the wire.
// Decoding is line oriented and total: every non-empty line maps to an
// Event, so diagnostics interleaved with protocol output are surfaced as
// *Unrecognized instead of failing the read loop.
package uci
