// Package session runs UCI request/response cycles against one engine.
//
// A Session owns exactly one config.Transport. Run performs the handshake,
// applies the optional strength limit, starts a depth-bounded search and
// extracts the engine's best move. Every failure, and every completion of
// a session not marked keep-alive, releases the transport through a single
// cleanup routine that terminates the process and closes both streams.
package session
