// Package subprocess provides the subprocess-based transport to a UCI engine.
//
// This package implements the Transport interface by spawning the engine
// as a child process and exchanging newline-terminated lines over its
// stdin and merged stdout/stderr. It owns the process lifecycle: spawning,
// graceful stream shutdown, killing, and reaping.
package subprocess
