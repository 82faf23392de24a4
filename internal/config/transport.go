// Package config provides configuration types for the UCI engine supervisor.
package config

import (
	"context"
	"log/slog"
)

// Transport defines the line channel to one engine process.
// Implement this to provide custom transports for testing, mocking,
// or alternative engine hosting (e.g., a remote engine).
//
// The default implementation is subprocess.ProcessTransport which spawns
// a child process. Custom transports can be injected via
// Options.NewTransport.
type Transport interface {
	// Start spawns the engine. It is called exactly once, before any
	// line is written or read.
	Start(ctx context.Context) error

	// WriteLine sends text to the engine's input. A trailing newline is
	// appended if missing. text may hold several newline-terminated
	// commands; they are written in a single call.
	WriteLine(ctx context.Context, text string) error

	// ReadLine blocks until the engine prints a full line, the output
	// stream ends (io.EOF), or ctx is done (ctx.Err()).
	ReadLine(ctx context.Context) (string, error)

	// Close releases both stream directions and terminates the engine
	// process. It's safe to call Close multiple times.
	Close() error

	// IsReady returns true while the engine process is running and its
	// input is open.
	IsReady() bool
}

// TransportFactory creates the transport for one new session.
type TransportFactory func(log *slog.Logger, options *Options) Transport
