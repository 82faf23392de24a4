package config

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Defaults applied by WithDefaults.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultSearchTimeout    = 60 * time.Second
	DefaultShutdownGrace    = 250 * time.Millisecond
)

// StockfishMinElo and StockfishMaxElo are the UCI_Elo bounds Stockfish
// declares, for use with MinElo and MaxElo.
const (
	StockfishMinElo = 1320
	StockfishMaxElo = 3190
)

// Environment variables overriding the timeout defaults, in whole seconds.
const (
	EnvHandshakeTimeout = "UCI_ENGINE_HANDSHAKE_TIMEOUT"
	EnvSearchTimeout    = "UCI_ENGINE_SEARCH_TIMEOUT"
)

// Options configures the engine supervisor.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// EnginePath is the engine executable to spawn. It is used as given:
	// the supervisor never searches for, extracts, or chmods a binary.
	EnginePath string

	// EngineArgs are extra command-line arguments for the engine.
	EngineArgs []string

	// Env provides additional environment variables for the engine process.
	Env map[string]string

	// Dir sets the working directory for the engine process.
	// If empty, the engine inherits the caller's working directory.
	Dir string

	// HandshakeTimeout bounds the wait for readyok after isready.
	HandshakeTimeout time.Duration

	// SearchTimeout bounds the wait for bestmove after go.
	SearchTimeout time.Duration

	// ShutdownGrace is how long Close waits for the engine to exit on its
	// own after stdin is closed before killing it. Zero kills immediately.
	ShutdownGrace time.Duration

	// MaxProcesses caps the number of engines running a request at once.
	// Warm idle sessions are bounded separately by IdleSessions.
	MaxProcesses int

	// IdleSessions is the number of warm sessions kept for reuse between
	// requests. Zero means one fresh engine process per request.
	IdleSessions int

	// MinElo and MaxElo bound accepted strength limits. When both are zero
	// any positive elo is passed to the engine unchanged.
	MinElo int
	MaxElo int

	// NewTransport allows injecting a custom transport implementation.
	// If nil, a subprocess transport is created for every session.
	NewTransport TransportFactory `json:"-"`

	shutdownGraceSet bool
}

// SetShutdownGrace sets ShutdownGrace and records that it was chosen
// explicitly, so a zero value is kept by WithDefaults.
func (o *Options) SetShutdownGrace(d time.Duration) {
	o.ShutdownGrace = d
	o.shutdownGraceSet = true
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o *Options) WithDefaults() *Options {
	out := &Options{}
	if o != nil {
		*out = *o
	}

	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = envDuration(EnvHandshakeTimeout, DefaultHandshakeTimeout)
	}

	if out.SearchTimeout <= 0 {
		out.SearchTimeout = envDuration(EnvSearchTimeout, DefaultSearchTimeout)
	}

	if !out.shutdownGraceSet && out.ShutdownGrace <= 0 {
		out.ShutdownGrace = DefaultShutdownGrace
	}

	if out.MaxProcesses <= 0 {
		out.MaxProcesses = runtime.GOMAXPROCS(0)
	}

	if out.IdleSessions < 0 {
		out.IdleSessions = 0
	}

	return out
}

// BuildEnvironment returns the engine process environment: the current
// process environment plus Options.Env.
func (o *Options) BuildEnvironment() []string {
	env := os.Environ()
	for k, v := range o.Env {
		env = append(env, k+"="+v)
	}

	return env
}

// envDuration reads a positive number of seconds from the named variable.
func envDuration(name string, fallback time.Duration) time.Duration {
	if s := os.Getenv(name); s != "" {
		if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}

	return fallback
}
