package uciengine

import (
	"log/slog"
	"time"

	"github.com/wagiedev/uci-engine-go/internal/config"
)

// Options holds the settings an Evaluator is built from.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Engine Process =====

// WithEnginePath sets the engine executable. It is required unless a
// custom transport is injected; the path is used exactly as given.
func WithEnginePath(path string) Option {
	return func(o *Options) {
		o.EnginePath = path
	}
}

// WithEngineArgs sets extra command-line arguments for the engine.
func WithEngineArgs(args ...string) Option {
	return func(o *Options) {
		o.EngineArgs = args
	}
}

// WithEngineEnv adds environment variables to the engine process.
func WithEngineEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithEngineDir sets the engine's working directory.
func WithEngineDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// ===== Timeouts =====

// WithHandshakeTimeout bounds the wait for readyok.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.HandshakeTimeout = d
	}
}

// WithSearchTimeout bounds the wait for bestmove.
func WithSearchTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.SearchTimeout = d
	}
}

// WithShutdownGrace sets how long a finished engine may take to exit on
// its own before it is killed. Zero kills it immediately.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *Options) {
		o.SetShutdownGrace(d)
	}
}

// ===== Concurrency =====

// WithMaxProcesses caps how many engines run a search at once.
func WithMaxProcesses(n int) Option {
	return func(o *Options) {
		o.MaxProcesses = n
	}
}

// WithIdleSessions keeps up to n warm engines between calls.
func WithIdleSessions(n int) Option {
	return func(o *Options) {
		o.IdleSessions = n
	}
}

// ===== Requests =====

// WithEloRange rejects strength limits outside [minElo, maxElo] before
// any engine is started. StockfishMinElo and StockfishMaxElo give the
// range Stockfish accepts.
func WithEloRange(minElo, maxElo int) Option {
	return func(o *Options) {
		o.MinElo = minElo
		o.MaxElo = maxElo
	}
}

// ===== Ambient =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTransportFactory replaces the child-process transport.
func WithTransportFactory(factory TransportFactory) Option {
	return func(o *Options) {
		o.NewTransport = factory
	}
}
