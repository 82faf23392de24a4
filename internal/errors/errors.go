package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EngineError is the base interface for all engine supervisor errors.
type EngineError interface {
	error
	IsEngineError() bool
}

// Compile-time verification that all error types implement EngineError.
var (
	_ EngineError = (*InvalidArgumentError)(nil)
	_ EngineError = (*SpawnError)(nil)
	_ EngineError = (*HandshakeTimeoutError)(nil)
	_ EngineError = (*SearchTimeoutError)(nil)
	_ EngineError = (*ProcessExitedError)(nil)
	_ EngineError = (*NoLegalMoveError)(nil)
	_ EngineError = (*TransportError)(nil)
	_ EngineError = (*EngineNotFoundError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrSupervisorClosed indicates the supervisor has been closed and accepts no more work.
	ErrSupervisorClosed = errors.New("supervisor closed")

	// ErrTransportNotStarted indicates the transport has not been started.
	ErrTransportNotStarted = errors.New("transport not started")

	// ErrTransportClosed indicates the transport was closed and cannot be used.
	ErrTransportClosed = errors.New("transport closed")

	// ErrSessionClosed indicates the session already reached a terminal state
	// and released its engine process.
	ErrSessionClosed = errors.New("session closed")
)

// InvalidArgumentError indicates a request was rejected before any engine
// process was spawned.
type InvalidArgumentError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// IsEngineError implements EngineError.
func (e *InvalidArgumentError) IsEngineError() bool { return true }

// SpawnError indicates the engine executable could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start engine %q: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsEngineError implements EngineError.
func (e *SpawnError) IsEngineError() bool { return true }

// HandshakeTimeoutError indicates the engine did not answer isready with
// readyok within the configured bound.
type HandshakeTimeoutError struct {
	Timeout time.Duration
}

func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("engine handshake timed out after %s", e.Timeout)
}

// Is reports context.DeadlineExceeded as a match so callers can treat all
// bounded waits uniformly.
func (e *HandshakeTimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// IsEngineError implements EngineError.
func (e *HandshakeTimeoutError) IsEngineError() bool { return true }

// SearchTimeoutError indicates no bestmove arrived within the configured bound.
type SearchTimeoutError struct {
	Timeout time.Duration
	Depth   int
}

func (e *SearchTimeoutError) Error() string {
	return fmt.Sprintf("engine search (depth %d) timed out after %s", e.Depth, e.Timeout)
}

// Is reports context.DeadlineExceeded as a match.
func (e *SearchTimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// IsEngineError implements EngineError.
func (e *SearchTimeoutError) IsEngineError() bool { return true }

// ProcessExitedError indicates the engine closed its streams, or could no
// longer be written to, before producing a result.
type ProcessExitedError struct {
	// State is the session state in which the engine went away.
	State string
	// ExitCode is the process exit code, or -1 when unknown.
	ExitCode int
	// Output holds the most recent lines the engine printed that were not
	// part of the protocol exchange, for diagnostics.
	Output []string
	Err    error
}

func (e *ProcessExitedError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "engine process exited while %s", e.State)

	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	if len(e.Output) > 0 {
		fmt.Fprintf(&b, "; last output: %s", strings.Join(e.Output, " | "))
	}

	return b.String()
}

func (e *ProcessExitedError) Unwrap() error {
	return e.Err
}

// IsEngineError implements EngineError.
func (e *ProcessExitedError) IsEngineError() bool { return true }

// NoLegalMoveError indicates the engine answered the search but reported
// that the side to move has no legal move (checkmate or stalemate).
type NoLegalMoveError struct {
	FEN string
}

func (e *NoLegalMoveError) Error() string {
	return fmt.Sprintf("engine reported no legal move for %q", e.FEN)
}

// IsEngineError implements EngineError.
func (e *NoLegalMoveError) IsEngineError() bool { return true }

// TransportError indicates a read or write on the engine streams failed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsEngineError implements EngineError.
func (e *TransportError) IsEngineError() bool { return true }

// EngineNotFoundError indicates no engine executable could be located.
// Only the installation helpers used by the commands return it; the
// supervisor itself never searches for a binary.
type EngineNotFoundError struct {
	SearchedPaths []string
}

func (e *EngineNotFoundError) Error() string {
	return fmt.Sprintf("UCI engine not found in: %v", e.SearchedPaths)
}

// IsEngineError implements EngineError.
func (e *EngineNotFoundError) IsEngineError() bool { return true }
