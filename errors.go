package uciengine

import "github.com/wagiedev/uci-engine-go/internal/errors"

// EngineError is the base interface for all errors raised by this package.
type EngineError = errors.EngineError

// InvalidArgumentError reports a request rejected before any process was spawned.
type InvalidArgumentError = errors.InvalidArgumentError

// SpawnError indicates the engine executable could not be started.
type SpawnError = errors.SpawnError

// HandshakeTimeoutError indicates the engine did not answer isready in time.
type HandshakeTimeoutError = errors.HandshakeTimeoutError

// SearchTimeoutError indicates the engine did not report a best move in time.
type SearchTimeoutError = errors.SearchTimeoutError

// ProcessExitedError indicates the engine went away before producing a result.
type ProcessExitedError = errors.ProcessExitedError

// NoLegalMoveError indicates the engine found no move in the position.
type NoLegalMoveError = errors.NoLegalMoveError

// TransportError wraps a read or write failure on the engine's pipes.
type TransportError = errors.TransportError

// Sentinel errors.
var (
	// ErrClosed indicates the Evaluator has been closed.
	ErrClosed = errors.ErrSupervisorClosed

	// ErrTransportNotStarted indicates a transport was used before Start.
	ErrTransportNotStarted = errors.ErrTransportNotStarted

	// ErrTransportClosed indicates a transport was used after Close.
	ErrTransportClosed = errors.ErrTransportClosed
)

// Error codes returned by Code.
const (
	CodeInvalidArgument  = errors.CodeInvalidArgument
	CodeSpawn            = errors.CodeSpawn
	CodeHandshakeTimeout = errors.CodeHandshakeTimeout
	CodeSearchTimeout    = errors.CodeSearchTimeout
	CodeProcessExited    = errors.CodeProcessExited
	CodeNoLegalMove      = errors.CodeNoLegalMove
	CodeCancelled        = errors.CodeCancelled
	CodeUnavailable      = errors.CodeUnavailable
	CodeInternal         = errors.CodeInternal
)

// Code classifies err as one of the Code constants, or "" for nil.
func Code(err error) string {
	return errors.Code(err)
}
