package errors

import (
	"context"
	"errors"
)

// Error codes reported by the outer bridges. They match the codes the
// platform method channel used for getBestMove failures.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeSpawn            = "SPAWN_ERROR"
	CodeHandshakeTimeout = "HANDSHAKE_TIMEOUT"
	CodeSearchTimeout    = "SEARCH_TIMEOUT"
	CodeProcessExited    = "PROCESS_EXITED"
	CodeNoLegalMove      = "NO_LEGAL_MOVE"
	CodeCancelled        = "CANCELLED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

// Code classifies err into one of the bridge error codes.
// It returns the empty string for a nil error.
func Code(err error) string {
	if err == nil {
		return ""
	}

	if _, ok := errors.AsType[*InvalidArgumentError](err); ok {
		return CodeInvalidArgument
	}

	if _, ok := errors.AsType[*SpawnError](err); ok {
		return CodeSpawn
	}

	if _, ok := errors.AsType[*HandshakeTimeoutError](err); ok {
		return CodeHandshakeTimeout
	}

	if _, ok := errors.AsType[*SearchTimeoutError](err); ok {
		return CodeSearchTimeout
	}

	if _, ok := errors.AsType[*ProcessExitedError](err); ok {
		return CodeProcessExited
	}

	if _, ok := errors.AsType[*NoLegalMoveError](err); ok {
		return CodeNoLegalMove
	}

	if errors.Is(err, ErrSupervisorClosed) {
		return CodeUnavailable
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}

	return CodeInternal
}
