// Package errors defines error types for the UCI engine supervisor.
//
// This package provides structured error types for each way an engine
// request can fail: rejected arguments, spawn failures, handshake and
// search timeouts, engine exit, and the engine reporting no legal move.
// All error types support error unwrapping and can be checked using
// errors.Is, errors.As, and errors.AsType.
package errors
