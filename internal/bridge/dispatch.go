// Package bridge exposes best-move evaluation to other processes.
//
// A Dispatcher answers method calls shaped like a mobile platform channel:
// a method name plus fen, depth and elo arguments, answered with a move or
// a coded error. The HTTP, WebSocket and MCP front ends all translate
// their input into a Call.
package bridge

import (
	"context"
	"log/slog"

	"github.com/wagiedev/uci-engine-go/internal/errors"
	"github.com/wagiedev/uci-engine-go/internal/position"
	"github.com/wagiedev/uci-engine-go/internal/session"
)

const (
	// MethodGetBestMove is the only method a Dispatcher implements.
	MethodGetBestMove = "getBestMove"

	// CodeNotImplemented answers calls to any other method.
	CodeNotImplemented = "not_implemented"

	// DefaultDepth is the search depth used when a call names none.
	DefaultDepth = 2
)

// Evaluator runs one request against an engine.
type Evaluator interface {
	Evaluate(ctx context.Context, req session.Request) (*session.Result, error)
}

// Call is one method invocation.
type Call struct {
	ID     string  `json:"id,omitempty"`
	Method string  `json:"method"`
	FEN    *string `json:"fen,omitempty"`
	Depth  *int    `json:"depth,omitempty"`
	Elo    *int    `json:"elo,omitempty"`
}

// Reply answers a Call. Exactly one of Move or Error is set.
type Reply struct {
	ID        string      `json:"id,omitempty"`
	Move      string      `json:"move,omitempty"`
	Ponder    string      `json:"ponder,omitempty"`
	Depth     int         `json:"depth,omitempty"`
	ScoreCP   *int        `json:"score_cp,omitempty"`
	ScoreMate *int        `json:"score_mate,omitempty"`
	PV        []string    `json:"pv,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	ElapsedMS int64       `json:"elapsed_ms,omitempty"`
	Error     *ReplyError `json:"error,omitempty"`
}

// ReplyError is a failed call's code and description.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Dispatcher routes calls to an Evaluator.
type Dispatcher struct {
	log       *slog.Logger
	evaluator Evaluator
}

// NewDispatcher creates a dispatcher over evaluator.
func NewDispatcher(log *slog.Logger, evaluator Evaluator) *Dispatcher {
	return &Dispatcher{
		log:       log.With("component", "dispatcher"),
		evaluator: evaluator,
	}
}

// Handle answers call. Failures are reported in the Reply, never as a Go error.
func (d *Dispatcher) Handle(ctx context.Context, call Call) Reply {
	if call.Method != MethodGetBestMove {
		d.log.Debug("Unknown method", "method", call.Method)

		return Reply{ID: call.ID, Error: &ReplyError{
			Code:    CodeNotImplemented,
			Message: "method " + call.Method + " is not implemented",
		}}
	}

	req, err := buildRequest(call)
	if err != nil {
		return failure(call.ID, err)
	}

	result, err := d.evaluator.Evaluate(ctx, req)
	if err != nil {
		d.log.Info("getBestMove failed", "id", call.ID, "code", errors.Code(err), "error", err)

		return failure(call.ID, err)
	}

	reply := Reply{
		ID:        call.ID,
		Move:      result.Move,
		Ponder:    result.Ponder,
		Depth:     result.Depth,
		PV:        result.PV,
		SessionID: result.SessionID,
		ElapsedMS: result.Elapsed.Milliseconds(),
	}

	if result.Score != nil {
		reply.ScoreCP = result.Score.CP
		reply.ScoreMate = result.Score.Mate
	}

	return reply
}

func buildRequest(call Call) (session.Request, error) {
	if call.FEN == nil {
		return session.Request{}, &errors.InvalidArgumentError{Field: "fen", Value: "<missing>", Reason: "fen is required"}
	}

	pos, err := position.Parse(*call.FEN)
	if err != nil {
		return session.Request{}, err
	}

	req := session.Request{Position: pos, Depth: DefaultDepth}

	if call.Depth != nil {
		req.Depth = *call.Depth
	}

	if call.Elo != nil {
		req.Strength = &session.StrengthLimit{Elo: *call.Elo}
	}

	return req, nil
}

func failure(id string, err error) Reply {
	return Reply{ID: id, Error: &ReplyError{Code: errors.Code(err), Message: err.Error()}}
}
