package uciengine

import (
	"context"

	"github.com/wagiedev/uci-engine-go/internal/supervisor"
)

// Evaluator answers best-move requests by supervising engine processes.
//
// An Evaluator is safe for concurrent use. After Close every method
// fails with ErrClosed; create a new one with New.
//
// Example usage:
//
//	ev := New(
//	    WithEnginePath("/usr/games/stockfish"),
//	    WithLogger(slog.Default()),
//	    WithIdleSessions(2),
//	)
//	defer ev.Close()
//
//	move, err := ev.GetBestMove(ctx, StartFEN, WithDepth(10), WithElo(1500))
type Evaluator interface {
	// GetBestMove returns the best move for fen in long algebraic notation.
	GetBestMove(ctx context.Context, fen string, opts ...RequestOption) (string, error)

	// Evaluate runs req and returns the engine's full answer.
	Evaluate(ctx context.Context, req Request) (*Result, error)

	// EvaluateAsync runs req in the background. The channel delivers
	// exactly one Outcome and is then closed.
	EvaluateAsync(ctx context.Context, req Request) <-chan Outcome

	// EvaluateBatch runs reqs concurrently within the process cap and
	// returns one Outcome per request, in request order.
	EvaluateBatch(ctx context.Context, reqs []Request) []Outcome

	// Stats reports current activity.
	Stats() Stats

	// Close waits for running evaluations, terminates warm engines and
	// rejects further work.
	Close() error
}

// New creates an Evaluator. Nothing is spawned until the first request.
func New(opts ...Option) Evaluator {
	return &evaluator{Supervisor: supervisor.New(applyOptions(opts))}
}

type evaluator struct {
	*supervisor.Supervisor
}

var _ Evaluator = (*evaluator)(nil)

func (e *evaluator) GetBestMove(ctx context.Context, fen string, opts ...RequestOption) (string, error) {
	req, err := NewRequest(fen, opts...)
	if err != nil {
		return "", err
	}

	result, err := e.Evaluate(ctx, req)
	if err != nil {
		return "", err
	}

	return result.Move, nil
}
