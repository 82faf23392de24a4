package uciengine

import "context"

// Evaluate runs a single request with a throwaway Evaluator.
//
// This is the simplest way to query an engine once:
//
//	req, err := uciengine.NewRequest(fen, uciengine.WithDepth(6))
//	if err != nil {
//	    return err
//	}
//
//	result, err := uciengine.Evaluate(ctx, req,
//	    uciengine.WithEnginePath("/usr/games/stockfish"),
//	)
//
// The engine process is gone by the time Evaluate returns.
func Evaluate(ctx context.Context, req Request, opts ...Option) (*Result, error) {
	var result *Result

	err := WithEvaluator(ctx, func(ev Evaluator) error {
		var err error

		result, err = ev.Evaluate(ctx, req)

		return err
	}, opts...)
	if err != nil {
		return nil, err
	}

	return result, nil
}
