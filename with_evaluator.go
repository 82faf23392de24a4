package uciengine

import "context"

// WithEvaluator manages an Evaluator's lifecycle around fn.
//
// The Evaluator is closed when fn returns. A Close failure is logged but
// does not override fn's error.
//
//	err := uciengine.WithEvaluator(ctx, func(ev uciengine.Evaluator) error {
//	    move, err := ev.GetBestMove(ctx, fen)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(move)
//	    return nil
//	},
//	    uciengine.WithEnginePath(path),
//	    uciengine.WithIdleSessions(1),
//	)
func WithEvaluator(ctx context.Context, fn func(Evaluator) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	ev := New(opts...)

	defer func() {
		if closeErr := ev.Close(); closeErr != nil {
			log.Warn("failed to close evaluator", "error", closeErr)
		}
	}()

	return fn(ev)
}
