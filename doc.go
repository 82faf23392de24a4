// Package uciengine asks a UCI chess engine for the best move in a position.
//
// Every evaluation runs an engine executable as a child process, drives the
// minimal UCI exchange (uci, optional strength limit, isready, position,
// go depth) and returns the engine's bestmove. The process is always
// terminated and its pipes closed before the call returns, whatever the
// outcome.
//
// # Basic Usage
//
// For a single evaluation, use GetBestMove on an Evaluator:
//
//	ev := uciengine.New(uciengine.WithEnginePath("/usr/games/stockfish"))
//	defer ev.Close()
//
//	move, err := ev.GetBestMove(ctx, uciengine.StartFEN, uciengine.WithDepth(12))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(move) // e.g. "e2e4"
//
// Or the one-shot helper, which creates and closes the Evaluator for you:
//
//	req, err := uciengine.NewRequest(fen, uciengine.WithDepth(8), uciengine.WithElo(1500))
//	if err != nil {
//	    return err
//	}
//
//	result, err := uciengine.Evaluate(ctx, req, uciengine.WithEnginePath(path))
//
// # Concurrency
//
// An Evaluator is safe for concurrent use. Each call gets its own engine
// process, capped by WithMaxProcesses. WithIdleSessions keeps warm engines
// between calls instead of spawning one per request; a reused engine is
// re-synchronised with isready before every search.
//
// # Errors
//
// Failures are typed. Use errors.As (or errors.AsType) to inspect them:
//
//	if timeout, ok := errors.AsType[*uciengine.SearchTimeoutError](err); ok {
//	    fmt.Println("no bestmove after", timeout.Timeout)
//	}
//
// Code maps any error to a short stable string such as "SEARCH_TIMEOUT".
// Caller cancellation is reported as the context error.
//
// # Logging
//
// Pass a *slog.Logger with WithLogger. Engine I/O is logged at Debug,
// process lifecycle at Info. Without a logger the package is silent.
package uciengine
