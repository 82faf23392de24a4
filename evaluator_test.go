package uciengine_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uciengine "github.com/wagiedev/uci-engine-go"
	"github.com/wagiedev/uci-engine-go/internal/enginetest"
)

func TestMain(m *testing.M) {
	enginetest.MaybeServe()
	os.Exit(m.Run())
}

// stubEngine returns options that run the test binary as a stub engine.
func stubEngine(t *testing.T, mode string) ([]uciengine.Option, string) {
	t.Helper()

	o, logPath := enginetest.ProcessOptions(t, mode)

	return []uciengine.Option{
		uciengine.WithEnginePath(o.EnginePath),
		uciengine.WithEngineEnv(o.Env),
		uciengine.WithHandshakeTimeout(o.HandshakeTimeout),
		uciengine.WithSearchTimeout(o.SearchTimeout),
		uciengine.WithShutdownGrace(o.ShutdownGrace),
	}, logPath
}

func TestGetBestMove_ScriptedEngine(t *testing.T) {
	factory, created := enginetest.Factory(func() *enginetest.FakeTransport {
		return enginetest.NewScriptedTransport(
			"id name Stub",
			"uciok",
			"readyok",
			"info depth 1",
			"bestmove e2e4 ponder e7e5",
		)
	})

	ev := uciengine.New(uciengine.WithTransportFactory(factory))
	defer ev.Close()

	move, err := ev.GetBestMove(context.Background(), uciengine.StartFEN, uciengine.WithDepth(1))
	require.NoError(t, err)
	require.Equal(t, "e2e4", move)

	transports := created()
	require.Len(t, transports, 1)
	require.True(t, transports[0].Closed())
}

func TestGetBestMove_HandshakeTimeout(t *testing.T) {
	opts, _ := stubEngine(t, enginetest.ModeSilent)
	opts = append(opts, uciengine.WithHandshakeTimeout(300*time.Millisecond))

	ev := uciengine.New(opts...)
	defer ev.Close()

	start := time.Now()
	_, err := ev.GetBestMove(context.Background(), uciengine.StartFEN)

	timeout, ok := errors.AsType[*uciengine.HandshakeTimeoutError](err)
	require.True(t, ok, "expected HandshakeTimeoutError, got %v", err)
	require.Equal(t, 300*time.Millisecond, timeout.Timeout)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, uciengine.CodeHandshakeTimeout, uciengine.Code(err))
	require.Equal(t, uciengine.Stats{Spawned: 1}, ev.Stats())
}

func TestGetBestMove_EmptyFENSpawnsNothing(t *testing.T) {
	factory, created := enginetest.Factory(func() *enginetest.FakeTransport {
		return enginetest.NewFakeTransport(enginetest.ModeNormal)
	})

	ev := uciengine.New(uciengine.WithTransportFactory(factory))
	defer ev.Close()

	for _, fen := range []string{"", "   "} {
		_, err := ev.GetBestMove(context.Background(), fen)

		invalid, ok := errors.AsType[*uciengine.InvalidArgumentError](err)
		require.True(t, ok, "expected InvalidArgumentError, got %v", err)
		require.Equal(t, "fen", invalid.Field)
	}

	require.Empty(t, created())
}

func TestGetBestMove_EloPrecedesIsReady(t *testing.T) {
	opts, logPath := stubEngine(t, enginetest.ModeNormal)

	ev := uciengine.New(opts...)
	defer ev.Close()

	move, err := ev.GetBestMove(context.Background(), uciengine.StartFEN, uciengine.WithElo(1200))
	require.NoError(t, err)
	require.Equal(t, enginetest.StubBestMove, move)

	require.Equal(t, []string{
		"uci",
		"setoption name UCI_LimitStrength value true",
		"setoption name UCI_Elo value 1200",
		"isready",
		"position fen " + uciengine.StartFEN,
		"go depth 2",
	}, enginetest.Commands(t, logPath))
}

func TestGetBestMove_EloRange(t *testing.T) {
	factory, created := enginetest.Factory(func() *enginetest.FakeTransport {
		return enginetest.NewFakeTransport(enginetest.ModeNormal)
	})

	ev := uciengine.New(
		uciengine.WithTransportFactory(factory),
		uciengine.WithEloRange(uciengine.StockfishMinElo, uciengine.StockfishMaxElo),
	)
	defer ev.Close()

	_, err := ev.GetBestMove(context.Background(), uciengine.StartFEN, uciengine.WithElo(1200))
	require.Equal(t, uciengine.CodeInvalidArgument, uciengine.Code(err))
	require.Empty(t, created())

	move, err := ev.GetBestMove(context.Background(), uciengine.StartFEN, uciengine.WithElo(2000))
	require.NoError(t, err)
	require.Equal(t, enginetest.StubBestMove, move)
}

func TestEvaluate_OneShot(t *testing.T) {
	opts, _ := stubEngine(t, enginetest.ModeNormal)

	req, err := uciengine.NewRequest(uciengine.StartFEN, uciengine.WithDepth(4))
	require.NoError(t, err)

	result, err := uciengine.Evaluate(context.Background(), req, opts...)
	require.NoError(t, err)
	require.Equal(t, enginetest.StubBestMove, result.Move)
	require.Equal(t, enginetest.StubPonder, result.Ponder)
	require.Equal(t, 4, result.Depth)
	require.NotNil(t, result.Score)
	require.NotEmpty(t, result.SessionID)
}

func TestEvaluate_EngineCrash(t *testing.T) {
	opts, _ := stubEngine(t, enginetest.ModeCrashOnGo)

	req, err := uciengine.NewRequest(uciengine.StartFEN)
	require.NoError(t, err)

	_, err = uciengine.Evaluate(context.Background(), req, opts...)

	exited, ok := errors.AsType[*uciengine.ProcessExitedError](err)
	require.True(t, ok, "expected ProcessExitedError, got %v", err)
	require.Equal(t, 3, exited.ExitCode)
	require.Contains(t, exited.Output, "stub: segmentation fault")
}

func TestEvaluate_MissingEngine(t *testing.T) {
	req, err := uciengine.NewRequest(uciengine.StartFEN)
	require.NoError(t, err)

	_, err = uciengine.Evaluate(context.Background(), req,
		uciengine.WithEnginePath("/nonexistent/stockfish"))

	spawn, ok := errors.AsType[*uciengine.SpawnError](err)
	require.True(t, ok, "expected SpawnError, got %v", err)
	require.Equal(t, "/nonexistent/stockfish", spawn.Path)
}

func TestEvaluate_Cancelled(t *testing.T) {
	opts, _ := stubEngine(t, enginetest.ModeHangSearch)

	req, err := uciengine.NewRequest(uciengine.StartFEN)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = uciengine.Evaluate(ctx, req, opts...)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, uciengine.CodeCancelled, uciengine.Code(err))
}

func TestEvaluator_PooledConcurrentCalls(t *testing.T) {
	opts, _ := stubEngine(t, enginetest.ModeNormal)
	opts = append(opts, uciengine.WithIdleSessions(2), uciengine.WithMaxProcesses(2))

	ev := uciengine.New(opts...)

	var wg sync.WaitGroup

	for range 6 {
		wg.Go(func() {
			move, err := ev.GetBestMove(context.Background(), uciengine.StartFEN, uciengine.WithDepth(3))
			assert.NoError(t, err)
			assert.Equal(t, enginetest.StubBestMove, move)
		})
	}

	wg.Wait()

	stats := ev.Stats()
	require.Zero(t, stats.Busy)
	require.LessOrEqual(t, stats.Idle, 2)
	require.Equal(t, int64(6), stats.Spawned+stats.Reused)

	require.NoError(t, ev.Close())

	_, err := ev.GetBestMove(context.Background(), uciengine.StartFEN)
	require.ErrorIs(t, err, uciengine.ErrClosed)
}

func TestEvaluator_Batch(t *testing.T) {
	factory, _ := enginetest.Factory(func() *enginetest.FakeTransport {
		return enginetest.NewFakeTransport(enginetest.ModeNormal)
	})

	ev := uciengine.New(uciengine.WithTransportFactory(factory), uciengine.WithMaxProcesses(2))
	defer ev.Close()

	good, err := uciengine.NewRequest(uciengine.StartFEN, uciengine.WithDepth(3))
	require.NoError(t, err)

	bad := good
	bad.Depth = 0

	outcomes := ev.EvaluateBatch(context.Background(), []uciengine.Request{good, bad, good})
	require.Len(t, outcomes, 3)
	require.NoError(t, outcomes[0].Err)
	require.Equal(t, uciengine.CodeInvalidArgument, uciengine.Code(outcomes[1].Err))
	require.NoError(t, outcomes[2].Err)
	require.Equal(t, 3, outcomes[2].Result.Depth)
}

func TestEvaluator_Async(t *testing.T) {
	factory, _ := enginetest.Factory(func() *enginetest.FakeTransport {
		return enginetest.NewFakeTransport(enginetest.ModeNormal)
	})

	ev := uciengine.New(uciengine.WithTransportFactory(factory))
	defer ev.Close()

	req, err := uciengine.NewRequest(uciengine.StartFEN)
	require.NoError(t, err)

	outcome, ok := <-ev.EvaluateAsync(context.Background(), req)
	require.True(t, ok)
	require.NoError(t, outcome.Err)
	require.Equal(t, enginetest.StubBestMove, outcome.Result.Move)
}

func TestWithEvaluator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := uciengine.WithEvaluator(ctx, func(_ uciengine.Evaluator) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithEvaluator_ClosesAfterCallback(t *testing.T) {
	factory, _ := enginetest.Factory(func() *enginetest.FakeTransport {
		return enginetest.NewFakeTransport(enginetest.ModeNormal)
	})

	var kept uciengine.Evaluator

	sentinel := errors.New("callback failed")

	err := uciengine.WithEvaluator(context.Background(), func(ev uciengine.Evaluator) error {
		kept = ev

		return sentinel
	}, uciengine.WithTransportFactory(factory))
	require.ErrorIs(t, err, sentinel)

	_, err = kept.GetBestMove(context.Background(), uciengine.StartFEN)
	require.ErrorIs(t, err, uciengine.ErrClosed)
}

func TestNewRequest(t *testing.T) {
	req, err := uciengine.NewRequest("  " + uciengine.StartFEN + "  ")
	require.NoError(t, err)
	assert.Equal(t, uciengine.StartFEN, req.Position.FEN())
	assert.Equal(t, uciengine.DefaultDepth, req.Depth)
	assert.Nil(t, req.Strength)

	req, err = uciengine.NewRequest(uciengine.StartFEN, uciengine.WithDepth(7), uciengine.WithElo(1500))
	require.NoError(t, err)
	assert.Equal(t, 7, req.Depth)
	assert.Equal(t, &uciengine.StrengthLimit{Elo: 1500}, req.Strength)

	_, err = uciengine.NewRequest("rnbqkbnr/pppppppp w")
	assert.Equal(t, uciengine.CodeInvalidArgument, uciengine.Code(err))
}
