// Command bestmove-server serves best-move evaluation over HTTP and WebSocket.
//
//	POST /v1/bestmove   {"fen": "...", "depth": 8, "elo": 1500}
//	GET  /v1/channel    WebSocket of {"id", "method": "getBestMove", ...} calls
//	GET  /healthz
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/wagiedev/uci-engine-go/internal/bridge"
	"github.com/wagiedev/uci-engine-go/internal/config"
	"github.com/wagiedev/uci-engine-go/internal/locate"
	"github.com/wagiedev/uci-engine-go/internal/supervisor"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		addr         = flag.String("addr", ":8080", "listen address")
		engine       = flag.String("engine", "", "engine executable (default: $"+locate.EnvEnginePath+" or stockfish)")
		procs        = flag.Int("procs", runtime.GOMAXPROCS(0), "engines running at once")
		idle         = flag.Int("idle", 1, "warm engines kept between requests")
		stockfishElo = flag.Bool("stockfish-elo", false, "reject elo outside Stockfish's UCI_Elo range")
		verbose      = flag.Bool("v", false, "debug logging")
	)

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := serve(log, *addr, *engine, *procs, *idle, *stockfishElo); err != nil {
		fmt.Fprintln(os.Stderr, "bestmove-server:", err)
		os.Exit(1)
	}
}

func serve(log *slog.Logger, addr, engine string, procs, idle int, stockfishElo bool) error {
	enginePath, err := locate.New(&locate.Config{EnginePath: engine, Logger: log}).Find()
	if err != nil {
		return err
	}

	options := &config.Options{
		Logger:       log,
		EnginePath:   enginePath,
		MaxProcesses: procs,
		IdleSessions: idle,
	}

	if stockfishElo {
		options.MinElo, options.MaxElo = config.StockfishMinElo, config.StockfishMaxElo
	}

	sup := supervisor.New(options)

	defer func() {
		if err := sup.Close(); err != nil {
			log.Warn("failed to close supervisor", "error", err)
		}
	}()

	server := bridge.NewServer(log, bridge.NewDispatcher(log, sup), sup.Stats)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		log.Info("Listening", "addr", addr, "engine", enginePath)

		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
