// Command bestmove-mcp exposes the get_best_move tool to MCP clients over stdio.
//
// Logs go to stderr; stdout carries the protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wagiedev/uci-engine-go/internal/bridge"
	"github.com/wagiedev/uci-engine-go/internal/config"
	"github.com/wagiedev/uci-engine-go/internal/locate"
	"github.com/wagiedev/uci-engine-go/internal/supervisor"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	engine := flag.String("engine", "", "engine executable (default: $"+locate.EnvEnginePath+" or stockfish)")
	idle := flag.Int("idle", 1, "warm engines kept between calls")
	verbose := flag.Bool("v", false, "debug logging")

	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(log, *engine, *idle); err != nil {
		fmt.Fprintln(os.Stderr, "bestmove-mcp:", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, engine string, idle int) error {
	enginePath, err := locate.New(&locate.Config{EnginePath: engine, Logger: log}).Find()
	if err != nil {
		return err
	}

	sup := supervisor.New(&config.Options{
		Logger:       log,
		EnginePath:   enginePath,
		IdleSessions: idle,
	})

	defer func() {
		if err := sup.Close(); err != nil {
			log.Warn("failed to close supervisor", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := bridge.NewMCPServer(log, bridge.NewDispatcher(log, sup), version)

	return bridge.ServeStdio(ctx, server)
}
