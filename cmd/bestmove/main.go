// Command bestmove asks a UCI engine for the best move in one or more positions.
//
//	bestmove -fen "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1" -depth 12
//	bestmove -file positions.txt -procs 4 -json > moves.jsonl
//
// The engine is taken from -engine, then UCI_ENGINE_PATH, then a stockfish
// binary found in PATH or a common install directory.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	uciengine "github.com/wagiedev/uci-engine-go"
	"github.com/wagiedev/uci-engine-go/internal/locate"
)

type flags struct {
	engine   string
	fen      string
	file     string
	depth    int
	elo      int
	procs    int
	idle     int
	timeout  time.Duration
	jsonOut  bool
	verbose  bool
	identify bool
	profile  string
}

// line is one evaluation in -json output.
type line struct {
	FEN       string   `json:"fen"`
	Move      string   `json:"move,omitempty"`
	Ponder    string   `json:"ponder,omitempty"`
	Depth     int      `json:"depth,omitempty"`
	ScoreCP   *int     `json:"score_cp,omitempty"`
	ScoreMate *int     `json:"score_mate,omitempty"`
	PV        []string `json:"pv,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms,omitempty"`
	Code      string   `json:"code,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var f flags

	flag.StringVar(&f.engine, "engine", "", "engine executable (default: $"+locate.EnvEnginePath+" or stockfish)")
	flag.StringVar(&f.fen, "fen", "", "position to evaluate")
	flag.StringVar(&f.file, "file", "", "file with one FEN per line, - for stdin")
	flag.IntVar(&f.depth, "depth", uciengine.DefaultDepth, "search depth in plies")
	flag.IntVar(&f.elo, "elo", 0, "limit engine strength to this Elo (0 for full strength)")
	flag.IntVar(&f.procs, "procs", runtime.GOMAXPROCS(0), "engines running at once")
	flag.IntVar(&f.idle, "idle", 0, "warm engines kept between positions")
	flag.DurationVar(&f.timeout, "timeout", 0, "search timeout per position (default 60s)")
	flag.BoolVar(&f.jsonOut, "json", false, "write one JSON object per position")
	flag.BoolVar(&f.verbose, "v", false, "log engine traffic to stderr")
	flag.BoolVar(&f.identify, "identify", false, "print the engine's name and exit")
	flag.StringVar(&f.profile, "profile", "", "write a CPU profile to this directory")
	flag.Parse()

	if f.profile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(f.profile), profile.Quiet).Stop()
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locator := locate.New(&locate.Config{EnginePath: f.engine, Logger: log})

	enginePath, err := locator.Find()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bestmove:", err)

		return 2
	}

	if f.identify {
		name, err := locator.Identify(ctx, enginePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bestmove:", err)

			return 1
		}

		fmt.Printf("%s (%s)\n", name, enginePath)

		return 0
	}

	fens, err := positions(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bestmove:", err)

		return 2
	}

	ev := uciengine.New(
		uciengine.WithEnginePath(enginePath),
		uciengine.WithLogger(log),
		uciengine.WithMaxProcesses(f.procs),
		uciengine.WithIdleSessions(f.idle),
		uciengine.WithSearchTimeout(f.timeout),
	)

	defer func() {
		if err := ev.Close(); err != nil {
			log.Warn("failed to close evaluator", "error", err)
		}
	}()

	lines := evaluateAll(ctx, ev, fens, f)

	failed := 0

	for _, l := range lines {
		if l.Error != "" {
			failed++
		}

		if err := write(os.Stdout, l, f.jsonOut); err != nil {
			fmt.Fprintln(os.Stderr, "bestmove:", err)

			return 1
		}
	}

	if failed > 0 {
		return 1
	}

	return 0
}

// positions collects the FENs named by -fen and -file.
func positions(f flags) ([]string, error) {
	var fens []string

	if f.fen != "" {
		fens = append(fens, f.fen)
	}

	if f.file != "" {
		var in io.Reader = os.Stdin

		if f.file != "-" {
			file, err := os.Open(f.file)
			if err != nil {
				return nil, fmt.Errorf("open positions: %w", err)
			}
			defer file.Close()

			in = file
		}

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}

			fens = append(fens, text)
		}

		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}
	}

	if len(fens) == 0 {
		return nil, fmt.Errorf("no positions: pass -fen or -file")
	}

	return fens, nil
}

// evaluateAll runs every position and reports progress when there is more
// than one. Results keep input order.
func evaluateAll(ctx context.Context, ev uciengine.Evaluator, fens []string, f flags) []line {
	var bar *progressbar.ProgressBar
	if len(fens) > 1 {
		bar = progressbar.NewOptions(len(fens),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("evaluating"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	lines := make([]line, len(fens))

	var g errgroup.Group
	g.SetLimit(max(f.procs, 1))

	for i, fen := range fens {
		g.Go(func() error {
			lines[i] = evaluateOne(ctx, ev, fen, f)

			if bar != nil {
				_ = bar.Add(1)
			}

			return nil
		})
	}

	_ = g.Wait()

	if bar != nil {
		_ = bar.Finish()
	}

	return lines
}

func evaluateOne(ctx context.Context, ev uciengine.Evaluator, fen string, f flags) line {
	out := line{FEN: fen}

	opts := []uciengine.RequestOption{uciengine.WithDepth(f.depth)}
	if f.elo > 0 {
		opts = append(opts, uciengine.WithElo(f.elo))
	}

	req, err := uciengine.NewRequest(fen, opts...)
	if err == nil {
		var result *uciengine.Result

		result, err = ev.Evaluate(ctx, req)
		if err == nil {
			out.Move = result.Move
			out.Ponder = result.Ponder
			out.Depth = result.Depth
			out.PV = result.PV
			out.ElapsedMS = result.Elapsed.Milliseconds()

			if result.Score != nil {
				out.ScoreCP, out.ScoreMate = result.Score.CP, result.Score.Mate
			}
		}
	}

	if err != nil {
		out.Code = uciengine.Code(err)
		out.Error = err.Error()
	}

	return out
}

func write(w io.Writer, l line, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(l)
	}

	if l.Error != "" {
		_, err := fmt.Fprintf(w, "%s\terror %s: %s\n", l.FEN, l.Code, l.Error)

		return err
	}

	_, err := fmt.Fprintf(w, "%s\t%s\n", l.FEN, l.Move)

	return err
}
