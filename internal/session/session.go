package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/uci-engine-go/internal/config"
	"github.com/wagiedev/uci-engine-go/internal/errors"
	"github.com/wagiedev/uci-engine-go/internal/position"
	"github.com/wagiedev/uci-engine-go/internal/uci"
)

// maxOutputTail is how many non-protocol output lines are kept for
// ProcessExitedError diagnostics.
const maxOutputTail = 20

// StrengthLimit caps engine playing strength via UCI_LimitStrength/UCI_Elo.
type StrengthLimit struct {
	Elo int
}

// Request is one evaluation: a position, a search depth and an optional
// strength limit.
type Request struct {
	Position position.Position
	Depth    int
	Strength *StrengthLimit
}

// Result is the outcome of a completed search.
type Result struct {
	// Move is the best move in UCI long algebraic notation, e.g. "e2e4".
	Move string
	// Ponder is the reply the engine expects, if it reported one.
	Ponder string
	// Depth is the last search depth the engine reported.
	Depth int
	// Score is the last evaluation the engine reported, if any.
	Score *uci.Score
	// PV is the last principal variation the engine reported.
	PV []string
	// SessionID identifies the session that produced the result.
	SessionID string
	// Elapsed is the wall time of the request.
	Elapsed time.Duration
}

// exitCoder is implemented by transports that know their process exit status.
type exitCoder interface {
	ExitCode() int
}

// pidReporter is implemented by transports backed by an OS process.
type pidReporter interface {
	Pid() int
}

// Session is one engine process driven through UCI request cycles.
// Run may be called again only on a keep-alive session that completed.
type Session struct {
	id        string
	log       *slog.Logger
	options   *config.Options
	transport config.Transport
	keepAlive bool

	state  atomic.Int32
	closed atomic.Bool

	runMu    sync.Mutex // Serializes Run
	started  bool
	strength *StrengthLimit
	tail     []string
	requests int

	releaseOnce sync.Once
	releaseErr  error
}

// New creates a session around transport. The transport is started by the
// first Run. When keepAlive is set a completed session keeps its engine
// running for further requests until Close.
func New(
	log *slog.Logger,
	options *config.Options,
	transport config.Transport,
	keepAlive bool,
) *Session {
	id := ulid.Make().String()

	return &Session{
		id:        id,
		log:       log.With("component", "session", "session_id", id),
		options:   options,
		transport: transport,
		keepAlive: keepAlive,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Requests returns how many requests this session has run.
func (s *Session) Requests() int {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	return s.requests
}

// Reusable reports whether the session can serve another request: it is
// keep-alive, completed its last request, and its engine is still up.
func (s *Session) Reusable() bool {
	return s.keepAlive && !s.closed.Load() && s.State() == StateCompleted && s.transport.IsReady()
}

func (s *Session) setState(state State) {
	previous := State(s.state.Swap(int32(state)))
	s.log.Debug("Session state changed", "from", previous, "to", state)
}

// Run evaluates req and returns the engine's best move.
//
// A best move reported as absent ("(none)", "0000", or nothing) completes
// the session normally and yields NoLegalMoveError. Failures leave the
// session Failed with its engine released; cancellation of ctx surfaces as
// the context error.
func (s *Session) Run(ctx context.Context, req Request) (*Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.closed.Load() || s.State() == StateFailed {
		return nil, errors.ErrSessionClosed
	}

	if s.started && (!s.keepAlive || s.State() != StateCompleted) {
		return nil, fmt.Errorf("run in state %s: %w", s.State(), errors.ErrSessionClosed)
	}

	s.requests++
	start := time.Now()

	result, err := s.run(ctx, req)
	if err != nil {
		failedIn := s.State()
		s.setState(StateFailed)
		s.release()

		err = s.describeFailure(err, failedIn)
		s.log.Warn("Session failed", "state", failedIn, "error", err)

		return nil, err
	}

	result.SessionID = s.id
	result.Elapsed = time.Since(start)

	s.setState(StateCompleted)
	s.log.Info("Search completed", "move", result.Move, "ponder", result.Ponder,
		"depth", result.Depth, "elapsed", result.Elapsed)

	if !s.keepAlive {
		s.release()
	}

	if result.Move == "" {
		return nil, &errors.NoLegalMoveError{FEN: req.Position.FEN()}
	}

	return result, nil
}

func (s *Session) run(ctx context.Context, req Request) (*Result, error) {
	var prelude string

	if !s.started {
		s.setState(StateStarting)

		if err := s.transport.Start(ctx); err != nil {
			return nil, err
		}

		s.started = true

		if p, ok := s.transport.(pidReporter); ok {
			s.log.Info("Engine started", "pid", p.Pid())
		}

		prelude = uci.EncodeUCI()
		if req.Strength != nil {
			prelude += uci.EncodeSetStrength(req.Strength.Elo)
		}
	} else if !sameStrength(s.strength, req.Strength) {
		if req.Strength != nil {
			prelude = uci.EncodeSetStrength(req.Strength.Elo)
		} else {
			prelude = uci.EncodeClearStrength()
		}
	}

	s.strength = copyStrength(req.Strength)

	s.setState(StateAwaitingReady)

	if err := s.write(ctx, prelude+uci.EncodeIsReady()); err != nil {
		return nil, err
	}

	if _, err := s.await(ctx, s.options.HandshakeTimeout, isReadyOK, nil); err != nil {
		if stderrors.Is(err, errPhaseTimeout) {
			return nil, &errors.HandshakeTimeoutError{Timeout: s.options.HandshakeTimeout}
		}

		return nil, err
	}

	s.setState(StateConfiguring)

	if err := s.write(ctx, uci.EncodePosition(req.Position.FEN())+uci.EncodeGo(req.Depth)); err != nil {
		return nil, err
	}

	s.setState(StateSearching)

	result := &Result{}

	ev, err := s.await(ctx, s.options.SearchTimeout, isBestMove, result.observe)
	if err != nil {
		if stderrors.Is(err, errPhaseTimeout) {
			return nil, &errors.SearchTimeoutError{Timeout: s.options.SearchTimeout, Depth: req.Depth}
		}

		return nil, err
	}

	if bm := ev.(*uci.BestMove); bm.HasMove() {
		result.Move = bm.Move
		result.Ponder = bm.Ponder
	}

	return result, nil
}

// observe folds a search info line into the result.
func (r *Result) observe(info *uci.Info) {
	if info.MultiPV > 1 {
		return
	}

	if info.Depth > 0 {
		r.Depth = info.Depth
	}

	if info.Score != nil {
		r.Score = info.Score
	}

	if len(info.PV) > 0 {
		r.PV = info.PV
	}
}

var errPhaseTimeout = stderrors.New("phase timed out")

func isReadyOK(ev uci.Event) bool {
	_, ok := ev.(uci.ReadyOK)
	return ok
}

func isBestMove(ev uci.Event) bool {
	_, ok := ev.(*uci.BestMove)
	return ok
}

// await reads engine output until an event satisfies match, discarding
// everything else. Info events are passed to onInfo when it is set. The
// wait is bounded by timeout; expiry of that bound alone yields
// errPhaseTimeout.
func (s *Session) await(
	ctx context.Context,
	timeout time.Duration,
	match func(uci.Event) bool,
	onInfo func(*uci.Info),
) (uci.Event, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		line, err := s.transport.ReadLine(phaseCtx)
		if err != nil {
			return nil, s.readFailure(ctx, err)
		}

		ev, ok := uci.Decode(line)
		if !ok {
			continue
		}

		if match(ev) {
			return ev, nil
		}

		switch e := ev.(type) {
		case *uci.Info:
			if onInfo != nil {
				onInfo(e)
			}
		case *uci.Unrecognized:
			s.remember(e.Raw)
		}
	}
}

func (s *Session) readFailure(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", s.State(), ctx.Err())
	case stderrors.Is(err, context.DeadlineExceeded):
		return errPhaseTimeout
	case stderrors.Is(err, io.EOF):
		return &errors.ProcessExitedError{State: s.State().String(), ExitCode: -1}
	case stderrors.Is(err, errors.ErrTransportClosed):
		return fmt.Errorf("%s: %w", s.State(), errors.ErrSessionClosed)
	default:
		return &errors.ProcessExitedError{State: s.State().String(), ExitCode: -1, Err: err}
	}
}

func (s *Session) write(ctx context.Context, text string) error {
	err := s.transport.WriteLine(ctx, text)

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", s.State(), ctx.Err())
	case stderrors.Is(err, errors.ErrTransportClosed):
		return fmt.Errorf("%s: %w", s.State(), errors.ErrSessionClosed)
	default:
		return &errors.ProcessExitedError{State: s.State().String(), ExitCode: -1, Err: err}
	}
}

// remember keeps the most recent non-protocol output lines.
func (s *Session) remember(line string) {
	if len(s.tail) == maxOutputTail {
		s.tail = append(s.tail[:0], s.tail[1:]...)
	}

	s.tail = append(s.tail, line)
}

// describeFailure completes a ProcessExitedError with what is known once
// the engine has been released.
func (s *Session) describeFailure(err error, state State) error {
	exited, ok := stderrors.AsType[*errors.ProcessExitedError](err)
	if !ok {
		return err
	}

	exited.State = state.String()
	exited.Output = append([]string(nil), s.tail...)

	if ec, ok := s.transport.(exitCoder); ok {
		exited.ExitCode = ec.ExitCode()
	}

	return exited
}

// release terminates the engine and closes its streams. It runs at most once.
func (s *Session) release() {
	s.releaseOnce.Do(func() {
		s.releaseErr = s.transport.Close()
		if s.releaseErr != nil {
			s.log.Warn("Failed to release engine", "error", s.releaseErr)
		} else {
			s.log.Debug("Engine released")
		}
	})
}

// Close releases the engine. A Run in progress fails with ErrSessionClosed.
// It's safe to call Close multiple times.
func (s *Session) Close() error {
	s.closed.Store(true)
	s.release()

	return s.releaseErr
}

func sameStrength(a, b *StrengthLimit) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Elo == b.Elo
}

func copyStrength(l *StrengthLimit) *StrengthLimit {
	if l == nil {
		return nil
	}

	c := *l

	return &c
}
