// Package supervisor manages engine sessions on behalf of callers.
//
// It validates requests before anything is spawned, runs each evaluation
// on its own worker goroutine, caps the number of busy engines, and
// optionally keeps warm sessions for reuse.
package supervisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wagiedev/uci-engine-go/internal/config"
	"github.com/wagiedev/uci-engine-go/internal/errors"
	"github.com/wagiedev/uci-engine-go/internal/session"
	"github.com/wagiedev/uci-engine-go/internal/subprocess"
)

// Outcome pairs a request with what became of it.
type Outcome struct {
	Request session.Request
	Result  *session.Result
	Err     error
}

// Stats is a point-in-time view of supervisor activity.
type Stats struct {
	// Busy is the number of evaluations currently holding an engine.
	Busy int
	// Idle is the number of warm sessions waiting for reuse.
	Idle int
	// Spawned counts sessions created since the supervisor started.
	Spawned int64
	// Reused counts evaluations served by a warm session.
	Reused int64
}

// Supervisor hands requests to engine sessions.
type Supervisor struct {
	log          *slog.Logger
	options      *config.Options
	newTransport config.TransportFactory
	slots        *semaphore.Weighted

	mu     sync.Mutex
	idle   []*session.Session
	closed bool
	active sync.WaitGroup

	busy    atomic.Int64
	spawned atomic.Int64
	reused  atomic.Int64
}

// New creates a supervisor. options may be nil; defaults are applied to a copy.
func New(options *config.Options) *Supervisor {
	options = options.WithDefaults()

	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	newTransport := options.NewTransport
	if newTransport == nil {
		newTransport = subprocess.NewTransport
	}

	return &Supervisor{
		log:          log.With("component", "supervisor"),
		options:      options,
		newTransport: newTransport,
		slots:        semaphore.NewWeighted(int64(options.MaxProcesses)),
	}
}

// Options returns the effective configuration.
func (s *Supervisor) Options() *config.Options {
	return s.options
}

// Validate checks req without touching any engine.
func (s *Supervisor) Validate(req session.Request) error {
	if req.Position.IsZero() {
		return &errors.InvalidArgumentError{Field: "fen", Value: `""`, Reason: "must not be empty"}
	}

	if req.Depth < 1 {
		return &errors.InvalidArgumentError{Field: "depth", Value: req.Depth, Reason: "must be at least 1"}
	}

	if req.Strength != nil {
		elo := req.Strength.Elo
		if elo < 1 {
			return &errors.InvalidArgumentError{Field: "elo", Value: elo, Reason: "must be positive"}
		}

		bounded := s.options.MinElo != 0 || s.options.MaxElo != 0
		if bounded && (elo < s.options.MinElo || elo > s.options.MaxElo) {
			return &errors.InvalidArgumentError{
				Field:  "elo",
				Value:  elo,
				Reason: fmt.Sprintf("must be within [%d, %d]", s.options.MinElo, s.options.MaxElo),
			}
		}
	}

	return nil
}

// Evaluate runs req on an engine and returns its best move.
//
// The evaluation executes on a worker goroutine; Evaluate returns once that
// worker has finished with its engine, so a failed or cancelled request
// leaves no process behind. Invalid requests are rejected before anything
// is spawned.
func (s *Supervisor) Evaluate(ctx context.Context, req session.Request) (*session.Result, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	if err := s.enter(); err != nil {
		return nil, err
	}

	done := make(chan Outcome, 1)

	go func() {
		defer s.active.Done()

		result, err := s.evaluate(ctx, req)
		done <- Outcome{Request: req, Result: result, Err: err}
	}()

	outcome := <-done

	return outcome.Result, outcome.Err
}

// EvaluateAsync starts req and returns a channel that delivers exactly one
// Outcome and is then closed.
func (s *Supervisor) EvaluateAsync(ctx context.Context, req session.Request) <-chan Outcome {
	out := make(chan Outcome, 1)

	go func() {
		defer close(out)

		result, err := s.Evaluate(ctx, req)
		out <- Outcome{Request: req, Result: result, Err: err}
	}()

	return out
}

// EvaluateBatch evaluates every request, at most MaxProcesses at a time,
// and returns their outcomes in request order. One request failing does
// not stop the others.
func (s *Supervisor) EvaluateBatch(ctx context.Context, reqs []session.Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.options.MaxProcesses)

	for i, req := range reqs {
		g.Go(func() error {
			result, err := s.Evaluate(ctx, req)
			outcomes[i] = Outcome{Request: req, Result: result, Err: err}

			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}

func (s *Supervisor) enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSupervisorClosed
	}

	s.active.Add(1)

	return nil
}

func (s *Supervisor) evaluate(ctx context.Context, req session.Request) (*session.Result, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for engine slot: %w", err)
	}
	defer s.slots.Release(1)

	s.busy.Add(1)
	defer s.busy.Add(-1)

	sess := s.checkout()
	if sess == nil {
		sess = session.New(s.log, s.options, s.newTransport(s.log, s.options), s.options.IdleSessions > 0)
		s.spawned.Add(1)
	} else {
		s.reused.Add(1)
		s.log.Debug("Reusing warm session", "session_id", sess.ID())
	}

	result, err := sess.Run(ctx, req)
	s.checkin(sess)

	return result, err
}

// checkout takes a reusable idle session, discarding dead ones.
func (s *Supervisor) checkout() *session.Session {
	var (
		found *session.Session
		dead  []*session.Session
	)

	s.mu.Lock()
	for len(s.idle) > 0 && found == nil {
		last := len(s.idle) - 1
		sess := s.idle[last]
		s.idle = s.idle[:last]

		if sess.Reusable() {
			found = sess
		} else {
			dead = append(dead, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range dead {
		s.log.Debug("Discarding dead idle session", "session_id", sess.ID())
		_ = sess.Close()
	}

	return found
}

// checkin parks sess for reuse when possible and closes it otherwise.
func (s *Supervisor) checkin(sess *session.Session) {
	s.mu.Lock()

	if !s.closed && sess.Reusable() && len(s.idle) < s.options.IdleSessions {
		s.idle = append(s.idle, sess)
		s.mu.Unlock()

		return
	}

	s.mu.Unlock()

	if err := sess.Close(); err != nil {
		s.log.Warn("Failed to close session", "session_id", sess.ID(), "error", err)
	}
}

// Stats reports current activity.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	idle := len(s.idle)
	s.mu.Unlock()

	return Stats{
		Busy:    int(s.busy.Load()),
		Idle:    idle,
		Spawned: s.spawned.Load(),
		Reused:  s.reused.Load(),
	}
}

// Close rejects new work, waits for in-flight evaluations to finish, and
// terminates every idle engine. It's safe to call Close multiple times.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.active.Wait()

	s.mu.Lock()
	idle := s.idle
	s.idle = nil
	s.mu.Unlock()

	var errs []error

	for _, sess := range idle {
		if err := sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %s: %w", sess.ID(), err))
		}
	}

	s.log.Debug("Supervisor closed", "idle_closed", len(idle))

	return stderrors.Join(errs...)
}
