package uciengine

import (
	"github.com/wagiedev/uci-engine-go/internal/config"
	"github.com/wagiedev/uci-engine-go/internal/position"
	"github.com/wagiedev/uci-engine-go/internal/session"
	"github.com/wagiedev/uci-engine-go/internal/supervisor"
	"github.com/wagiedev/uci-engine-go/internal/uci"
)

// StartFEN is the standard chess starting position.
const StartFEN = position.StartFEN

// UCI_Elo bounds declared by Stockfish, for use with WithEloRange.
const (
	StockfishMinElo = config.StockfishMinElo
	StockfishMaxElo = config.StockfishMaxElo
)

// DefaultDepth is the search depth of a request built without WithDepth.
const DefaultDepth = 2

type (
	// Position is a validated FEN string.
	Position = position.Position

	// Request is one best-move query.
	Request = session.Request

	// StrengthLimit caps engine strength at an Elo rating.
	StrengthLimit = session.StrengthLimit

	// Result is the engine's answer to a Request.
	Result = session.Result

	// Score is an engine evaluation in centipawns or moves to mate.
	Score = uci.Score

	// Outcome pairs a request with its result or error.
	Outcome = supervisor.Outcome

	// Stats is a point-in-time view of evaluator activity.
	Stats = supervisor.Stats
)

// ParsePosition validates fen.
func ParsePosition(fen string) (Position, error) {
	return position.Parse(fen)
}

// RequestOption adjusts a Request built by NewRequest.
type RequestOption func(*Request)

// WithDepth sets the search depth in plies.
func WithDepth(depth int) RequestOption {
	return func(r *Request) {
		r.Depth = depth
	}
}

// WithElo limits engine strength to elo via UCI_LimitStrength and UCI_Elo.
func WithElo(elo int) RequestOption {
	return func(r *Request) {
		r.Strength = &StrengthLimit{Elo: elo}
	}
}

// NewRequest builds a request for fen searched to DefaultDepth unless
// WithDepth says otherwise. An empty or malformed fen returns
// InvalidArgumentError. Depth and elo are checked when the request is
// evaluated.
func NewRequest(fen string, opts ...RequestOption) (Request, error) {
	pos, err := position.Parse(fen)
	if err != nil {
		return Request{}, err
	}

	req := Request{Position: pos, Depth: DefaultDepth}
	for _, opt := range opts {
		opt(&req)
	}

	return req, nil
}
