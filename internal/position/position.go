// Package position holds the FEN position value passed to the engine.
//
// Validation here is structural only: it guards the wire protocol (one
// command per line) and rejects obviously malformed input before a process
// is spawned. Whether the position is legal is left to the engine.
package position

import (
	"strings"

	"github.com/wagiedev/uci-engine-go/internal/errors"
)

// StartFEN is the standard initial chess position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is an immutable, structurally validated FEN string.
type Position struct {
	fen string
}

// Parse validates fen and returns the Position it describes.
//
// Surrounding whitespace is trimmed and runs of inner whitespace collapse
// to a single space. Returns InvalidArgumentError when fen is empty,
// contains a line break, or does not have the basic FEN shape.
func Parse(fen string) (Position, error) {
	if strings.ContainsAny(fen, "\r\n") {
		return Position{}, invalid(fen, "must be a single line")
	}

	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return Position{}, invalid(fen, "must not be empty")
	}

	if len(fields) < 4 || len(fields) > 6 {
		return Position{}, invalid(fen, "must have 4 to 6 space-separated fields")
	}

	if reason := checkPlacement(fields[0]); reason != "" {
		return Position{}, invalid(fen, reason)
	}

	if fields[1] != "w" && fields[1] != "b" {
		return Position{}, invalid(fen, "side to move must be 'w' or 'b'")
	}

	return Position{fen: strings.Join(fields, " ")}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(fen string) Position {
	p, err := Parse(fen)
	if err != nil {
		panic(err)
	}

	return p
}

// FEN returns the normalized FEN string.
func (p Position) FEN() string {
	return p.fen
}

// IsZero reports whether p was never parsed.
func (p Position) IsZero() bool {
	return p.fen == ""
}

func (p Position) String() string {
	return p.fen
}

func checkPlacement(placement string) string {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return "piece placement must have 8 ranks"
	}

	for _, rank := range ranks {
		squares := 0

		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				squares += int(ch - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", ch):
				squares++
			default:
				return "piece placement has unexpected character " + string(ch)
			}
		}

		if squares != 8 {
			return "every rank must describe 8 squares"
		}
	}

	return ""
}

func invalid(fen, reason string) error {
	return &errors.InvalidArgumentError{Field: "fen", Value: fen, Reason: reason}
}
