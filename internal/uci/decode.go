package uci

import (
	"strconv"
	"strings"
)

// Event is one decoded line of engine output.
// Implementations: ReadyOK, UCIOK, *BestMove, *Info, *Unrecognized.
type Event interface {
	event() // marker method

	// String renders the event back to its wire form, without line terminator.
	String() string
}

// ReadyOK answers isready.
type ReadyOK struct{}

func (ReadyOK) event() {}

func (ReadyOK) String() string { return "readyok" }

// UCIOK ends the engine's reply to uci.
type UCIOK struct{}

func (UCIOK) event() {}

func (UCIOK) String() string { return "uciok" }

// noMoveTokens are what engines print in place of a move when the side to
// move has none.
var noMoveTokens = map[string]bool{
	"":       true,
	"(none)": true,
	"0000":   true,
	"none":   true,
}

// BestMove terminates a search.
type BestMove struct {
	// Move is the first token after "bestmove". Empty when the engine
	// printed nothing after it.
	Move string
	// Ponder is the argument of the optional "ponder" token.
	Ponder string
}

func (*BestMove) event() {}

// HasMove reports whether the engine named an actual move.
func (b *BestMove) HasMove() bool {
	return !noMoveTokens[b.Move]
}

func (b *BestMove) String() string {
	s := "bestmove"
	if b.Move != "" {
		s += " " + b.Move
	}

	if b.Ponder != "" {
		s += " ponder " + b.Ponder
	}

	return s
}

// Score is an engine evaluation from the side to move's point of view.
// Exactly one of CP and Mate is set.
type Score struct {
	CP         *int
	Mate       *int
	LowerBound bool
	UpperBound bool
}

// Info carries search progress. Raw preserves the line; the remaining
// fields hold whatever keys the engine reported.
type Info struct {
	Raw      string
	Depth    int
	SelDepth int
	MultiPV  int
	Score    *Score
	Nodes    int64
	NPS      int64
	TimeMS   int64
	PV       []string
	Text     string
}

func (*Info) event() {}

func (i *Info) String() string { return i.Raw }

// Unrecognized is any other non-empty line, including diagnostics the
// engine wrote to stderr.
type Unrecognized struct {
	Raw string
}

func (*Unrecognized) event() {}

func (u *Unrecognized) String() string { return u.Raw }

// Decode turns one line of engine output into an Event.
//
// Leading and trailing whitespace, including a Windows "\r", is ignored.
// Returns false for lines that are empty after trimming. Decode never
// fails: lines it cannot classify become *Unrecognized.
func Decode(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	fields := strings.Fields(line)

	switch fields[0] {
	case "readyok":
		if len(fields) == 1 {
			return ReadyOK{}, true
		}
	case "uciok":
		if len(fields) == 1 {
			return UCIOK{}, true
		}
	case "bestmove":
		return decodeBestMove(fields[1:]), true
	case "info":
		return decodeInfo(line, fields[1:]), true
	}

	return &Unrecognized{Raw: line}, true
}

func decodeBestMove(args []string) *BestMove {
	bm := &BestMove{}

	if len(args) > 0 && args[0] != "ponder" {
		bm.Move = args[0]
		args = args[1:]
	}

	for i := 0; i+1 < len(args); i++ {
		if args[i] == "ponder" {
			bm.Ponder = args[i+1]

			break
		}
	}

	return bm
}

func decodeInfo(raw string, args []string) *Info {
	info := &Info{Raw: raw}

	for i := 0; i < len(args); i++ {
		key := args[i]

		switch key {
		case "depth":
			info.Depth, i = intArg(args, i)
		case "seldepth":
			info.SelDepth, i = intArg(args, i)
		case "multipv":
			info.MultiPV, i = intArg(args, i)
		case "nodes":
			info.Nodes, i = int64Arg(args, i)
		case "nps":
			info.NPS, i = int64Arg(args, i)
		case "time":
			info.TimeMS, i = int64Arg(args, i)
		case "score":
			info.Score, i = scoreArg(args, i)
		case "pv":
			info.PV = append([]string(nil), args[i+1:]...)
			i = len(args)
		case "string":
			info.Text = strings.Join(args[i+1:], " ")
			i = len(args)
		}
	}

	return info
}

func intArg(args []string, i int) (int, int) {
	if i+1 >= len(args) {
		return 0, i
	}

	n, err := strconv.Atoi(args[i+1])
	if err != nil {
		return 0, i
	}

	return n, i + 1
}

func int64Arg(args []string, i int) (int64, int) {
	if i+1 >= len(args) {
		return 0, i
	}

	n, err := strconv.ParseInt(args[i+1], 10, 64)
	if err != nil {
		return 0, i
	}

	return n, i + 1
}

// scoreArg parses "score cp <x>|mate <y> [lowerbound|upperbound]".
func scoreArg(args []string, i int) (*Score, int) {
	if i+2 >= len(args) {
		return nil, i
	}

	n, err := strconv.Atoi(args[i+2])
	if err != nil {
		return nil, i
	}

	score := &Score{}

	switch args[i+1] {
	case "cp":
		score.CP = &n
	case "mate":
		score.Mate = &n
	default:
		return nil, i
	}

	i += 2

	if i+1 < len(args) {
		switch args[i+1] {
		case "lowerbound":
			score.LowerBound = true
			i++
		case "upperbound":
			score.UpperBound = true
			i++
		}
	}

	return score, i
}
