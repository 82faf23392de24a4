// Package enginetest provides scripted stand-ins for a UCI engine.
//
// The same scripts drive two doubles: FakeTransport, an in-memory
// config.Transport, and a real child process obtained by re-executing the
// running test binary (see MaybeServe and ProcessOptions). The process
// double lets tests observe spawning, stream closing, and termination
// without a chess engine installed.
package enginetest

import (
	"fmt"
	"strings"
)

// Stub engine behaviours.
const (
	// ModeNormal answers every command like a well-behaved engine.
	ModeNormal = "normal"
	// ModeNoisy behaves like ModeNormal but also writes diagnostics to stderr.
	ModeNoisy = "noisy"
	// ModeSilent never answers isready and ignores end of input.
	ModeSilent = "silent"
	// ModeNoMove reports that the side to move has no legal move.
	ModeNoMove = "nomove"
	// ModeCrashOnGo exits with status 3 when asked to search.
	ModeCrashOnGo = "crash-on-go"
	// ModeHangSearch never answers go and ignores end of input.
	ModeHangSearch = "hang-search"
	// ModeExitImmediately exits with status 1 before reading any input.
	ModeExitImmediately = "exit-immediately"
)

// Canned output of the stub engine.
const (
	StubBestMove = "e2e4"
	StubPonder   = "e7e5"
)

// Reply is the stub engine's reaction to one command line.
type Reply struct {
	// Lines are written to standard output.
	Lines []string
	// Diagnostics are written to standard error.
	Diagnostics []string
	// Exit ends the stub with Code after Lines are written.
	Exit bool
	Code int
}

// IgnoresEOF reports whether the stub keeps running after its input closes,
// forcing the supervisor to kill it.
func IgnoresEOF(mode string) bool {
	return mode == ModeSilent || mode == ModeHangSearch
}

// Respond returns how a stub in the given mode answers command.
func Respond(mode, command string) Reply {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Reply{}
	}

	switch fields[0] {
	case "uci":
		r := Reply{Lines: []string{"id name Stub", "id author uci-engine-go", "uciok"}}
		if mode == ModeNoisy {
			r.Diagnostics = []string{"stub: loading network weights"}
		}

		return r

	case "isready":
		if mode == ModeSilent {
			return Reply{}
		}

		return Reply{Lines: []string{"readyok"}}

	case "go":
		return respondGo(mode, fields[1:])

	case "quit":
		return Reply{Exit: true}
	}

	return Reply{}
}

func respondGo(mode string, args []string) Reply {
	depth := "1"
	if len(args) >= 2 && args[0] == "depth" {
		depth = args[1]
	}

	switch mode {
	case ModeHangSearch:
		return Reply{Lines: []string{"info depth 1 score cp 0"}}
	case ModeCrashOnGo:
		return Reply{Diagnostics: []string{"stub: segmentation fault"}, Exit: true, Code: 3}
	case ModeNoMove:
		return Reply{Lines: []string{"info depth 0 score mate 0", "bestmove (none)"}}
	}

	r := Reply{Lines: []string{
		fmt.Sprintf("info depth %s seldepth %s score cp 31 nodes 20 nps 20000 time 1 pv %s %s", depth, depth, StubBestMove, StubPonder),
		fmt.Sprintf("bestmove %s ponder %s", StubBestMove, StubPonder),
	}}

	if mode == ModeNoisy {
		r.Diagnostics = []string{"stub: search finished"}
	}

	return r
}
