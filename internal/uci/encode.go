package uci

import (
	"fmt"
	"strconv"
)

// Option names used for strength limiting.
const (
	OptionLimitStrength = "UCI_LimitStrength"
	OptionElo           = "UCI_Elo"
)

// EncodeUCI returns the command that switches the engine to UCI mode.
func EncodeUCI() string {
	return "uci\n"
}

// EncodeIsReady returns the synchronization command answered by readyok.
func EncodeIsReady() string {
	return "isready\n"
}

// EncodeSetStrength returns the two setoption commands enabling strength
// limiting at the given Elo. The value is passed through unmodified.
func EncodeSetStrength(elo int) string {
	return EncodeSetOption(OptionLimitStrength, "true") +
		EncodeSetOption(OptionElo, strconv.Itoa(elo))
}

// EncodeClearStrength returns the command that turns strength limiting off.
func EncodeClearStrength() string {
	return EncodeSetOption(OptionLimitStrength, "false")
}

// EncodeSetOption returns a generic setoption command.
func EncodeSetOption(name, value string) string {
	return fmt.Sprintf("setoption name %s value %s\n", name, value)
}

// EncodePosition returns the command that loads fen into the engine.
func EncodePosition(fen string) string {
	return "position fen " + fen + "\n"
}

// EncodeGo returns the command that starts a fixed-depth search.
// Depth is not clamped; the engine decides what a non-positive depth means.
func EncodeGo(depth int) string {
	return "go depth " + strconv.Itoa(depth) + "\n"
}
