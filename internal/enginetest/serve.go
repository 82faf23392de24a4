package enginetest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/wagiedev/uci-engine-go/internal/config"
)

// Environment variables that turn a re-executed test binary into a stub engine.
const (
	EnvMode = "UCI_ENGINE_STUB_MODE"
	EnvLog  = "UCI_ENGINE_STUB_LOG"
)

// MaybeServe runs the stub engine and exits if EnvMode is set. Call it
// first thing in TestMain so the test binary can double as an engine:
//
//	func TestMain(m *testing.M) {
//		enginetest.MaybeServe()
//		os.Exit(m.Run())
//	}
func MaybeServe() {
	mode := os.Getenv(EnvMode)
	if mode == "" {
		return
	}

	os.Exit(Serve(mode, os.Stdin, os.Stdout, os.Stderr, os.Getenv(EnvLog)))
}

// Serve answers UCI commands from in according to mode and returns the
// process exit code. Every received command is appended to logPath when it
// is not empty.
func Serve(mode string, in io.Reader, out, diag io.Writer, logPath string) int {
	if mode == ModeExitImmediately {
		fmt.Fprintln(diag, "stub: refusing to start")

		return 1
	}

	var cmdLog io.Writer = io.Discard

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintln(diag, "stub:", err)

			return 2
		}
		defer f.Close()

		cmdLog = f
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		command := strings.TrimSpace(scanner.Text())
		fmt.Fprintln(cmdLog, command)

		reply := Respond(mode, command)
		for _, line := range reply.Diagnostics {
			fmt.Fprintln(diag, line)
		}

		for _, line := range reply.Lines {
			fmt.Fprintln(out, line)
		}

		if reply.Exit {
			return reply.Code
		}
	}

	if IgnoresEOF(mode) {
		time.Sleep(time.Hour)
	}

	return 0
}

// ProcessOptions returns options that spawn the running test binary as a
// stub engine in the given mode, and the path of the file the stub logs
// received commands to. The calling package must invoke MaybeServe from
// TestMain.
func ProcessOptions(t testing.TB, mode string) (*config.Options, string) {
	t.Helper()

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("locate test binary: %v", err)
	}

	logPath := t.TempDir() + "/commands.log"

	opts := &config.Options{
		EnginePath: exe,
		Env: map[string]string{
			EnvMode: mode,
			EnvLog:  logPath,
		},
		HandshakeTimeout: 5 * time.Second,
		SearchTimeout:    5 * time.Second,
	}
	opts.SetShutdownGrace(100 * time.Millisecond)

	return opts, logPath
}

// Commands returns the commands a stub engine logged to logPath, in order.
// A missing log yields no commands.
func Commands(t testing.TB, logPath string) []string {
	t.Helper()

	data, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		t.Fatalf("read stub command log: %v", err)
	}

	var commands []string

	for line := range strings.SplitSeq(strings.TrimRight(string(data), "\n"), "\n") {
		if line != "" {
			commands = append(commands, line)
		}
	}

	return commands
}
