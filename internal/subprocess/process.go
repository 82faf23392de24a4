package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wagiedev/uci-engine-go/internal/config"
	"github.com/wagiedev/uci-engine-go/internal/errors"
)

const (
	// maxScanTokenSize is the maximum length of one engine output line.
	maxScanTokenSize = 1024 * 1024 // 1MB
	// lineBufferSize is how many output lines may queue ahead of the reader.
	lineBufferSize = 64
	// reapTimeout bounds the wait for a killed process to be collected.
	reapTimeout = 5 * time.Second
)

// ProcessTransport implements Transport by spawning a UCI engine as a
// child process. The engine's stdout and stderr share one pipe, so
// diagnostics arrive interleaved with protocol lines in the order the
// engine printed them.
type ProcessTransport struct {
	log     *slog.Logger
	options *config.Options

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output *os.File

	mu          sync.Mutex // Protects stdin writes
	stdinClosed bool
	started     atomic.Bool

	lines   chan string
	readErr error

	exited chan struct{}
	closed chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Compile-time verification that ProcessTransport implements the Transport interface.
var _ config.Transport = (*ProcessTransport)(nil)

// NewProcessTransport creates a transport for options.EnginePath. The
// process is not spawned until Start.
func NewProcessTransport(log *slog.Logger, options *config.Options) *ProcessTransport {
	return &ProcessTransport{
		log:     log.With("component", "engine_transport"),
		options: options,
		lines:   make(chan string, lineBufferSize),
		exited:  make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

// NewTransport is a config.TransportFactory producing ProcessTransports.
func NewTransport(log *slog.Logger, options *config.Options) config.Transport {
	return NewProcessTransport(log, options)
}

// Start spawns the engine process.
//
// The executable is used exactly as configured; nothing is searched for.
// Returns SpawnError if the process cannot be started.
func (t *ProcessTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started.Load() {
		return fmt.Errorf("start: transport already started")
	}

	select {
	case <-t.closed:
		return errors.ErrTransportClosed
	default:
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	path := t.options.EnginePath
	if path == "" {
		return &errors.SpawnError{Path: path, Err: stderrors.New("engine path is empty")}
	}

	t.log.Info("Starting engine process", "path", path, "args", t.options.EngineArgs)

	// The process outlives Start's ctx; Close terminates it.
	//nolint:gosec // G204: launching a configured engine binary is the point
	cmd := exec.Command(path, t.options.EngineArgs...)
	cmd.Dir = t.options.Dir
	cmd.Env = t.options.BuildEnvironment()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.SpawnError{Path: path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	output, outputWriter, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()

		return &errors.SpawnError{Path: path, Err: fmt.Errorf("output pipe: %w", err)}
	}

	cmd.Stdout = outputWriter
	cmd.Stderr = outputWriter

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start engine process", "path", path, "error", err)

		_ = output.Close()
		_ = outputWriter.Close()
		_ = stdin.Close()

		return &errors.SpawnError{Path: path, Err: err}
	}

	// The child holds its own copy of the write end; ours would keep the
	// pipe from reporting end of stream.
	_ = outputWriter.Close()

	t.cmd = cmd
	t.stdin = stdin
	t.output = output
	t.started.Store(true)

	go t.readLoop()
	go t.reap()

	t.log.Info("Engine process started", "pid", cmd.Process.Pid)

	return nil
}

func (t *ProcessTransport) readLoop() {
	defer close(t.lines)

	scanner := bufio.NewScanner(t.output)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()
		t.log.Debug("Engine output", "line", line)

		select {
		case t.lines <- line:
		case <-t.closed:
			return
		}
	}

	if err := scanner.Err(); err != nil && !stderrors.Is(err, os.ErrClosed) {
		t.log.Debug("Engine output scanner error", "error", err)
		t.readErr = err
	}
}

func (t *ProcessTransport) reap() {
	err := t.cmd.Wait()
	close(t.exited)

	select {
	case <-t.closed:
		t.log.Debug("Engine process terminated during shutdown", "pid", t.cmd.Process.Pid)
	default:
		if err != nil {
			t.log.Warn("Engine process exited", "pid", t.cmd.Process.Pid, "error", err)
		} else {
			t.log.Debug("Engine process exited", "pid", t.cmd.Process.Pid)
		}
	}
}

// WriteLine writes text to the engine's stdin.
//
// The write runs in its own goroutine so a blocked pipe still honours ctx.
// If ctx ends during a blocked write, stdin is closed to unblock it and
// subsequent writes return ErrTransportClosed.
func (t *ProcessTransport) WriteLine(ctx context.Context, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started.Load() {
		return errors.ErrTransportNotStarted
	}

	if t.stdinClosed {
		return errors.ErrTransportClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	t.log.Debug("Engine input", "lines", strings.Split(strings.TrimSuffix(text, "\n"), "\n"))

	done := make(chan error, 1)

	go func() {
		_, err := io.WriteString(t.stdin, text)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return &errors.TransportError{Op: "write", Err: err}
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")

		_ = t.stdin.Close()
		t.stdinClosed = true

		select {
		case <-done:
		case <-time.After(time.Second):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// ReadLine returns the next line the engine printed, without its line
// terminator. It returns io.EOF once the engine's output has ended.
func (t *ProcessTransport) ReadLine(ctx context.Context) (string, error) {
	if !t.started.Load() {
		return "", errors.ErrTransportNotStarted
	}

	select {
	case <-t.closed:
		return "", errors.ErrTransportClosed
	default:
	}

	select {
	case line, ok := <-t.lines:
		if !ok {
			if t.readErr != nil {
				return "", &errors.TransportError{Op: "read", Err: t.readErr}
			}

			return "", io.EOF
		}

		return line, nil
	case <-t.closed:
		return "", errors.ErrTransportClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// IsReady returns true while the process runs and stdin is open.
func (t *ProcessTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started.Load() && !t.stdinClosed && !t.Exited()
}

// Pid returns the engine's process id, or 0 before Start.
func (t *ProcessTransport) Pid() int {
	if !t.started.Load() {
		return 0
	}

	return t.cmd.Process.Pid
}

// Exited reports whether the engine process has terminated and been reaped.
func (t *ProcessTransport) Exited() bool {
	select {
	case <-t.exited:
		return true
	default:
		return false
	}
}

// ExitCode returns the engine's exit status once it has been reaped, or -1
// while it runs or when it was terminated by a signal.
func (t *ProcessTransport) ExitCode() int {
	if !t.Exited() {
		return -1
	}

	return t.cmd.ProcessState.ExitCode()
}

// Close terminates the engine process.
//
// Stdin is closed first so a well-behaved engine can exit on its own within
// ShutdownGrace; after that the process is killed. Close waits for the
// process to be reaped and then closes the output pipe. It's safe to call
// Close multiple times.
func (t *ProcessTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.shutdown()
	})

	return t.closeErr
}

func (t *ProcessTransport) shutdown() error {
	close(t.closed)

	t.mu.Lock()
	if t.stdin != nil && !t.stdinClosed {
		_ = t.stdin.Close()
		t.stdinClosed = true
	}
	t.mu.Unlock()

	if !t.started.Load() {
		return nil
	}

	pid := t.cmd.Process.Pid

	if grace := t.options.ShutdownGrace; grace > 0 {
		select {
		case <-t.exited:
		case <-time.After(grace):
		}
	}

	var killErr error

	if !t.Exited() {
		t.log.Debug("Killing engine process", "pid", pid)

		if err := t.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			killErr = fmt.Errorf("kill engine process (pid %d): %w", pid, err)
		}
	}

	select {
	case <-t.exited:
	case <-time.After(reapTimeout):
		t.log.Warn("Engine process was not reaped after kill", "pid", pid)
	}

	_ = t.output.Close()

	t.log.Info("Engine process stopped", "pid", pid, "exit_code", t.ExitCode())

	return killErr
}
