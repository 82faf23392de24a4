package enginetest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/wagiedev/uci-engine-go/internal/config"
	"github.com/wagiedev/uci-engine-go/internal/errors"
)

// FakeTransport is an in-memory config.Transport. Every command written to
// it is recorded and answered by Responder; its replies become readable
// lines in order.
type FakeTransport struct {
	// Responder produces output for one received command. Nil answers nothing.
	Responder func(command string) Reply
	// StartErr, when set, is returned by Start.
	StartErr error
	// WriteErr, when set, is returned by every WriteLine.
	WriteErr error

	mu         sync.Mutex
	commands   []string
	pending    []string
	eof        bool
	started    bool
	closeCount int
	notify     chan struct{}
	closed     chan struct{}
}

var _ config.Transport = (*FakeTransport)(nil)

// NewFakeTransport returns a transport that answers like a stub engine in mode.
func NewFakeTransport(mode string) *FakeTransport {
	f := NewScriptedTransport()
	f.Responder = func(command string) Reply { return Respond(mode, command) }

	return f
}

// NewScriptedTransport returns a transport that emits output as soon as it
// starts, regardless of what is written to it. A Reply with Exit set in
// the responder, or EndOutput, ends the stream.
func NewScriptedTransport(output ...string) *FakeTransport {
	return &FakeTransport{
		pending: output,
		notify:  make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
}

// Factory returns a TransportFactory that hands out transports built by
// build, recording each one.
func Factory(build func() *FakeTransport) (config.TransportFactory, func() []*FakeTransport) {
	var (
		mu   sync.Mutex
		made []*FakeTransport
	)

	factory := func(_ *slog.Logger, _ *config.Options) config.Transport {
		f := build()

		mu.Lock()
		made = append(made, f)
		mu.Unlock()

		return f
	}

	created := func() []*FakeTransport {
		mu.Lock()
		defer mu.Unlock()

		return append([]*FakeTransport(nil), made...)
	}

	return factory, created
}

// Start implements config.Transport.
func (f *FakeTransport) Start(ctx context.Context) error {
	if f.StartErr != nil {
		return f.StartErr
	}

	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	f.wake()

	return ctx.Err()
}

// WriteLine implements config.Transport.
func (f *FakeTransport) WriteLine(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return errors.ErrTransportNotStarted
	}

	if f.closeCount > 0 {
		return errors.ErrTransportClosed
	}

	if f.WriteErr != nil {
		return f.WriteErr
	}

	for line := range strings.SplitSeq(strings.TrimSuffix(text, "\n"), "\n") {
		f.commands = append(f.commands, line)

		if f.Responder == nil || f.eof {
			continue
		}

		reply := f.Responder(line)
		f.pending = append(f.pending, reply.Diagnostics...)
		f.pending = append(f.pending, reply.Lines...)

		if reply.Exit {
			f.eof = true
		}
	}

	f.wakeLocked()

	return nil
}

// ReadLine implements config.Transport.
func (f *FakeTransport) ReadLine(ctx context.Context) (string, error) {
	for {
		f.mu.Lock()
		switch {
		case !f.started:
			f.mu.Unlock()

			return "", errors.ErrTransportNotStarted
		case len(f.pending) > 0:
			line := f.pending[0]
			f.pending = f.pending[1:]
			f.mu.Unlock()

			return line, nil
		case f.eof:
			f.mu.Unlock()

			return "", io.EOF
		}
		f.mu.Unlock()

		select {
		case <-f.notify:
		case <-f.closed:
			return "", errors.ErrTransportClosed
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close implements config.Transport.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closeCount++
	if f.closeCount == 1 {
		close(f.closed)
	}

	return nil
}

// IsReady implements config.Transport.
func (f *FakeTransport) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.started && f.closeCount == 0 && !f.eof
}

// EndOutput makes ReadLine report io.EOF once buffered lines are drained.
func (f *FakeTransport) EndOutput() {
	f.mu.Lock()
	f.eof = true
	f.wakeLocked()
	f.mu.Unlock()
}

// Commands returns every command line written so far.
func (f *FakeTransport) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.commands...)
}

// CloseCount reports how many times Close was called.
func (f *FakeTransport) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closeCount
}

// Closed reports whether Close was called.
func (f *FakeTransport) Closed() bool {
	return f.CloseCount() > 0
}

func (f *FakeTransport) wake() {
	f.mu.Lock()
	f.wakeLocked()
	f.mu.Unlock()
}

func (f *FakeTransport) wakeLocked() {
	select {
	case f.notify <- struct{}{}:
	default:
	}
}
