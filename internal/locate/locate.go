package locate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/wagiedev/uci-engine-go/internal/errors"
	"github.com/wagiedev/uci-engine-go/internal/uci"
)

const (
	// EnvEnginePath names the environment variable holding an engine path.
	EnvEnginePath = "UCI_ENGINE_PATH"

	// IdentifyTimeout bounds how long Identify waits for the engine.
	IdentifyTimeout = 3 * time.Second
)

// DefaultNames are the executable names searched for when Config.Names is empty.
var DefaultNames = []string{"stockfish"}

// Config holds configuration for engine discovery.
type Config struct {
	// EnginePath is an explicit path that skips every other source.
	EnginePath string

	// Names are executable names to look for in PATH and common directories.
	Names []string

	// Logger is an optional logger for discovery operations.
	// If nil, discovery is silent.
	Logger *slog.Logger
}

// Locator finds engine executables.
type Locator struct {
	cfg *Config
	log *slog.Logger
}

// New creates a Locator with the given configuration.
func New(cfg *Config) *Locator {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Locator{
		cfg: cfg,
		log: log.With("component", "locate"),
	}
}

// Find returns the path of an executable engine or EngineNotFoundError.
func (l *Locator) Find() (string, error) {
	if l.cfg.EnginePath != "" {
		return l.explicit(l.cfg.EnginePath)
	}

	if path := os.Getenv(EnvEnginePath); path != "" {
		l.log.Debug("Using engine path from environment", "env", EnvEnginePath, "path", path)

		return l.explicit(path)
	}

	names := l.cfg.Names
	if len(names) == 0 {
		names = DefaultNames
	}

	searchedPaths := make([]string, 0, 1+4*len(names))

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			l.log.Debug("Found engine in PATH", "name", name, "path", path)

			return path, nil
		}
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, dir := range commonDirs() {
		for _, name := range names {
			path := filepath.Join(dir, name)
			searchedPaths = append(searchedPaths, path)

			if isExecutable(path) {
				l.log.Debug("Found engine at common path", "path", path)

				return path, nil
			}
		}
	}

	l.log.Warn("UCI engine not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.EngineNotFoundError{SearchedPaths: searchedPaths}
}

// explicit accepts a configured path only if it is an executable file.
func (l *Locator) explicit(path string) (string, error) {
	if isExecutable(path) {
		return path, nil
	}

	l.log.Debug("Configured engine path is not an executable file", "path", path)

	return "", &errors.EngineNotFoundError{SearchedPaths: []string{path}}
}

func commonDirs() []string {
	dirs := []string{"/usr/games", "/usr/local/bin", "/usr/bin", "/opt/homebrew/bin"}

	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".local/bin"))
	}

	return dirs
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// Identify runs the engine at path, performs the uci handshake, and returns
// the name it reports. Engines that answer without an id name yield "".
func (l *Locator) Identify(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, IdentifyTimeout)
	defer cancel()

	//nolint:gosec // G204: probing a configured engine binary
	cmd := exec.CommandContext(ctx, path)
	cmd.Stdin = strings.NewReader(uci.EncodeUCI() + "quit\n")

	output, err := cmd.Output()
	if err != nil && !bytes.Contains(output, []byte("uciok")) {
		l.log.Debug("Engine identification failed", "path", path, "error", err)

		return "", fmt.Errorf("identify engine %q: %w", path, err)
	}

	name := ""
	scanner := bufio.NewScanner(bytes.NewReader(output))

	for scanner.Scan() {
		ev, ok := uci.Decode(scanner.Text())
		if !ok {
			continue
		}

		if _, done := ev.(uci.UCIOK); done {
			l.log.Debug("Engine identified", "path", path, "name", name)

			return name, nil
		}

		if u, isRaw := ev.(*uci.Unrecognized); isRaw {
			if rest, found := strings.CutPrefix(u.Raw, "id name "); found {
				name = strings.TrimSpace(rest)
			}
		}
	}

	return "", fmt.Errorf("identify engine %q: no uciok in output", path)
}
