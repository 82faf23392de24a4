//go:build integration

package integration

import (
	"errors"
	"strings"
	"testing"

	"github.com/wagiedev/uci-engine-go/internal/locate"

	internalerrors "github.com/wagiedev/uci-engine-go/internal/errors"
)

// enginePath returns an installed engine, or skips the test when none is found.
func enginePath(t *testing.T) string {
	t.Helper()

	path, err := locate.New(nil).Find()
	if _, ok := errors.AsType[*internalerrors.EngineNotFoundError](err); ok {
		t.Skip("no UCI engine installed; set " + locate.EnvEnginePath)
	}

	if err != nil {
		t.Fatalf("locate engine: %v", err)
	}

	return path
}

// isLongAlgebraic reports whether move looks like e2e4 or e7e8q.
func isLongAlgebraic(move string) bool {
	if len(move) != 4 && len(move) != 5 {
		return false
	}

	for i := 0; i < 4; i += 2 {
		if move[i] < 'a' || move[i] > 'h' || move[i+1] < '1' || move[i+1] > '8' {
			return false
		}
	}

	return len(move) == 4 || strings.ContainsRune("qrbn", rune(move[4]))
}
