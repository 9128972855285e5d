package errors

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("invalid input").Build(), 2},
		{"lock contention", LockContention("busy").Build(), 3},
		{"not loaded", NotLoaded("nothing loaded").Build(), 4},
		{"io", IOError("disk full").Build(), 5},
		{"external tool", ExternalToolUnavailable("no editor").Build(), 8},
		{"internal", InternalError("panic").Build(), 10},
		{"raster", RasterError("too large").Build(), 11},
		{"unclassified", &customError{msg: "unknown error"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	assert.Empty(t, quiet.FormatError(nil))
	assert.Equal(t, "Internal error occurred (use -v for details)", quiet.FormatError(InternalError("internal issue").Build()))
	assert.Equal(t, "Error: You must load a system first.", quiet.FormatError(NotLoaded("You must load a system first.").Build()))
	assert.Equal(t, "Error: unknown error", quiet.FormatError(&customError{msg: "unknown error"}))
	assert.Contains(t, verbose.FormatError(InternalError("internal issue").Build()), "[internal] internal issue")
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out bytes.Buffer
	code := -1
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	adapter.out = &out
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(NotLoaded("You must load a system first.").Build())

	assert.Equal(t, ExitNoSystem, code)
	assert.Equal(t, "Error: You must load a system first.\n", out.String())

	code = -1
	adapter.HandleError(nil)
	assert.Equal(t, -1, code, "nil error does not exit")
}

func TestSeverityLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, SeverityInfo.Level())
	assert.Equal(t, slog.LevelWarn, SeverityWarning.Level())
	assert.Equal(t, slog.LevelError, SeverityError.Level())
	assert.Equal(t, slog.LevelError, SeverityFatal.Level())
}

// customError is a test helper for unclassified errors
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
