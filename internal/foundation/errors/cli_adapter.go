package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Exit codes reported by the manyvis CLI.
const (
	ExitOK       = 0
	ExitGeneral  = 1
	ExitInvalid  = 2
	ExitBusy     = 3
	ExitNoSystem = 4
	ExitIO       = 5
	ExitTool     = 8
	ExitInternal = 10
	ExitOutput   = 11
)

var exitByCategory = map[ErrorCategory]int{
	CategoryValidation:     ExitInvalid,
	CategoryLockContention: ExitBusy,
	CategoryNotLoaded:      ExitNoSystem,
	CategoryIO:             ExitIO,
	CategoryExternalTool:   ExitTool,
	CategorySerialization:  ExitOutput,
	CategoryRaster:         ExitOutput,
	CategoryInternal:       ExitInternal,
}

// CLIErrorAdapter prints command failures and picks the process exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates an adapter writing to stderr; a nil logger
// means slog.Default().
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor returns the exit code for err.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	if c, ok := AsClassified(err); ok {
		if code, known := exitByCategory[c.Category()]; known {
			return code
		}
	}
	return ExitGeneral
}

// FormatError renders err for the terminal. Internal details are hidden
// unless verbose.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	c, ok := AsClassified(err)
	switch {
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return c.Error()
	case c.IsCategory(CategoryInternal):
		return "Internal error occurred (use -v for details)"
	default:
		return "Error: " + c.Message()
	}
}

// HandleError prints err and exits with its code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	a.log(err)
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

// log records fatal and unclassified failures, or everything when verbose.
func (a *CLIErrorAdapter) log(err error) {
	c, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	if !a.verbose && !c.IsFatal() {
		return
	}
	attrs := []slog.Attr{slog.String("category", string(c.Category()))}
	if c.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	a.logger.LogAttrs(context.Background(), c.Severity().Level(), c.Message(), attrs...)
}
