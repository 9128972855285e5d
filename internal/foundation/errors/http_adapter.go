package errors

import (
	"context"
	"log/slog"
	"net/http"
)

var statusByCategory = map[ErrorCategory]int{
	CategoryValidation:     http.StatusBadRequest,
	CategoryLockContention: http.StatusConflict,
	CategoryNotLoaded:      http.StatusPreconditionFailed,
	CategoryExternalTool:   http.StatusFailedDependency,
	CategoryRaster:         http.StatusUnprocessableEntity,
	CategorySerialization:  http.StatusUnprocessableEntity,
	CategoryIO:             http.StatusInternalServerError,
	CategoryInternal:       http.StatusInternalServerError,
}

// HTTPErrorAdapter maps classified command failures onto HTTP responses.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates an adapter; a nil logger means slog.Default().
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// StatusCodeFor returns the status for err. Unclassified errors are 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if c, ok := AsClassified(err); ok {
		if status, known := statusByCategory[c.Category()]; known {
			return status
		}
	}
	return http.StatusInternalServerError
}

// RetryAfter returns a Retry-After value for failures the client may retry
// straight away, such as a busy diagram.
func (a *HTTPErrorAdapter) RetryAfter(err error) (string, bool) {
	if c, ok := AsClassified(err); ok && c.RetryStrategy() == RetryImmediate {
		return "1", true
	}
	return "", false
}

// WriteHeaders sets the status-related headers for a failed command and
// returns the status code to write.
func (a *HTTPErrorAdapter) WriteHeaders(ctx context.Context, w http.ResponseWriter, err error) int {
	status := a.StatusCodeFor(err)
	if v, ok := a.RetryAfter(err); ok {
		w.Header().Set("Retry-After", v)
	}
	if status >= http.StatusInternalServerError {
		level := slog.LevelError
		if c, ok := AsClassified(err); ok {
			level = c.Severity().Level()
		}
		a.logger.Log(ctx, level, "Command failed", "status", status, "error", err)
	}
	return status
}
