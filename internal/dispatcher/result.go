package dispatcher

import (
	"time"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// Status is the outcome of a command.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// GenericError is the message for failures that carry no user-facing detail.
const GenericError = "Something went wrong, please try again."

// Result is returned by every request/response command.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
	// Err is the classified failure, for adapters that map categories.
	Err *ferrors.ClassifiedError `json:"-"`
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

func success(message string, payload any) Result {
	return Result{Status: StatusOK, Message: message, Payload: payload}
}

func failure(err error) Result {
	ce := ferrors.Classify(err)
	message := ce.Message()
	if ce.IsCategory(ferrors.CategoryInternal) {
		message = GenericError
	}
	return Result{Status: StatusError, Message: message, Err: ce}
}

// DiagramPayload is the SVG document with the time it was generated.
type DiagramPayload struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func (d *Dispatcher) diagramPayload(content string) DiagramPayload {
	return DiagramPayload{Content: content, Timestamp: d.now().UTC().Format(time.RFC3339Nano)}
}
