package metrics

import "time"

// ResultLabel enumerates command outcomes for counters.
type ResultLabel string

const (
	ResultSuccess    ResultLabel = "success"
	ResultError      ResultLabel = "error"
	ResultContention ResultLabel = "contention"
	ResultPanic      ResultLabel = "panic"
)

// Recorder defines observability hooks for commands, locks and exports.
type Recorder interface {
	ObserveCommandDuration(command string, d time.Duration)
	IncCommandResult(command string, result ResultLabel)
	IncLockContention(resource string)
	ObserveExportBytes(mode string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCommandDuration(string, time.Duration) {}
func (NoopRecorder) IncCommandResult(string, ResultLabel)         {}
func (NoopRecorder) IncLockContention(string)                     {}
func (NoopRecorder) ObserveExportBytes(string, int)               {}
