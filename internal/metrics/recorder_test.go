package metrics

import "time"

// testRecorder is a compile-time check that a hand-written recorder can
// satisfy the interface alongside the provided ones.
type testRecorder struct {
	durations  map[string]int
	results    map[string]map[ResultLabel]int
	contention map[string]int
	exports    map[string]int
}

var (
	_ Recorder = (*testRecorder)(nil)
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func (t *testRecorder) ObserveCommandDuration(command string, _ time.Duration) {
	t.durations[command]++
}

func (t *testRecorder) IncCommandResult(command string, result ResultLabel) {
	m, ok := t.results[command]
	if !ok {
		m = map[ResultLabel]int{}
		t.results[command] = m
	}
	m[result]++
}
func (t *testRecorder) IncLockContention(resource string) { t.contention[resource]++ }
func (t *testRecorder) ObserveExportBytes(mode string, _ int) { t.exports[mode]++ }
