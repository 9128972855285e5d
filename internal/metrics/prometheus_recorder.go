package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	commandDuration *prom.HistogramVec
	commandResults  *prom.CounterVec
	lockContention  *prom.CounterVec
	exportBytes     *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.commandDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "manyvis",
			Name:      "command_duration_seconds",
			Help:      "Duration of dispatched commands",
			Buckets:   prom.DefBuckets,
		}, []string{"command"})
		pr.commandResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "manyvis",
			Name:      "command_results_total",
			Help:      "Command results by outcome",
		}, []string{"command", "result"})
		pr.lockContention = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "manyvis",
			Name:      "lock_contention_total",
			Help:      "Failed resource lock acquisitions",
		}, []string{"resource"})
		pr.exportBytes = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "manyvis",
			Name:      "export_bytes",
			Help:      "Size of exported artifacts",
			Buckets:   prom.ExponentialBuckets(1024, 4, 8),
		}, []string{"mode"})
		reg.MustRegister(pr.commandDuration, pr.commandResults, pr.lockContention, pr.exportBytes)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveCommandDuration(command string, d time.Duration) {
	if p == nil || p.commandDuration == nil {
		return
	}
	p.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCommandResult(command string, result ResultLabel) {
	if p == nil || p.commandResults == nil {
		return
	}
	p.commandResults.WithLabelValues(command, string(result)).Inc()
}

func (p *PrometheusRecorder) IncLockContention(resource string) {
	if p == nil || p.lockContention == nil {
		return
	}
	p.lockContention.WithLabelValues(resource).Inc()
}

func (p *PrometheusRecorder) ObserveExportBytes(mode string, n int) {
	if p == nil || p.exportBytes == nil {
		return
	}
	p.exportBytes.WithLabelValues(mode).Observe(float64(n))
}
