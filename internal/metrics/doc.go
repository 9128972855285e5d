// Package metrics provides the observability hooks for manyvis commands.
//
// Components receive a Recorder and never check for nil: NoopRecorder is
// the default, and PrometheusRecorder is swapped in when metrics are
// enabled in the configuration.
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	d := dispatcher.New(store, dispatcher.WithRecorder(recorder))
package metrics
