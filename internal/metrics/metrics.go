// Package metrics is the thin instrumentation seam for warehouse loads.
//
// Pipeline code records counters and histograms through package-level helpers
// and never learns which backend (if any) is configured. The default backend
// is a nop, so instrumented code costs nothing when metrics are disabled.
package metrics

import "sync"

// Labels carries metric dimensions, e.g. {"step": "promote", "status": "ok"}.
type Labels map[string]string

// Backend receives recorded metrics. Implementations buffer internally and
// submit on Flush.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// nopBackend drops everything.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Call once during startup,
// before the pipeline runs.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to the named counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of the named histogram.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush submits whatever the backend has buffered.
func Flush() error {
	return current().Flush()
}

// Metric names shared between the pipeline and backends. Backends ignore
// names they do not recognize.
const (
	StepTotal           = "etl_step_total"
	RecordsTotal        = "etl_records_total"
	StepDurationSeconds = "etl_step_duration_seconds"
)

// StepOK records a successful step with its duration and row count.
func StepOK(step string, seconds float64, records int64) {
	stepResult(step, "ok", seconds, records)
}

// StepFailed records a failed step with its duration.
func StepFailed(step string, seconds float64) {
	stepResult(step, "error", seconds, 0)
}

func stepResult(step, status string, seconds float64, records int64) {
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, seconds, l)
	if records > 0 {
		IncCounter(RecordsTotal, float64(records), Labels{"kind": step})
	}
}
