// Package metrics records operational metrics for csvload runs behind a
// small, backend-agnostic interface.
//
// A global backend defaults to a no-op implementation, so the Record helpers
// are always safe to call. Concrete systems (Prometheus Pushgateway, Datadog)
// live in subpackages and are installed with SetBackend.
//
// The helpers are meant for per-file and per-batch granularity. The decode
// loop counts locally and reports totals; nothing here is called per row.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the Record helpers.
const (
	StepTotal           = "csvplan_step_total"
	StepDurationSeconds = "csvplan_step_duration_seconds"
	RowsTotal           = "csvplan_rows_total"
	BatchesTotal        = "csvplan_batches_total"
	PlansTotal          = "csvplan_plans_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step and records its
// duration, labeled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow adds delta to the row counter for the given job and kind.
//
// Kinds used by the pipeline:
//   - "decoded"
//   - "field_errors"
//   - "inserted"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the flushed-batch counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}

// RecordPlan reports decode plan cache activity: how many plans were
// compiled and how many lookups were served from the cache.
func RecordPlan(job string, compiles, hits uint64) {
	b := current()
	if compiles > 0 {
		b.IncCounter(PlansTotal, float64(compiles), Labels{"job": job, "result": "compiled"})
	}
	if hits > 0 {
		b.IncCounter(PlansTotal, float64(hits), Labels{"job": job, "result": "cached"})
	}
}
