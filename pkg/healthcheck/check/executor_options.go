package check

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/re-tools/re-healthcheck/pkg/metrics"
)

// DefaultWorkers is the default width of the executor's worker pool.
const DefaultWorkers = 10

// ResultFunc receives every completed result from Executor.Wait.
type ResultFunc func(result *Result)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithWorkers sets the number of checks allowed to run at the same time.
// Values below 1 are ignored.
func WithWorkers(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTimeout sets a deadline applied to every single check invocation.
// Zero disables the per-check deadline.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithCapabilities declares which collaborators are configured for this run.
// Checks requiring anything else are reported as SKIPPED.
func WithCapabilities(caps Requirement) ExecutorOption {
	return func(e *Executor) {
		e.capabilities = caps
	}
}

// WithMetrics records every finished check on m.
func WithMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithLogger overrides the executor logger.
func WithLogger(l zerolog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// ExecuteOption configures a single Execute call.
type ExecuteOption func(*task)

// WithDoneFunc registers fn to run on the worker goroutine as soon as the
// task finishes, before the result is queued for Wait. A panic in fn is
// logged and the result is still delivered.
func WithDoneFunc(fn ResultFunc) ExecuteOption {
	return func(t *task) {
		t.done = fn
	}
}
