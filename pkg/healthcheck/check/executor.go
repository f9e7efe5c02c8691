package check

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/re-tools/re-healthcheck/pkg/log"
	"github.com/re-tools/re-healthcheck/pkg/metrics"
)

// ErrExecutorShutdown is returned by Execute once Shutdown has been called.
var ErrExecutorShutdown = errors.New("executor is shut down")

// Executor runs checks on a bounded worker pool and delivers their results
// to a single callback from Wait.
type Executor struct {
	onResult     ResultFunc
	workers      int
	timeout      time.Duration
	capabilities Requirement
	metrics      *metrics.Metrics
	logger       zerolog.Logger

	sem chan struct{}
	wg  sync.WaitGroup

	mu     sync.Mutex
	batch  *batch
	closed bool
}

type task struct {
	check  Check
	params Params
	done   ResultFunc
}

// batch collects the results of every task submitted between two Wait calls.
type batch struct {
	mu      sync.Mutex
	pending int
	queue   []*Result
	notify  chan struct{}
}

func newBatch() *batch {
	return &batch{notify: make(chan struct{}, 1)}
}

func (b *batch) push(r *Result) {
	b.mu.Lock()
	b.queue = append(b.queue, r)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *batch) take() []*Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queue
	b.queue = nil

	return q
}

// NewExecutor creates an executor delivering results to onResult.
// The pool width defaults to DefaultWorkers and every capability is assumed available.
func NewExecutor(onResult ResultFunc, opts ...ExecutorOption) *Executor {
	e := &Executor{
		onResult:     onResult,
		workers:      DefaultWorkers,
		capabilities: RequiresAPI | RequiresRemote,
		logger:       log.WithComponent("executor"),
		batch:        newBatch(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.sem = make(chan struct{}, e.workers)

	return e
}

// Execute schedules one invocation of c and returns immediately.
func (e *Executor) Execute(ctx context.Context, c Check, params Params, opts ...ExecuteOption) error {
	t := &task{check: c, params: params}
	for _, opt := range opts {
		opt(t)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()

		return ErrExecutorShutdown
	}

	b := e.batch
	b.pending++
	e.wg.Add(1)
	e.mu.Unlock()

	go e.run(ctx, t, b)

	return nil
}

// ExecuteSuite schedules every check of suite with the same parameters.
func (e *Executor) ExecuteSuite(ctx context.Context, suite Suite, params Params) error {
	for _, c := range suite.Checks() {
		if err := e.Execute(ctx, c, params); err != nil {
			return fmt.Errorf("executing suite %s: %w", suite.Name(), err)
		}
	}

	return nil
}

// Wait blocks until every task submitted since the previous Wait has
// finished, invoking the result callback once per task in completion order.
// It returns the number of delivered results.
func (e *Executor) Wait() int {
	e.mu.Lock()
	b := e.batch
	e.batch = newBatch()
	e.mu.Unlock()

	delivered := 0
	for delivered < b.pending {
		results := b.take()
		if len(results) == 0 {
			<-b.notify

			continue
		}

		for _, r := range results {
			if e.onResult != nil {
				e.onResult(r)
			}
			delivered++
		}
	}

	return delivered
}

// Shutdown rejects further submissions and waits for in-flight tasks.
// Results not collected by Wait are dropped. Calling it twice is a no-op.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()

		return
	}
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Executor) run(ctx context.Context, t *task, b *batch) {
	defer e.wg.Done()

	var result *Result

	select {
	case e.sem <- struct{}{}:
		start := time.Now()
		result = e.invoke(ctx, t)
		result.Duration = time.Since(start)
		<-e.sem
	case <-ctx.Done():
		result = ErrorResult(t.check.Description(), CheckContextError(ctx))
	}

	e.annotate(result, t.check)

	e.logger.Debug().
		Str("check", t.check.ID()).
		Str("verdict", string(result.Verdict)).
		Dur("duration", result.Duration).
		Msg("check finished")

	e.metrics.ObserveCheck(t.check.Suite(), string(result.Verdict), result.Duration)

	e.notifyDone(t, result)

	b.push(result)
}

// notifyDone runs the done callback of t; a panicking callback is logged and
// does not prevent the result from reaching Wait.
func (e *Executor) notifyDone(t *task, result *Result) {
	if t.done == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("check", t.check.ID()).Interface("panic", r).Msg("done callback panicked")
		}
	}()

	t.done(result)
}

type outcome struct {
	result *Result
	err    error
}

// invoke runs the check body, turning errors, panics and deadlines into results.
func (e *Executor) invoke(ctx context.Context, t *task) *Result {
	c := t.check

	if missing := c.Requires() &^ e.capabilities; missing != 0 {
		return Skipped(c.Description(), map[string]any{
			"reason": "missing " + missing.String() + " configuration",
		})
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error().Str("check", c.ID()).Interface("panic", r).Msg("check panicked")
				ch <- outcome{err: &PanicError{Value: r}}
			}
		}()

		res, err := c.Run(ctx, t.params)
		ch <- outcome{result: res, err: err}
	}()

	select {
	case o := <-ch:
		switch {
		case o.err != nil:
			return ErrorResult(c.Description(), o.err)
		case o.result == nil:
			return NoResult(c.Description(), nil)
		default:
			if err := o.result.Verdict.Validate(); err != nil {
				return ErrorResult(c.Description(), fmt.Errorf("invalid result from check %s: %w", c.ID(), err))
			}

			return o.result
		}
	case <-ctx.Done():
		// the check goroutine is abandoned; its buffered send never blocks
		return ErrorResult(c.Description(), CheckContextError(ctx))
	}
}

// annotate fills the envelope metadata the check body does not set itself.
func (e *Executor) annotate(r *Result, c Check) {
	r.CheckID = c.ID()
	r.Suite = c.Suite()

	if r.Description == "" {
		r.Description = c.Description()
	}

	if r.Details == nil {
		r.Details = make(map[string]any)
	}

	if r.Verdict == VerdictFailed && r.Remedy == "" {
		r.Remedy = c.Remedy()
	}
}
