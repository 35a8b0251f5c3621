package dispatch

import (
	"context"
	"sync/atomic"
	"time"
)

// AsyncDispatcher executes steps one after another, waiting for each to
// return before starting the next, and isolates failures.
//
// A failing step does not end the pass: its error is captured into the
// returned ErrorSet under the step ID and dispatch continues with the next
// step.
type AsyncDispatcher struct {
	executor *Executor
	observer ResultHandler

	// Stats
	passes      atomic.Uint64
	executed    atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// NewAsyncDispatcher creates a new asynchronous dispatcher.
func NewAsyncDispatcher(opts ...AsyncOption) *AsyncDispatcher {
	d := &AsyncDispatcher{
		executor: NewExecutor(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AsyncOption configures an AsyncDispatcher.
type AsyncOption func(*AsyncDispatcher)

// WithAsyncPanicHandler sets the panic handler for async execution.
func WithAsyncPanicHandler(h PanicHandler) AsyncOption {
	return func(d *AsyncDispatcher) {
		d.executor = NewExecutor(WithExecutorPanicHandler(h))
	}
}

// WithAsyncObserver sets a callback invoked after every executed step.
func WithAsyncObserver(fn ResultHandler) AsyncOption {
	return func(d *AsyncDispatcher) {
		d.observer = fn
	}
}

// Dispatch attempts every step in order and returns the failures.
// The returned set is never nil; it is empty when all steps succeeded.
// Cancellation of ctx does not stop the pass.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, hook string, steps []Step) *ErrorSet {
	d.passes.Add(1)
	errs := NewErrorSet(hook)

	for _, step := range steps {
		result := d.executor.Execute(ctx, step)
		d.record(result)

		if d.observer != nil {
			d.observer(ctx, result)
		}

		switch {
		case result.Panicked:
			errs.Add(step.ID, result.Err(hook))
		case result.Error != nil:
			errs.Add(step.ID, result.Error)
		}
	}

	return errs
}

func (d *AsyncDispatcher) record(result Result) {
	d.executed.Add(1)
	d.totalTimeNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Panicked:
		d.panicked.Add(1)
	case result.Error != nil:
		d.failed.Add(1)
	case result.Success:
		d.succeeded.Add(1)
	}
}

// Stats returns dispatcher statistics.
func (d *AsyncDispatcher) Stats() AsyncDispatcherStats {
	executed := d.executed.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if executed > 0 {
		avgNs = totalNs / int64(executed)
	}

	return AsyncDispatcherStats{
		Passes:        d.passes.Load(),
		Executed:      executed,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// ResetStats resets all statistics to zero.
func (d *AsyncDispatcher) ResetStats() {
	d.passes.Store(0)
	d.executed.Store(0)
	d.succeeded.Store(0)
	d.failed.Store(0)
	d.panicked.Store(0)
	d.totalTimeNs.Store(0)
}

// AsyncDispatcherStats contains statistics for an async dispatcher.
type AsyncDispatcherStats struct {
	// Passes is the total number of Dispatch calls.
	Passes uint64

	// Executed is the number of steps that ran.
	Executed uint64

	// Succeeded is the number of successful step executions.
	Succeeded uint64

	// Failed is the number of steps that returned errors.
	Failed uint64

	// Panicked is the number of steps that panicked.
	Panicked uint64

	// TotalDuration is the cumulative time spent in handlers.
	TotalDuration time.Duration

	// AvgDuration is the average handler execution time.
	AvgDuration time.Duration
}
