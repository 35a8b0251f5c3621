package dispatch

import (
	"context"
	"sync/atomic"
	"time"
)

// SyncDispatcher executes steps synchronously in the caller's goroutine and
// stops at the first failing step.
type SyncDispatcher struct {
	executor *Executor
	observer ResultHandler

	// Stats
	passes      atomic.Uint64
	executed    atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	aborted     atomic.Uint64
	totalTimeNs atomic.Int64
}

// NewSyncDispatcher creates a new synchronous dispatcher.
func NewSyncDispatcher(opts ...SyncOption) *SyncDispatcher {
	d := &SyncDispatcher{
		executor: NewExecutor(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SyncOption configures a SyncDispatcher.
type SyncOption func(*SyncDispatcher)

// WithPanicHandler sets the panic handler for the dispatcher.
func WithPanicHandler(h PanicHandler) SyncOption {
	return func(d *SyncDispatcher) {
		d.executor = NewExecutor(WithExecutorPanicHandler(h))
	}
}

// WithSyncObserver sets a callback invoked after every executed step.
func WithSyncObserver(fn ResultHandler) SyncOption {
	return func(d *SyncDispatcher) {
		d.observer = fn
	}
}

// Dispatch executes the steps in order.
// The first step that returns an error or panics ends the pass: its failure is
// returned as a *HandlerError or *PanicError and the remaining steps are not
// executed. Returns nil when every step succeeded.
func (d *SyncDispatcher) Dispatch(ctx context.Context, hook string, steps []Step) error {
	d.passes.Add(1)

	for _, step := range steps {
		result := d.executor.Execute(ctx, step)
		d.record(result)

		if d.observer != nil {
			d.observer(ctx, result)
		}

		if !result.IsSuccess() {
			d.aborted.Add(1)
			return result.Err(hook)
		}
	}

	return nil
}

func (d *SyncDispatcher) record(result Result) {
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

// Stats returns dispatch statistics.
// Stats are read without a mutex, so values may be slightly inconsistent
// if stats are being updated concurrently.
func (d *SyncDispatcher) Stats() SyncDispatcherStats {
	executed := d.executed.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if executed > 0 {
		avgNs = totalNs / int64(executed)
	}

	return SyncDispatcherStats{
		Passes:        d.passes.Load(),
		Executed:      executed,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Aborted:       d.aborted.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// ResetStats resets all statistics to zero.
func (d *SyncDispatcher) ResetStats() {
	d.passes.Store(0)
	d.executed.Store(0)
	d.succeeded.Store(0)
	d.failed.Store(0)
	d.panicked.Store(0)
	d.aborted.Store(0)
	d.totalTimeNs.Store(0)
}

// SyncDispatcherStats contains statistics for a sync dispatcher.
type SyncDispatcherStats struct {
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

	// Aborted is the number of passes ended early by a failing step.
	Aborted uint64

	// TotalDuration is the cumulative time spent in handlers.
	TotalDuration time.Duration

	// AvgDuration is the average handler execution time.
	AvgDuration time.Duration
}
