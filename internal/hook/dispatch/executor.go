package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor handles the actual execution of steps with panic recovery and
// timing.
type Executor struct {
	panicHandler PanicHandler
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorPanicHandler sets the panic handler for the executor.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// Execute runs a step and returns the result.
// It recovers from panics and captures timing information. The context is
// handed to the handler untouched; a cancelled context does not skip the step.
func (e *Executor) Execute(ctx context.Context, step Step) (result Result) {
	result.ID = step.ID
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			if e.panicHandler != nil {
				func() {
					// A panicking panic handler must not escape either.
					defer func() { _ = recover() }()
					e.panicHandler(step.ID, r, stack)
				}()
			}
		}
	}()

	if err := step.Handler.Handle(ctx); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}
