package dispatch

import (
	"context"
	"time"
)

// Handler is the interface for a single dispatch step.
// The hook package binds the per-dispatch Context into the handler before
// handing it over, so the dispatcher stays unaware of it.
type Handler interface {
	Handle(ctx context.Context) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context) error {
	return f(ctx)
}

// Step is one entry of an ordered dispatch pass.
type Step struct {
	// ID identifies the registered handler the step was built from.
	ID string

	// Handler is invoked when the step runs.
	Handler Handler
}

// Result represents the outcome of a single step execution.
type Result struct {
	// ID is the step identifier.
	ID string

	// Success is true if the handler completed without error or panic.
	Success bool

	// Error is the error returned by the handler, if any.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// Err converts a failed result into the error reported to callers.
// Returns nil for a successful result.
func (r Result) Err(hook string) error {
	switch {
	case r.Panicked:
		return &PanicError{
			HandlerID: r.ID,
			Hook:      hook,
			Value:     r.PanicValue,
			Stack:     r.PanicStack,
		}
	case r.Error != nil:
		return &HandlerError{
			HandlerID: r.ID,
			Hook:      hook,
			Err:       r.Error,
		}
	default:
		return nil
	}
}

// PanicHandler is called when a handler panics during execution.
// It receives the step ID, the panic value, and the stack trace.
type PanicHandler func(stepID string, panicValue any, stack []byte)

// ResultHandler is called after every step with its result.
type ResultHandler func(ctx context.Context, result Result)
