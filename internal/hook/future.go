package hook

import (
	"context"
	"fmt"
)

// Future is the pending result of an asynchronous pass started by Go.
type Future struct {
	done chan struct{}
	hc   *Context
	errs *ErrorSet
	err  error
}

// Go starts Run on a new goroutine and returns immediately.
// The pass runs to completion regardless of how long callers wait for it.
func (h *Hooks) Go(ctx context.Context, hook string, params ...any) *Future {
	f := &Future{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = &FaultError{Hook: hook, Err: fmt.Errorf("panic in dispatch goroutine: %v", r)}
			}
		}()
		f.hc, f.errs, f.err = h.Run(ctx, hook, params...)
	}()

	return f
}

// Done returns a channel closed when the pass completes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the pass completes or ctx ends, whichever comes first.
// When ctx ends first it returns ctx.Err(); the pass keeps running and a
// later Wait or Result still observes its outcome.
func (f *Future) Wait(ctx context.Context) (*Context, *ErrorSet, error) {
	select {
	case <-f.done:
		return f.hc, f.errs, f.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Result blocks until the pass completes and returns its outcome.
func (f *Future) Result() (*Context, *ErrorSet, error) {
	<-f.done
	return f.hc, f.errs, f.err
}
