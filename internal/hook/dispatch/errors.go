package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHandlerPanic is matched by every *PanicError through errors.Is.
var ErrHandlerPanic = errors.New("handler panicked")

// HandlerError wraps an error returned by a handler with the identity of the
// handler and the hook it was registered on.
type HandlerError struct {
	// HandlerID is the ID of the handler that failed.
	HandlerID string

	// Hook is the hook name being dispatched.
	Hook string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("hook %q: handler %s: %v", e.Hook, e.HandlerID, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// HandlerID is the ID of the handler that panicked.
	HandlerID string

	// Hook is the hook name being dispatched.
	Hook string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("hook %q: handler %s panicked: %v", e.Hook, e.HandlerID, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// ErrorSet collects the failures of an asynchronous dispatch pass keyed by
// handler ID, in the order they were captured.
//
// A nil *ErrorSet behaves as an empty set.
type ErrorSet struct {
	hook string
	ids  []string
	errs map[string]error
}

// NewErrorSet creates an empty error set for a pass over hook.
func NewErrorSet(hook string) *ErrorSet {
	return &ErrorSet{
		hook: hook,
		errs: make(map[string]error),
	}
}

// Add records err for the handler id. A second error for the same id
// replaces the first without changing its position.
func (s *ErrorSet) Add(id string, err error) {
	if err == nil {
		return
	}
	if _, exists := s.errs[id]; !exists {
		s.ids = append(s.ids, id)
	}
	s.errs[id] = err
}

// Hook returns the hook name of the pass the set belongs to.
func (s *ErrorSet) Hook() string {
	if s == nil {
		return ""
	}
	return s.hook
}

// Len returns the number of failed handlers.
func (s *ErrorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Empty returns true if no handler failed.
func (s *ErrorSet) Empty() bool {
	return s.Len() == 0
}

// Get returns the error captured for a handler id.
func (s *ErrorSet) Get(id string) (error, bool) {
	if s == nil {
		return nil, false
	}
	err, ok := s.errs[id]
	return err, ok
}

// IDs returns the failed handler IDs in capture order.
func (s *ErrorSet) IDs() []string {
	if s == nil || len(s.ids) == 0 {
		return nil
	}
	ids := make([]string, len(s.ids))
	copy(ids, s.ids)
	return ids
}

// Each calls fn for every captured failure in capture order.
func (s *ErrorSet) Each(fn func(id string, err error)) {
	if s == nil {
		return
	}
	for _, id := range s.ids {
		fn(id, s.errs[id])
	}
}

// Err joins every captured failure into one error, each tagged with its
// handler ID. Returns nil when the set is empty.
func (s *ErrorSet) Err() error {
	if s.Empty() {
		return nil
	}
	errs := make([]error, 0, len(s.ids))
	s.Each(func(id string, err error) {
		var handlerErr *HandlerError
		var panicErr *PanicError
		if errors.As(err, &handlerErr) || errors.As(err, &panicErr) {
			errs = append(errs, err)
			return
		}
		errs = append(errs, &HandlerError{HandlerID: id, Hook: s.hook, Err: err})
	})
	return errors.Join(errs...)
}

// Error implements the error interface so a non-empty set can be logged
// directly.
func (s *ErrorSet) Error() string {
	if s.Empty() {
		return "no handler errors"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d handler error(s) on hook %q:", s.Len(), s.hook)
	s.Each(func(id string, err error) {
		fmt.Fprintf(&b, " [%s: %v]", id, err)
	})
	return b.String()
}
