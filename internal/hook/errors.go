package hook

import (
	"errors"
	"fmt"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook/dispatch"
)

// Hook errors.
var (
	// ErrInvalidHook is returned when a hook name is empty.
	ErrInvalidHook = errors.New("invalid hook name")

	// ErrNilCallback is returned when registering a nil handler.
	ErrNilCallback = errors.New("nil handler callback")

	// ErrIDConflict is returned when an owned registration would replace a
	// handler held by another owner.
	ErrIDConflict = errors.New("handler id owned by another registrant")

	// ErrDispatcherFault is matched by every *FaultError.
	ErrDispatcherFault = errors.New("dispatcher fault")

	// ErrHandlerPanic is matched by every *PanicError.
	ErrHandlerPanic = dispatch.ErrHandlerPanic
)

type (
	// HandlerError is a handler failure tagged with the handler ID and hook.
	HandlerError = dispatch.HandlerError

	// PanicError is a recovered handler panic.
	PanicError = dispatch.PanicError

	// ErrorSet holds the failures of an asynchronous pass keyed by handler ID.
	ErrorSet = dispatch.ErrorSet
)

// FaultError reports a failure of the dispatch machinery itself, as opposed
// to a failure of a handler.
type FaultError struct {
	// Hook is the hook name being dispatched.
	Hook string

	// Err describes the fault.
	Err error
}

// Error implements the error interface.
func (e *FaultError) Error() string {
	return fmt.Sprintf("hook %q: dispatcher fault: %v", e.Hook, e.Err)
}

// Unwrap returns the underlying error.
func (e *FaultError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match FaultError with ErrDispatcherFault.
func (e *FaultError) Is(target error) bool {
	return target == ErrDispatcherFault
}
