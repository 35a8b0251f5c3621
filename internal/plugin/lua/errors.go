package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution times out.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrHandlerFailed is returned when a Lua handler returns false.
	ErrHandlerFailed = errors.New("lua handler failed")

	// ErrModuleClosed is returned when registering through a cleaned up module.
	ErrModuleClosed = errors.New("hook module is closed")
)
