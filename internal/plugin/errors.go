package plugin

import (
	"errors"
	"fmt"
)

// Plugin system errors.
var (
	// ErrAlreadyLoaded is returned when attempting to load an already loaded plugin.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrNotLoaded is returned when attempting to use an unloaded plugin.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrPluginDisabled is returned when loading a disabled plugin.
	ErrPluginDisabled = errors.New("plugin is disabled")

	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("plugin manager is closed")
)

// LoadError wraps a failure to load a plugin script.
type LoadError struct {
	// Plugin is the plugin name.
	Plugin string
	// Script is the script path.
	Script string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin %q (%s): %v", e.Plugin, e.Script, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
